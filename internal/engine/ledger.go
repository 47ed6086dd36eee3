package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ecosort/internal/config"
	"ecosort/internal/domain"
	"ecosort/internal/events"
)

// MaxTokenLength is the longest redemption token that is stored. Longer
// tokens are dropped and the redemption proceeds without one.
const MaxTokenLength = 64

type CollectResult struct {
	WasteItemID   string `json:"waste_id"`
	AccountID     string `json:"user_id"`
	RecordID      string `json:"history_id"`
	PointsAwarded int64  `json:"points_awarded"`
	NewBalance    int64  `json:"new_balance"`
}

// Collect credits the actor with the points of a waste item and marks the
// item consumed. Exactly one collect per item succeeds.
func (e Engine) Collect(ctx context.Context, actorID, wasteID string) (res CollectResult, err error) {
	defer func(start time.Time) { e.observe("collect", start, err) }(time.Now())

	wasteID = strings.TrimSpace(wasteID)
	if wasteID == "" {
		return res, domain.Invalid("waste id is required")
	}
	if actorID == "" {
		return res, domain.Invalid("actor is required")
	}
	item, err := e.Repo.GetWasteItem(ctx, wasteID)
	if err != nil {
		return res, err
	}
	if item.Collected {
		return res, domain.ErrAlreadyConsumed
	}

	err = e.Repo.RunInTx(ctx, func(tx *sql.Tx) error {
		item, err := e.Repo.GetWasteItemTx(ctx, tx, wasteID)
		if err != nil {
			return err
		}
		acct, err := e.Repo.GetAccountTx(ctx, tx, actorID)
		if err != nil {
			return err
		}
		marked, err := e.Repo.MarkCollectedTx(ctx, tx, wasteID)
		if err != nil {
			return fmt.Errorf("mark collected: %w", err)
		}
		if !marked {
			return domain.ErrAlreadyConsumed
		}
		next := acct.Points + item.Points
		if err := e.setBalance(ctx, tx, acct.ID, acct.Points, next); err != nil {
			return err
		}
		rec := domain.CollectionRecord{
			ID:          uuid.NewString(),
			AccountID:   acct.ID,
			WasteItemID: item.ID,
			Class:       item.Class,
			Points:      item.Points,
			CollectedAt: domain.FormatTime(e.now()),
		}
		if err := e.Repo.InsertCollectionTx(ctx, tx, rec); err != nil {
			return fmt.Errorf("insert collection: %w", err)
		}
		if err := e.appendEvent(ctx, tx, "waste.collected", "waste_item", item.ID, actorID, events.EventPayload{
			"account_id": acct.ID,
			"points":     item.Points,
			"balance":    next,
			"record_id":  rec.ID,
		}); err != nil {
			return err
		}
		res = CollectResult{
			WasteItemID:   item.ID,
			AccountID:     acct.ID,
			RecordID:      rec.ID,
			PointsAwarded: item.Points,
			NewBalance:    next,
		}
		return nil
	})
	if err != nil {
		return CollectResult{}, err
	}
	return res, nil
}

type RedeemOptions struct {
	ActorID   string
	ActorRole string
	// AccountID defaults to ActorID. Redeeming for another account needs
	// the redeem page.
	AccountID string
	AwardID   string
	Token     string
}

type RedeemResult struct {
	RedemptionID string  `json:"redemption_id"`
	AccountID    string  `json:"user_id"`
	AwardID      string  `json:"award_id"`
	AwardName    string  `json:"award_name"`
	Cost         int64   `json:"cost"`
	NewBalance   int64   `json:"new_balance"`
	Token        *string `json:"barcode_id,omitempty"`
}

// Redeem debits an award's cost and appends a redemption record. The
// balance check inside the transaction is authoritative; the token check is
// best-effort and runs before the transaction.
func (e Engine) Redeem(ctx context.Context, opts RedeemOptions) (res RedeemResult, err error) {
	defer func(start time.Time) { e.observe("redeem", start, err) }(time.Now())

	if opts.ActorID == "" {
		return res, domain.Invalid("actor is required")
	}
	if strings.TrimSpace(opts.AwardID) == "" {
		return res, domain.Invalid("award id is required")
	}
	accountID := opts.AccountID
	if accountID == "" {
		accountID = opts.ActorID
	}
	if accountID != opts.ActorID {
		if err := e.Auth.Require(ctx, opts.ActorRole, config.PageRedeem); err != nil {
			return res, err
		}
	}
	token := normalizeToken(opts.Token)
	if token != nil {
		exists, err := e.Repo.RedemptionTokenExists(ctx, *token)
		if err != nil {
			return res, err
		}
		if exists {
			return res, domain.ErrDuplicateToken
		}
	}
	acct, err := e.Repo.GetAccount(ctx, accountID)
	if err != nil {
		return res, err
	}
	award, err := e.Repo.GetAward(ctx, opts.AwardID)
	if err != nil {
		return res, err
	}
	if acct.Points < award.Cost {
		return res, domain.ErrInsufficientBalance
	}

	err = e.Repo.RunInTx(ctx, func(tx *sql.Tx) error {
		fresh, err := e.Repo.GetAccountTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if fresh.Points < award.Cost {
			return domain.ErrInsufficientBalance
		}
		next := fresh.Points - award.Cost
		if err := e.setBalance(ctx, tx, fresh.ID, fresh.Points, next); err != nil {
			return err
		}
		rec := domain.RedemptionRecord{
			ID:         uuid.NewString(),
			AccountID:  fresh.ID,
			AwardID:    award.ID,
			AwardName:  award.Name,
			Cost:       award.Cost,
			Token:      token,
			Status:     domain.RedemptionActive,
			RedeemedAt: domain.FormatTime(e.now()),
		}
		if err := e.Repo.InsertRedemptionTx(ctx, tx, rec); err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}
		if err := e.appendEvent(ctx, tx, "award.redeemed", "account", fresh.ID, opts.ActorID, events.EventPayload{
			"award_id":  award.ID,
			"cost":      award.Cost,
			"balance":   next,
			"record_id": rec.ID,
		}); err != nil {
			return err
		}
		res = RedeemResult{
			RedemptionID: rec.ID,
			AccountID:    fresh.ID,
			AwardID:      award.ID,
			AwardName:    award.Name,
			Cost:         award.Cost,
			NewBalance:   next,
			Token:        token,
		}
		return nil
	})
	if err != nil {
		return RedeemResult{}, err
	}
	return res, nil
}

// setBalance performs the compare-and-set balance write. Losing the race
// aborts the transaction.
func (e Engine) setBalance(ctx context.Context, tx *sql.Tx, accountID string, prev, next int64) error {
	if next < 0 {
		return domain.ErrInsufficientBalance
	}
	ok, err := e.Repo.CompareAndSetPointsTx(ctx, tx, accountID, prev, next)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: balance of %s changed concurrently", domain.ErrTransactionAborted, accountID)
	}
	return nil
}

func normalizeToken(token string) *string {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > MaxTokenLength {
		return nil
	}
	return &token
}

// IsRetryable reports whether err means nothing was written and the call may
// be repeated.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransactionAborted)
}
