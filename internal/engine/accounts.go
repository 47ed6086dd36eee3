package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ecosort/internal/domain"
	"ecosort/internal/events"
)

type Reconciliation struct {
	AccountID  string `json:"user_id"`
	Stored     int64  `json:"stored"`
	Credits    int64  `json:"credits"`
	Debits     int64  `json:"debits"`
	Derived    int64  `json:"derived"`
	Consistent bool   `json:"consistent"`
}

// ReconcileBalance compares the stored balance with the one derived from
// history records.
func (e Engine) ReconcileBalance(ctx context.Context, accountID string) (Reconciliation, error) {
	acct, err := e.Repo.GetAccount(ctx, accountID)
	if err != nil {
		return Reconciliation{}, err
	}
	credits, debits, err := e.Repo.LedgerTotals(ctx, acct.ID)
	if err != nil {
		return Reconciliation{}, err
	}
	derived := credits - debits
	r := Reconciliation{
		AccountID:  acct.ID,
		Stored:     acct.Points,
		Credits:    credits,
		Debits:     debits,
		Derived:    derived,
		Consistent: derived == acct.Points,
	}
	if !r.Consistent {
		e.logger().WithField("account_id", acct.ID).WithField("stored", acct.Points).WithField("derived", derived).Warn("balance does not match history")
	}
	return r, nil
}

type AccountPoints struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Points   int64  `json:"points"`
}

func (e Engine) AccountPoints(ctx context.Context, id string) (AccountPoints, error) {
	a, err := e.Repo.GetAccount(ctx, id)
	if err != nil {
		return AccountPoints{}, err
	}
	return AccountPoints{ID: a.ID, Username: orDash(a.Username), Points: a.Points}, nil
}

type AccountInput struct {
	ID       string
	Email    string
	Username string
	RoleID   string
	Verified bool
}

// CreateAccount registers an account with a zero balance. Balances only
// change through Collect and Redeem.
func (e Engine) CreateAccount(ctx context.Context, in AccountInput) (domain.Account, error) {
	if strings.TrimSpace(in.Username) == "" {
		return domain.Account{}, domain.Invalid("username is required")
	}
	if in.RoleID == "" {
		return domain.Account{}, domain.Invalid("role is required")
	}
	a := domain.Account{
		ID:        strings.TrimSpace(in.ID),
		Email:     strings.TrimSpace(in.Email),
		Username:  strings.TrimSpace(in.Username),
		RoleID:    in.RoleID,
		Verified:  in.Verified,
		CreatedAt: domain.FormatTime(e.now()),
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := e.Repo.InsertAccount(ctx, a); err != nil {
		return domain.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

// ListAwards returns the award catalog, cheapest first.
func (e Engine) ListAwards(ctx context.Context) ([]domain.Award, error) {
	awards, err := e.Repo.ListAwards(ctx)
	if awards == nil && err == nil {
		awards = []domain.Award{}
	}
	return awards, err
}

type AwardInput struct {
	ID   string
	Name string
	Cost int64
}

// SaveAward creates an award when ID is empty and updates it otherwise.
func (e Engine) SaveAward(ctx context.Context, actorID string, in AwardInput) (domain.Award, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Award{}, domain.Invalid("name is required")
	}
	if in.Cost <= 0 {
		return domain.Award{}, domain.Invalid("cost must be positive")
	}
	now := domain.FormatTime(e.now())
	a := domain.Award{ID: strings.TrimSpace(in.ID), Name: name, Cost: in.Cost, CreatedAt: now, UpdatedAt: now}
	creating := a.ID == ""
	if creating {
		a.ID = uuid.NewString()
	}
	err := e.Repo.RunInTx(ctx, func(tx *sql.Tx) error {
		if creating {
			if err := e.Repo.InsertAwardTx(ctx, tx, a); err != nil {
				return fmt.Errorf("insert award: %w", err)
			}
		} else if err := e.Repo.UpdateAwardTx(ctx, tx, a); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, "award.saved", "award", a.ID, actorID, events.EventPayload{"name": a.Name, "cost": a.Cost, "created": creating})
	})
	if err != nil {
		return domain.Award{}, err
	}
	if !creating {
		return e.Repo.GetAward(ctx, a.ID)
	}
	return a, nil
}

func (e Engine) DeleteAward(ctx context.Context, actorID, id string) error {
	return e.Repo.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteAwardTx(ctx, tx, id); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, "award.deleted", "award", id, actorID, nil)
	})
}

// AuditTrail returns the most recent audit events for an entity.
func (e Engine) AuditTrail(ctx context.Context, entityKind, entityID string, limit int) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, e.historyLimit(limit), entityKind, entityID)
}
