package engine

import (
	"context"
	"sort"
	"strings"

	"ecosort/internal/domain"
	"ecosort/internal/repo"
)

type HistoryKind string

const (
	KindCollection HistoryKind = "collection"
	KindRedemption HistoryKind = "redemption"
)

type HistoryQuery struct {
	AccountID string
	Limit     int
	// Kind restricts the result to one record type when set.
	Kind HistoryKind
}

// HistoryEntry is one ledger record. Delta is positive for credits and
// negative for debits.
type HistoryEntry struct {
	Kind       HistoryKind              `json:"kind" enum:"collection,redemption"`
	ID         string                   `json:"id"`
	AccountID  string                   `json:"user_id"`
	At         string                   `json:"at" format:"date-time"`
	Delta      int64                    `json:"delta"`
	Collection *domain.CollectionRecord `json:"collection,omitempty"`
	Redemption *domain.RedemptionRecord `json:"redemption,omitempty"`
}

// History merges collection and redemption records newest first. With an
// account every record of that account is returned; otherwise the most
// recent Limit records across all accounts.
func (e Engine) History(ctx context.Context, q HistoryQuery) ([]HistoryEntry, error) {
	switch q.Kind {
	case "", KindCollection, KindRedemption:
	default:
		return nil, domain.Invalid("kind must be collection or redemption")
	}
	f := repo.HistoryFilters{AccountID: strings.TrimSpace(q.AccountID)}
	if f.AccountID == "" {
		f.Limit = e.historyLimit(q.Limit)
	}

	var out []HistoryEntry
	if q.Kind != KindRedemption {
		recs, err := e.Repo.ListCollections(ctx, f)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			r := recs[i]
			out = append(out, HistoryEntry{Kind: KindCollection, ID: r.ID, AccountID: r.AccountID, At: r.CollectedAt, Delta: r.Points, Collection: &r})
		}
	}
	if q.Kind != KindCollection {
		recs, err := e.Repo.ListRedemptions(ctx, f)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			r := recs[i]
			out = append(out, HistoryEntry{Kind: KindRedemption, ID: r.ID, AccountID: r.AccountID, At: r.RedeemedAt, Delta: -r.Cost, Redemption: &r})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At != out[j].At {
			return out[i].At > out[j].At
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	if out == nil {
		out = []HistoryEntry{}
	}
	return out, nil
}

// Redemptions is the redemption-only history.
func (e Engine) Redemptions(ctx context.Context, accountID string, limit int) ([]domain.RedemptionRecord, error) {
	f := repo.HistoryFilters{AccountID: strings.TrimSpace(accountID)}
	if f.AccountID == "" {
		f.Limit = e.historyLimit(limit)
	}
	recs, err := e.Repo.ListRedemptions(ctx, f)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.RedemptionRecord{}
	}
	return recs, nil
}

func (e Engine) historyLimit(limit int) int {
	def, ceiling := e.Config.History.DefaultLimit, e.Config.History.MaxLimit
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
