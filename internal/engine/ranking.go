package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ecosort/internal/domain"
)

// RankScope selects all-time balances when Month is empty, otherwise the
// points collected during Month ("YYYY-MM").
type RankScope struct {
	Month string
}

type RankEntry struct {
	AccountID string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Points    int64  `json:"points"`
}

// RankAccounts orders eligible accounts by points, highest first. Equal
// totals are ordered by account id.
func (e Engine) RankAccounts(ctx context.Context, scope RankScope) ([]RankEntry, error) {
	month := strings.TrimSpace(scope.Month)
	var from, to string
	if month != "" {
		start, err := time.ParseInLocation("2006-01", month, e.location())
		if err != nil {
			return nil, domain.Invalid("month must be YYYY-MM")
		}
		from = domain.FormatTime(start)
		to = domain.FormatTime(start.AddDate(0, 1, 0))
	}

	var (
		accounts []domain.Account
		sums     map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = e.Repo.ListAccountsByRoles(gctx, e.Config.Ranking.EligibleRoles)
		return err
	})
	if month != "" {
		g.Go(func() error {
			var err error
			sums, err = e.Repo.SumCollectionsBetween(gctx, from, to)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]RankEntry, 0, len(accounts))
	for _, a := range accounts {
		entry := RankEntry{AccountID: a.ID, Username: orDash(a.Username), Email: orDash(a.Email), Points: a.Points}
		if month != "" {
			entry.Points = sums[a.ID]
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
