package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"ecosort/internal/domain"
	"ecosort/internal/events"
	"ecosort/internal/repo"
)

const dateLayout = "2006-01-02"

type DeleteResult struct {
	ID        string `json:"id"`
	DeletedAt string `json:"deleted_at"`
	DeletedBy string `json:"deleted_by"`
}

// SoftDelete marks a waste item deleted. An item that is already deleted is
// left untouched; the result then carries the existing provenance and the
// error is an *domain.AlreadyDeletedError.
func (e Engine) SoftDelete(ctx context.Context, actorID, wasteID string) (res DeleteResult, err error) {
	defer func(start time.Time) { e.observe("soft_delete", start, err) }(time.Now())

	if actorID == "" {
		return res, domain.Invalid("actor is required")
	}
	err = e.Repo.RunInTx(ctx, func(tx *sql.Tx) error {
		item, err := e.Repo.GetWasteItemTx(ctx, tx, wasteID)
		if err != nil {
			return err
		}
		if item.Deleted {
			state := item.Lifecycle()
			res = DeleteResult{ID: item.ID, DeletedAt: state.At, DeletedBy: state.By}
			return &domain.AlreadyDeletedError{ID: item.ID, DeletedAt: state.At, DeletedBy: state.By}
		}
		at := domain.FormatTime(e.now())
		marked, err := e.Repo.MarkDeletedTx(ctx, tx, item.ID, at, actorID)
		if err != nil {
			return fmt.Errorf("mark deleted: %w", err)
		}
		if !marked {
			return fmt.Errorf("%w: waste item %s changed concurrently", domain.ErrTransactionAborted, item.ID)
		}
		res = DeleteResult{ID: item.ID, DeletedAt: at, DeletedBy: actorID}
		return e.appendEvent(ctx, tx, "waste.deleted", "waste_item", item.ID, actorID, nil)
	})
	return res, err
}

type BulkDeleteResult struct {
	Total          int    `json:"total"`
	NewlyDeleted   int    `json:"newlyDeleted"`
	AlreadyDeleted int    `json:"alreadyDeleted"`
	Actor          string `json:"actor"`
	Date           string `json:"date"`
}

// SoftDeleteByDate deletes every item created on the given calendar day that
// is not already deleted, in one batch.
func (e Engine) SoftDeleteByDate(ctx context.Context, actorID, date string) (res BulkDeleteResult, err error) {
	defer func(start time.Time) { e.observe("soft_delete_by_date", start, err) }(time.Now())

	if actorID == "" {
		return res, domain.Invalid("actor is required")
	}
	date = strings.TrimSpace(date)
	if _, err := time.ParseInLocation(dateLayout, date, e.location()); err != nil {
		return res, domain.Invalid("date must be YYYY-MM-DD")
	}
	res = BulkDeleteResult{Actor: actorID, Date: date}
	err = e.Repo.RunInTx(ctx, func(tx *sql.Tx) error {
		items, err := e.Repo.ListWasteCreatedBetweenTx(ctx, tx, date+" 00:00:00", date+" 23:59:59")
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.NotFoundError{Kind: "waste items created on", ID: date}
		}
		var pending []string
		for _, w := range items {
			if w.Deleted {
				res.AlreadyDeleted++
				continue
			}
			pending = append(pending, w.ID)
		}
		res.Total = len(items)
		res.NewlyDeleted = len(pending)
		if len(pending) == 0 {
			return nil
		}
		n, err := e.Repo.MarkWasteDeletedTx(ctx, tx, pending, domain.FormatTime(e.now()), actorID)
		if err != nil {
			return fmt.Errorf("mark deleted: %w", err)
		}
		if int(n) != len(pending) {
			return fmt.Errorf("%w: expected %d deletions, applied %d", domain.ErrTransactionAborted, len(pending), n)
		}
		return e.appendEvent(ctx, tx, "waste.bulk_deleted", "waste_day", date, actorID, events.EventPayload{
			"total":           res.Total,
			"newly_deleted":   res.NewlyDeleted,
			"already_deleted": res.AlreadyDeleted,
			"ids":             pending,
		})
	})
	if err != nil {
		return BulkDeleteResult{}, err
	}
	return res, nil
}

type RestoreResult struct {
	ID         string `json:"id"`
	RestoredAt string `json:"restored_at"`
	RestoredBy string `json:"restored_by"`
	WasDeleted bool   `json:"was_deleted"`
}

// Restore clears the deleted flag and stamps new restore provenance, even
// when the item was not deleted.
func (e Engine) Restore(ctx context.Context, actorID, wasteID string) (res RestoreResult, err error) {
	defer func(start time.Time) { e.observe("restore", start, err) }(time.Now())

	if actorID == "" {
		return res, domain.Invalid("actor is required")
	}
	err = e.Repo.RunInTx(ctx, func(tx *sql.Tx) error {
		item, err := e.Repo.GetWasteItemTx(ctx, tx, wasteID)
		if err != nil {
			return err
		}
		at := domain.FormatTime(e.now())
		if err := e.Repo.RestoreTx(ctx, tx, item.ID, at, actorID); err != nil {
			return err
		}
		res = RestoreResult{ID: item.ID, RestoredAt: at, RestoredBy: actorID, WasDeleted: item.Deleted}
		return e.appendEvent(ctx, tx, "waste.restored", "waste_item", item.ID, actorID, events.EventPayload{"was_deleted": item.Deleted})
	})
	return res, err
}

type DeletedQuery struct {
	DateFrom  string
	DateTo    string
	DeletedBy string
}

// QueryDeleted lists deleted items newest-deleted first, falling back to the
// creation timestamp when no deletion time was recorded.
func (e Engine) QueryDeleted(ctx context.Context, q DeletedQuery) ([]WasteView, error) {
	f := repo.DeletedFilters{DeletedBy: strings.TrimSpace(q.DeletedBy)}
	if q.DateFrom != "" {
		if _, err := time.Parse(dateLayout, q.DateFrom); err != nil {
			return nil, domain.Invalid("dateFrom must be YYYY-MM-DD")
		}
		f.From = q.DateFrom + "T00:00:00.000000Z"
	}
	if q.DateTo != "" {
		if _, err := time.Parse(dateLayout, q.DateTo); err != nil {
			return nil, domain.Invalid("dateTo must be YYYY-MM-DD")
		}
		f.To = q.DateTo + "T23:59:59.999999Z"
	}
	items, err := e.Repo.ListDeletedWaste(ctx, f)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]time.Time, len(items))
	for _, w := range items {
		keys[w.ID] = e.deletedSortKey(w)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := keys[items[i].ID], keys[items[j].ID]
		if !a.Equal(b) {
			return a.After(b)
		}
		return items[i].ID < items[j].ID
	})
	out := make([]WasteView, 0, len(items))
	for _, w := range items {
		out = append(out, e.view(w, true))
	}
	return out, nil
}

func (e Engine) deletedSortKey(w domain.WasteItem) time.Time {
	if w.DeletedAt != nil {
		if t, err := time.Parse(time.RFC3339Nano, *w.DeletedAt); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(domain.CreatedLayout, w.CreatedAt, e.location()); err == nil {
		return t
	}
	return time.Time{}
}
