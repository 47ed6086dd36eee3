package repo

import (
	"context"
	"database/sql"
	"errors"

	"ecosort/internal/domain"
)

const wasteColumns = `id,waste_class,prediction,confidence,recycle_prob,image,points,collected,deleted,created_at,deleted_at,deleted_by,restored_at,restored_by`

func scanWaste(row interface{ Scan(...any) error }) (domain.WasteItem, error) {
	var (
		w                                          domain.WasteItem
		deletedAt, deletedBy, restoredAt, restored sql.NullString
	)
	err := row.Scan(&w.ID, &w.Class, &w.Prediction, &w.Confidence, &w.RecycleProb, &w.Image, &w.Points,
		&w.Collected, &w.Deleted, &w.CreatedAt, &deletedAt, &deletedBy, &restoredAt, &restored)
	if errors.Is(err, sql.ErrNoRows) {
		return w, ErrNotFound
	}
	if err != nil {
		return w, err
	}
	w.DeletedAt = ptrFromNull(deletedAt)
	w.DeletedBy = ptrFromNull(deletedBy)
	w.RestoredAt = ptrFromNull(restoredAt)
	w.RestoredBy = ptrFromNull(restored)
	return w, nil
}

func getWaste(ctx context.Context, q querier, id string) (domain.WasteItem, error) {
	w, err := scanWaste(q.QueryRowContext(ctx, `SELECT `+wasteColumns+` FROM waste_items WHERE id=?`, id))
	if errors.Is(err, ErrNotFound) {
		return w, domain.NotFoundError{Kind: "waste item", ID: id}
	}
	return w, err
}

func (r Repo) GetWasteItem(ctx context.Context, id string) (domain.WasteItem, error) {
	return getWaste(ctx, r.DB, id)
}

func (r Repo) GetWasteItemTx(ctx context.Context, tx *sql.Tx, id string) (domain.WasteItem, error) {
	return getWaste(ctx, tx, id)
}

// InsertWasteItem stores a freshly ingested item. Collected and deleted
// always start false.
func (r Repo) InsertWasteItem(ctx context.Context, w domain.WasteItem) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO waste_items(id,waste_class,prediction,confidence,recycle_prob,image,points,collected,deleted,created_at) VALUES (?,?,?,?,?,?,?,0,0,?)`,
		w.ID, w.Class, w.Prediction, w.Confidence, w.RecycleProb, w.Image, w.Points, w.CreatedAt)
	return err
}

// MarkCollectedTx flips collected false->true. It reports false when the item
// was already collected.
func (r Repo) MarkCollectedTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE waste_items SET collected=1 WHERE id=? AND collected=0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

type WasteFilters struct {
	IncludeDeleted bool
	Limit          int
}

// ListWaste returns items newest first.
func (r Repo) ListWaste(ctx context.Context, f WasteFilters) ([]domain.WasteItem, error) {
	var (
		clauses []string
		args    []any
	)
	if !f.IncludeDeleted {
		clauses = append(clauses, "deleted=0")
	}
	query := `SELECT ` + wasteColumns + ` FROM waste_items` + where(clauses) + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return queryWaste(ctx, r.DB, query, args...)
}

// ListWasteCreatedBetweenTx returns items whose creation timestamp lies in
// [from, to], compared as stored strings.
func (r Repo) ListWasteCreatedBetweenTx(ctx context.Context, tx *sql.Tx, from, to string) ([]domain.WasteItem, error) {
	return queryWaste(ctx, tx, `SELECT `+wasteColumns+` FROM waste_items WHERE created_at>=? AND created_at<=? ORDER BY created_at, id`, from, to)
}

type DeletedFilters struct {
	From      string
	To        string
	DeletedBy string
}

// ListDeletedWaste returns deleted items matching the bounds on deleted_at.
// Ordering is left to the caller.
func (r Repo) ListDeletedWaste(ctx context.Context, f DeletedFilters) ([]domain.WasteItem, error) {
	clauses := []string{"deleted=1"}
	var args []any
	if f.From != "" {
		clauses = append(clauses, "deleted_at>=?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "deleted_at<=?")
		args = append(args, f.To)
	}
	if f.DeletedBy != "" {
		clauses = append(clauses, "deleted_by=?")
		args = append(args, f.DeletedBy)
	}
	return queryWaste(ctx, r.DB, `SELECT `+wasteColumns+` FROM waste_items`+where(clauses), args...)
}

// MarkDeletedTx soft-deletes one item unless it is already deleted.
func (r Repo) MarkDeletedTx(ctx context.Context, tx *sql.Tx, id, at, by string) (bool, error) {
	n, err := r.MarkWasteDeletedTx(ctx, tx, []string{id}, at, by)
	return n == 1, err
}

// MarkWasteDeletedTx soft-deletes every listed item that is not already
// deleted and returns the number of rows changed.
func (r Repo) MarkWasteDeletedTx(ctx context.Context, tx *sql.Tx, ids []string, at, by string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{at, by}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx, `UPDATE waste_items SET deleted=1, deleted_at=?, deleted_by=? WHERE deleted=0 AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RestoreTx clears the deleted flag and stamps restore provenance whatever
// the current state.
func (r Repo) RestoreTx(ctx context.Context, tx *sql.Tx, id, at, by string) error {
	res, err := tx.ExecContext(ctx, `UPDATE waste_items SET deleted=0, restored_at=?, restored_by=? WHERE id=?`, at, by, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Kind: "waste item", ID: id}
	}
	return nil
}

func queryWaste(ctx context.Context, q querier, query string, args ...any) ([]domain.WasteItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WasteItem
	for rows.Next() {
		w, err := scanWaste(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}
