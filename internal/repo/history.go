package repo

import (
	"context"
	"database/sql"

	"ecosort/internal/domain"
)

func (r Repo) InsertCollectionTx(ctx context.Context, tx *sql.Tx, c domain.CollectionRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO collection_history(id,account_id,waste_item_id,waste_class,points,collected_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.AccountID, c.WasteItemID, c.Class, c.Points, c.CollectedAt)
	return err
}

func (r Repo) InsertRedemptionTx(ctx context.Context, tx *sql.Tx, rec domain.RedemptionRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO redemption_history(id,account_id,award_id,award_name,cost,token,status,redeemed_at) VALUES (?,?,?,?,?,?,?,?)`,
		rec.ID, rec.AccountID, rec.AwardID, rec.AwardName, rec.Cost, nullableStringPtr(rec.Token), rec.Status, rec.RedeemedAt)
	return err
}

// RedemptionTokenExists reports whether any redemption carries token.
func (r Repo) RedemptionTokenExists(ctx context.Context, token string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM redemption_history WHERE token=?`, token).Scan(&n)
	return n > 0, err
}

type HistoryFilters struct {
	AccountID string
	// Limit applies only when > 0.
	Limit int
}

// ListCollections returns collection records newest first.
func (r Repo) ListCollections(ctx context.Context, f HistoryFilters) ([]domain.CollectionRecord, error) {
	var (
		clauses []string
		args    []any
	)
	if f.AccountID != "" {
		clauses = append(clauses, "account_id=?")
		args = append(args, f.AccountID)
	}
	query := `SELECT id,account_id,waste_item_id,waste_class,points,collected_at FROM collection_history` + where(clauses) + ` ORDER BY collected_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CollectionRecord
	for rows.Next() {
		var c domain.CollectionRecord
		if err := rows.Scan(&c.ID, &c.AccountID, &c.WasteItemID, &c.Class, &c.Points, &c.CollectedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ListRedemptions returns redemption records newest first.
func (r Repo) ListRedemptions(ctx context.Context, f HistoryFilters) ([]domain.RedemptionRecord, error) {
	var (
		clauses []string
		args    []any
	)
	if f.AccountID != "" {
		clauses = append(clauses, "account_id=?")
		args = append(args, f.AccountID)
	}
	query := `SELECT id,account_id,award_id,award_name,cost,token,status,redeemed_at FROM redemption_history` + where(clauses) + ` ORDER BY redeemed_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RedemptionRecord
	for rows.Next() {
		var (
			rec   domain.RedemptionRecord
			token sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.AwardID, &rec.AwardName, &rec.Cost, &token, &rec.Status, &rec.RedeemedAt); err != nil {
			return nil, err
		}
		rec.Token = ptrFromNull(token)
		res = append(res, rec)
	}
	return res, rows.Err()
}

// SumCollectionsBetween totals collected points per account for records with
// from <= collected_at < to.
func (r Repo) SumCollectionsBetween(ctx context.Context, from, to string) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT account_id, SUM(points) FROM collection_history WHERE collected_at>=? AND collected_at<? GROUP BY account_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int64{}
	for rows.Next() {
		var (
			id  string
			sum int64
		)
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		res[id] = sum
	}
	return res, rows.Err()
}

// LedgerTotals returns the summed collection credits and redemption debits
// recorded for an account.
func (r Repo) LedgerTotals(ctx context.Context, accountID string) (credits, debits int64, err error) {
	if err = r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(points),0) FROM collection_history WHERE account_id=?`, accountID).Scan(&credits); err != nil {
		return 0, 0, err
	}
	if err = r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(cost),0) FROM redemption_history WHERE account_id=?`, accountID).Scan(&debits); err != nil {
		return 0, 0, err
	}
	return credits, debits, nil
}

// ClaimantsByWaste maps waste item ids to the account that collected them.
func (r Repo) ClaimantsByWaste(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT waste_item_id, account_id FROM collection_history`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]string{}
	for rows.Next() {
		var wasteID, accountID string
		if err := rows.Scan(&wasteID, &accountID); err != nil {
			return nil, err
		}
		res[wasteID] = accountID
	}
	return res, rows.Err()
}
