package repo

import (
	"context"
	"database/sql"
	"errors"

	"ecosort/internal/domain"
)

func scanAward(row interface{ Scan(...any) error }) (domain.Award, error) {
	var a domain.Award
	err := row.Scan(&a.ID, &a.Name, &a.Cost, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) GetAward(ctx context.Context, id string) (domain.Award, error) {
	a, err := scanAward(r.DB.QueryRowContext(ctx, `SELECT id,name,cost,created_at,updated_at FROM awards WHERE id=?`, id))
	if errors.Is(err, ErrNotFound) {
		return a, domain.NotFoundError{Kind: "award", ID: id}
	}
	return a, err
}

func (r Repo) ListAwards(ctx context.Context) ([]domain.Award, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,cost,created_at,updated_at FROM awards ORDER BY cost, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Award
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) InsertAwardTx(ctx context.Context, tx *sql.Tx, a domain.Award) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO awards(id,name,cost,created_at,updated_at) VALUES (?,?,?,?,?)`,
		a.ID, a.Name, a.Cost, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) UpdateAwardTx(ctx context.Context, tx *sql.Tx, a domain.Award) error {
	res, err := tx.ExecContext(ctx, `UPDATE awards SET name=?, cost=?, updated_at=? WHERE id=?`, a.Name, a.Cost, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Kind: "award", ID: a.ID}
	}
	return nil
}

func (r Repo) DeleteAwardTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM awards WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Kind: "award", ID: id}
	}
	return nil
}
