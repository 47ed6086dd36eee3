package repo

import (
	"context"
	"database/sql"
	"errors"

	"ecosort/internal/domain"
)

const accountColumns = `id,COALESCE(email,''),username,role_id,points,verified,created_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.RoleID, &a.Points, &a.Verified, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func getAccount(ctx context.Context, q querier, id string) (domain.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=?`, id))
	if errors.Is(err, ErrNotFound) {
		return a, domain.NotFoundError{Kind: "account", ID: id}
	}
	return a, err
}

func (r Repo) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	return getAccount(ctx, r.DB, id)
}

func (r Repo) GetAccountTx(ctx context.Context, tx *sql.Tx, id string) (domain.Account, error) {
	return getAccount(ctx, tx, id)
}

func (r Repo) InsertAccount(ctx context.Context, a domain.Account) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO accounts(id,email,username,role_id,points,verified,created_at) VALUES (?,?,?,?,?,?,?)`,
		a.ID, nullable(a.Email), a.Username, a.RoleID, a.Points, a.Verified, a.CreatedAt)
	return err
}

// CompareAndSetPointsTx writes next only if the stored balance still equals
// prev. It reports whether the row was updated.
func (r Repo) CompareAndSetPointsTx(ctx context.Context, tx *sql.Tx, id string, prev, next int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET points=? WHERE id=? AND points=?`, next, id, prev)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListAccountsByRoles returns verified accounts whose role is in roles,
// ordered by id.
func (r Repo) ListAccountsByRoles(ctx context.Context, roles []string) ([]domain.Account, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(roles))
	for _, role := range roles {
		args = append(args, role)
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE verified=1 AND role_id IN (`+placeholders(len(roles))+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// UsernamesByID resolves display names for the given account ids.
func (r Repo) UsernamesByID(ctx context.Context, ids []string) (map[string]string, error) {
	res := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,username FROM accounts WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		res[id] = name
	}
	return res, rows.Err()
}
