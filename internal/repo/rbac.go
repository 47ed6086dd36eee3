package repo

import (
	"context"
	"database/sql"

	"ecosort/internal/domain"
)

func (r Repo) UpsertRole(ctx context.Context, tx *sql.Tx, id, name, desc string) error {
	if name == "" {
		name = id
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO roles(id, role_name, description) VALUES (?,?,?)
ON CONFLICT(id) DO UPDATE SET role_name=excluded.role_name, description=excluded.description`, id, name, nullable(desc))
	return err
}

func (r Repo) InsertPage(ctx context.Context, tx *sql.Tx, id, desc string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO pages(id, description) VALUES (?,?)`, id, nullable(desc))
	return err
}

func (r Repo) GrantPage(ctx context.Context, tx *sql.Tx, roleID, pageID string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO role_pages(role_id, page_id) VALUES (?,?)`, roleID, pageID)
	return err
}

func (r Repo) RevokePages(ctx context.Context, tx *sql.Tx, roleID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM role_pages WHERE role_id=?`, roleID)
	return err
}

// ListRoles returns every role with its accessible pages.
func (r Repo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, role_name, COALESCE(description,'') FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			rows.Close()
			return nil, err
		}
		roles = append(roles, role)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range roles {
		pages, err := r.RolePages(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Pages = pages
	}
	return roles, nil
}

func (r Repo) RolePages(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT page_id FROM role_pages WHERE role_id=? ORDER BY page_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pages := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
