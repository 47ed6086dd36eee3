package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Actor is the authenticated caller as resolved by the transport.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// ForbiddenError indicates the actor's role cannot open a page.
type ForbiddenError struct {
	Page string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("access to page %s required", e.Page)
}

// Service answers page-access questions from the role_pages table.
type Service struct {
	DB *sql.DB
}

func (s Service) RoleCanAccess(ctx context.Context, roleID, page string) (bool, error) {
	if roleID == "" {
		return false, nil
	}
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM role_pages WHERE role_id=? AND page_id=? LIMIT 1`, roleID, page).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Require returns ForbiddenError unless roleID grants page.
func (s Service) Require(ctx context.Context, roleID, page string) error {
	ok, err := s.RoleCanAccess(ctx, roleID, page)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError{Page: page}
	}
	return nil
}

func (s Service) RolePages(ctx context.Context, roleID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT page_id FROM role_pages WHERE role_id=? ORDER BY page_id`, roleID)
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
