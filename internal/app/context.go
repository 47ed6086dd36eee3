package app

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"ecosort/internal/config"
	"ecosort/internal/db"
	"ecosort/internal/migrate"
	"ecosort/internal/repo"
)

// SeedAccess upserts the roles of cfg and replaces their page grants so the
// database mirrors the configuration.
func SeedAccess(ctx context.Context, r repo.Repo, cfg *config.Config) error {
	roleIDs := make([]string, 0, len(cfg.Roles))
	for id := range cfg.Roles {
		roleIDs = append(roleIDs, id)
	}
	sort.Strings(roleIDs)
	return r.RunInTx(ctx, func(tx *sql.Tx) error {
		for _, id := range roleIDs {
			role := cfg.Roles[id]
			if err := r.UpsertRole(ctx, tx, id, role.Name, role.Description); err != nil {
				return fmt.Errorf("upsert role %s: %w", id, err)
			}
			if err := r.RevokePages(ctx, tx, id); err != nil {
				return fmt.Errorf("revoke pages of %s: %w", id, err)
			}
			for _, page := range role.Pages {
				if err := r.InsertPage(ctx, tx, page, ""); err != nil {
					return fmt.Errorf("insert page %s: %w", page, err)
				}
				if err := r.GrantPage(ctx, tx, id, page); err != nil {
					return fmt.Errorf("grant %s to %s: %w", page, id, err)
				}
			}
		}
		return nil
	})
}

// Open opens the workspace database, applies migrations and seeds access
// control from cfg.
func Open(ctx context.Context, dbCfg db.Config, cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(dbCfg)
	if err != nil {
		return nil, err
	}
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := SeedAccess(ctx, repo.Repo{DB: conn}, cfg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("seed access: %w", err)
	}
	return conn, nil
}
