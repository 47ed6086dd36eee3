package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ecosort/internal/db"
)

func TestMigrateIsRepeatable(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	latest, err := Latest()
	require.NoError(t, err)
	require.Equal(t, 1, latest)

	v, err := Migrate(ctx, conn)
	require.NoError(t, err)
	require.Equal(t, latest, v)

	v, err = Migrate(ctx, conn)
	require.NoError(t, err)
	require.Equal(t, latest, v)

	for _, table := range []string{"accounts", "waste_items", "collection_history", "redemption_history", "awards", "events", "role_pages"} {
		var name string
		err := conn.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}
