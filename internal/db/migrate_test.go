package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/PeterWorld816/movieapi/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_create_users.sql", "00002_create_movies.sql"}, names)
}

func TestMigrate_RunsGooseFromRoot(t *testing.T) {
	// pgxpool connects lazily, so no server is needed here.
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	orig := upContext
	t.Cleanup(func() { upContext = orig })

	var gotDir string
	upContext = func(_ context.Context, db *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		require.NotNil(t, db)
		gotDir = dir
		return nil
	}

	require.NoError(t, Migrate(context.Background(), pool))
	assert.Equal(t, ".", gotDir)

	upContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.ErrorContains(t, Migrate(context.Background(), pool), "boom")
}
