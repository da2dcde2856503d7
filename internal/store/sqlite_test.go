package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ingest"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
)

func TestNewSQLite_InvalidDSN(t *testing.T) {
	_, err := NewSQLite("/nonexistent/dir/subdir/test.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestNewSQLite_WALMode(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "wal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t).(*SQLiteStore)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_AssetTableHasEveryField(t *testing.T) {
	s := newTestSQLite(t).(*SQLiteStore)

	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('assets')`)
	require.NoError(t, err)
	defer rows.Close() //nolint:errcheck

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols[name] = true
	}
	require.NoError(t, rows.Err())

	for _, f := range ingest.Fields {
		assert.True(t, cols[f.Key], "missing column %s", f.Key)
	}
}

func TestSQLite_CloseAndReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.Migrate(ctx))
	saved, err := s1.UpsertAssets(ctx, []model.AssetRecord{{ProjectName: "Alpha", ISO: "PJM"}})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() }) //nolint:errcheck

	got, err := s2.GetAsset(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "PJM", got.ISO)
}

func TestSQLite_DeleteAssetCascadesScores(t *testing.T) {
	s := newTestSQLite(t).(*SQLiteStore)
	ctx := context.Background()

	saved, err := s.UpsertAssets(ctx, testAssets())
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO asset_scores (id, asset_id, rating, status, result) VALUES ('s1', ?, 'N/A', 'Unknown', '{}')`, saved[0].ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteAsset(ctx, saved[0].ID))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM asset_scores`).Scan(&n))
	assert.Zero(t, n)
}

type fakeResult struct {
	rowsAffected int64
	err          error
}

func (f *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (f *fakeResult) RowsAffected() (int64, error) { return f.rowsAffected, f.err }

var _ sql.Result = (*fakeResult)(nil)

func TestCheckRowsAffected(t *testing.T) {
	err := checkRowsAffected(&fakeResult{rowsAffected: 0}, "run", "abc-123")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "run abc-123")

	err = checkRowsAffected(&fakeResult{err: assert.AnError}, "run", "abc-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows affected")

	assert.NoError(t, checkRowsAffected(&fakeResult{rowsAffected: 1}, "run", "abc-123"))
}
