package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteMigration() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS assets (\n\tid TEXT PRIMARY KEY,\n")
	for _, col := range assetColumns() {
		fmt.Fprintf(&b, "\t%s TEXT NOT NULL DEFAULT '',\n", col)
	}
	b.WriteString(`	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assets_project_name ON assets(project_name);

CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'running',
	assets_total  INTEGER NOT NULL DEFAULT 0,
	assets_scored INTEGER NOT NULL DEFAULT 0,
	assets_na     INTEGER NOT NULL DEFAULT 0,
	config_hash   TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS asset_scores (
	id          TEXT PRIMARY KEY,
	asset_id    TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
	run_id      TEXT NOT NULL DEFAULT '',
	config_hash TEXT NOT NULL DEFAULT '',
	overall     REAL,
	rating      TEXT NOT NULL,
	status      TEXT NOT NULL,
	result      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_asset_scores_asset_id ON asset_scores(asset_id);
CREATE INDEX IF NOT EXISTS idx_asset_scores_run_id ON asset_scores(run_id);
`)
	return b.String()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration())
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Assets ---

func (s *SQLiteStore) UpsertAssets(ctx context.Context, assets []model.AssetRecord) ([]model.AssetRecord, error) {
	assets = dedupeByName(assets)
	if len(assets) == 0 {
		return nil, nil
	}

	cols := assetColumns()
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = excluded." + c
	}
	query := fmt.Sprintf(
		`INSERT INTO assets (id, %s, created_at, updated_at) VALUES (?%s, ?, ?)
		 ON CONFLICT(project_name) DO UPDATE SET %s, updated_at = excluded.updated_at
		 RETURNING id`,
		strings.Join(cols, ", "),
		strings.Repeat(", ?", len(cols)),
		strings.Join(sets, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.AssetRecord, len(assets))
	for i, a := range assets {
		args := append([]any{uuid.New().String()}, assetValues(a)...)
		args = append(args, now, now)
		if err := stmt.QueryRowContext(ctx, args...).Scan(&a.ID); err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert asset %q", a.ProjectName)
		}
		out[i] = a
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit upsert")
	}
	zap.L().Debug("store: upserted assets", zap.Int("count", len(out)))
	return out, nil
}

func (s *SQLiteStore) ListAssets(ctx context.Context, filter AssetFilter) ([]model.AssetRecord, error) {
	query := `SELECT ` + assetSelectList() + ` FROM assets ORDER BY project_name`
	var args []any
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assets")
	}
	defer rows.Close() //nolint:errcheck

	var assets []model.AssetRecord
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan asset")
		}
		assets = append(assets, a)
	}
	return assets, eris.Wrap(rows.Err(), "sqlite: list assets iterate")
}

func (s *SQLiteStore) GetAsset(ctx context.Context, id string) (*model.AssetRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetSelectList()+` FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: asset %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get asset %s", id)
	}
	return &a, nil
}

// DeleteAsset removes the asset and its score history. foreign_keys is a
// per-connection pragma, so the cascade is not left to SQLite.
func (s *SQLiteStore) DeleteAsset(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete asset")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_scores WHERE asset_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete scores for asset %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete asset %s", id)
	}
	if err := checkRowsAffected(res, "asset", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete asset")
}

// --- Scores ---

func (s *SQLiteStore) SaveScores(ctx context.Context, runID, configHash string, rows []ranking.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save scores")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO asset_scores (id, asset_id, run_id, config_hash, overall, rating, status, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save scores")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range rows {
		vals, err := snapshotValues(r, runID, configHash, now)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return eris.Wrapf(err, "sqlite: insert score for asset %s", r.Asset.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit save scores")
	}
	zap.L().Info("store: saved scores", zap.String("run_id", runID), zap.Int("count", len(rows)))
	return nil
}

func (s *SQLiteStore) LatestScores(ctx context.Context) (map[string]ScoreSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.asset_id, s.run_id, s.config_hash, s.status, s.result, s.created_at
		 FROM asset_scores s
		 WHERE s.rowid = (
			SELECT s2.rowid FROM asset_scores s2
			WHERE s2.asset_id = s.asset_id
			ORDER BY s2.rowid DESC LIMIT 1
		 )`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest scores")
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]ScoreSnapshot)
	for rows.Next() {
		var (
			snap       ScoreSnapshot
			resultJSON string
		)
		if err := rows.Scan(&snap.AssetID, &snap.RunID, &snap.ConfigHash, &snap.Status, &resultJSON, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		if err := json.Unmarshal([]byte(resultJSON), &snap.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal score result")
		}
		out[snap.AssetID] = snap
	}
	return out, eris.Wrap(rows.Err(), "sqlite: latest scores iterate")
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error) {
	run := newRun(kind, source)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Source, string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	run.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, assets_total = ?, assets_scored = ?, assets_na = ?,
		 config_hash = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(run.Status), run.AssetsTotal, run.AssetsScored, run.AssetsNA,
		run.ConfigHash, run.Error, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, runSelect+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := runSelect + ` WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, runLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", entity, id)
	}
	return nil
}
