package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/db"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = min(minConns, maxConns)
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func postgresMigration() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS assets (\n\tid TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,\n")
	for _, col := range assetColumns() {
		fmt.Fprintf(&b, "\t%s TEXT NOT NULL DEFAULT '',\n", col)
	}
	b.WriteString(`	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assets_project_name ON assets(project_name);

CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind          TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'running',
	assets_total  INTEGER NOT NULL DEFAULT 0,
	assets_scored INTEGER NOT NULL DEFAULT 0,
	assets_na     INTEGER NOT NULL DEFAULT 0,
	config_hash   TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS asset_scores (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	asset_id    TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
	run_id      TEXT NOT NULL DEFAULT '',
	config_hash TEXT NOT NULL DEFAULT '',
	overall     DOUBLE PRECISION,
	rating      TEXT NOT NULL,
	status      TEXT NOT NULL,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_asset_scores_asset_created ON asset_scores(asset_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_asset_scores_run_id ON asset_scores(run_id);
`)
	return b.String()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration())
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Assets ---

func (s *PostgresStore) UpsertAssets(ctx context.Context, assets []model.AssetRecord) ([]model.AssetRecord, error) {
	assets = dedupeByName(assets)
	if len(assets) == 0 {
		return nil, nil
	}

	fields := assetColumns()
	cols := slices.Concat([]string{"id"}, fields, []string{"created_at", "updated_at"})
	update := append(slices.DeleteFunc(slices.Clone(fields), func(c string) bool { return c == "project_name" }), "updated_at")

	now := time.Now().UTC()
	rows := make([][]any, len(assets))
	names := make([]string, len(assets))
	for i, a := range assets {
		rows[i] = slices.Concat([]any{uuid.New().String()}, assetValues(a), []any{now, now})
		names[i] = a.ProjectName
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "assets",
		Columns:      cols,
		ConflictKeys: []string{"project_name"},
		UpdateCols:   update,
	}, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: upsert assets")
	}

	// Existing rows keep their IDs, so read back what the table holds.
	idRows, err := s.pool.Query(ctx, `SELECT id, project_name FROM assets WHERE project_name = ANY($1)`, names)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: read upserted ids")
	}
	ids := make(map[string]string, len(names))
	for idRows.Next() {
		var id, name string
		if err := idRows.Scan(&id, &name); err != nil {
			idRows.Close()
			return nil, eris.Wrap(err, "postgres: scan upserted id")
		}
		ids[name] = id
	}
	idRows.Close()
	if err := idRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: read upserted ids iterate")
	}

	out := make([]model.AssetRecord, len(assets))
	for i, a := range assets {
		a.ID = ids[a.ProjectName]
		out[i] = a
	}
	zap.L().Debug("store: upserted assets", zap.Int("count", len(out)))
	return out, nil
}

func (s *PostgresStore) ListAssets(ctx context.Context, filter AssetFilter) ([]model.AssetRecord, error) {
	query := `SELECT ` + assetSelectList() + ` FROM assets ORDER BY project_name`
	var args []any
	if filter.Limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assets")
	}
	defer rows.Close()

	var assets []model.AssetRecord
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan asset")
		}
		assets = append(assets, a)
	}
	return assets, eris.Wrap(rows.Err(), "postgres: list assets iterate")
}

func (s *PostgresStore) GetAsset(ctx context.Context, id string) (*model.AssetRecord, error) {
	a, err := scanAsset(s.pool.QueryRow(ctx, `SELECT `+assetSelectList()+` FROM assets WHERE id = $1`, id))
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: asset %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get asset %s", id)
	}
	return &a, nil
}

func (s *PostgresStore) DeleteAsset(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete asset %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: asset %s", id)
	}
	return nil
}

// --- Scores ---

func (s *PostgresStore) SaveScores(ctx context.Context, runID, configHash string, rows []ranking.Row) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		v, err := snapshotValues(r, runID, configHash, now)
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	n, err := db.CopyFrom(ctx, s.pool, "asset_scores", snapshotColumns, values)
	if err != nil {
		return eris.Wrap(err, "postgres: save scores")
	}
	zap.L().Info("store: saved scores", zap.String("run_id", runID), zap.Int64("count", n))
	return nil
}

func (s *PostgresStore) LatestScores(ctx context.Context) (map[string]ScoreSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (asset_id) asset_id, run_id, config_hash, status, result, created_at
		 FROM asset_scores ORDER BY asset_id, created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest scores")
	}
	defer rows.Close()

	out := make(map[string]ScoreSnapshot)
	for rows.Next() {
		var (
			snap       ScoreSnapshot
			resultJSON []byte
		)
		if err := rows.Scan(&snap.AssetID, &snap.RunID, &snap.ConfigHash, &snap.Status, &resultJSON, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		if err := json.Unmarshal(resultJSON, &snap.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal score result")
		}
		out[snap.AssetID] = snap
	}
	return out, eris.Wrap(rows.Err(), "postgres: latest scores iterate")
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error) {
	run := newRun(kind, source)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, source, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, string(run.Kind), run.Source, string(run.Status), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *model.Run) error {
	run.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, assets_total = $2, assets_scored = $3, assets_na = $4,
		 config_hash = $5, error = $6, updated_at = $7 WHERE id = $8`,
		string(run.Status), run.AssetsTotal, run.AssetsScored, run.AssetsNA,
		run.ConfigHash, run.Error, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, runSelect+` WHERE id = $1`, id))
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := runSelect + ` WHERE 1=1`
	var args []any
	argN := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argN)
		args = append(args, string(filter.Kind))
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argN)
	args = append(args, runLimit(filter.Limit))
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
