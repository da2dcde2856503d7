// Package store persists asset records, score snapshots and run history.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ingest"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
)

// ErrNotFound is returned (wrapped) when an asset or run does not exist.
var ErrNotFound = eris.New("store: not found")

// Store is the persistence collaborator behind the dashboard. Assets are
// keyed by project name: re-importing a workbook updates rows in place and
// keeps their IDs.
type Store interface {
	UpsertAssets(ctx context.Context, assets []model.AssetRecord) ([]model.AssetRecord, error)
	ListAssets(ctx context.Context, filter AssetFilter) ([]model.AssetRecord, error)
	GetAsset(ctx context.Context, id string) (*model.AssetRecord, error)
	DeleteAsset(ctx context.Context, id string) error

	// SaveScores appends one snapshot per row, tagged with the run and the
	// hash of the scoring config that produced it.
	SaveScores(ctx context.Context, runID, configHash string, rows []ranking.Row) error
	// LatestScores returns the most recent snapshot per asset ID.
	LatestScores(ctx context.Context) (map[string]ScoreSnapshot, error)

	CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error)
	UpdateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// AssetFilter pages through assets ordered by project name.
type AssetFilter struct {
	Limit  int // 0 means no limit
	Offset int
}

// RunFilter controls which runs are returned by ListRuns.
type RunFilter struct {
	Kind   model.RunKind
	Status model.RunStatus
	Limit  int // default 100
	Offset int
}

// ScoreSnapshot is one persisted scoring of an asset.
type ScoreSnapshot struct {
	AssetID    string              `json:"asset_id"`
	RunID      string              `json:"run_id"`
	ConfigHash string              `json:"config_hash"`
	Result     scoring.ScoreResult `json:"result"`
	Status     scoring.Status      `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Config selects and tunes the backing database.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Open connects to the configured database. It does not migrate.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "dashboard.db"
		}
		return NewSQLite(dsn)
	case "postgres", "postgresql":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// assetColumns are the per-field text columns of the assets table, in
// ingest.Fields order.
func assetColumns() []string {
	cols := make([]string, len(ingest.Fields))
	for i, f := range ingest.Fields {
		cols[i] = f.Key
	}
	return cols
}

// assetValues returns a's field values in assetColumns order.
func assetValues(a model.AssetRecord) []any {
	vals := make([]any, len(ingest.Fields))
	for i, f := range ingest.Fields {
		vals[i] = f.Get(a)
	}
	return vals
}

// dedupeByName keeps the last record for each project name and drops
// records without one. Order of first appearance is preserved.
func dedupeByName(assets []model.AssetRecord) []model.AssetRecord {
	pos := make(map[string]int, len(assets))
	out := make([]model.AssetRecord, 0, len(assets))
	for _, a := range assets {
		a.ProjectName = strings.TrimSpace(a.ProjectName)
		if a.ProjectName == "" {
			continue
		}
		if i, ok := pos[a.ProjectName]; ok {
			out[i] = a
			continue
		}
		pos[a.ProjectName] = len(out)
		out = append(out, a)
	}
	return out
}

type scannable interface {
	Scan(dest ...any) error
}

// scanAsset reads "id, <asset columns>, created_at, updated_at".
func scanAsset(row scannable) (model.AssetRecord, error) {
	var a model.AssetRecord
	vals := make([]string, len(ingest.Fields))

	dest := make([]any, 0, len(vals)+3)
	dest = append(dest, &a.ID)
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	dest = append(dest, &a.CreatedAt, &a.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return a, err
	}
	for i, f := range ingest.Fields {
		f.Set(&a, vals[i])
	}
	return a, nil
}

func assetSelectList() string {
	return "id, " + strings.Join(assetColumns(), ", ") + ", created_at, updated_at"
}

func runLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

const runSelect = `SELECT id, kind, source, status, assets_total, assets_scored, assets_na,
	config_hash, error, created_at, updated_at FROM runs`

func newRun(kind model.RunKind, source string) *model.Run {
	now := time.Now().UTC()
	return &model.Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	err := row.Scan(&r.ID, &r.Kind, &r.Source, &r.Status, &r.AssetsTotal, &r.AssetsScored,
		&r.AssetsNA, &r.ConfigHash, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// snapshotColumns is the column order produced by snapshotValues.
var snapshotColumns = []string{"id", "asset_id", "run_id", "config_hash", "overall", "rating", "status", "result", "created_at"}

func snapshotValues(r ranking.Row, runID, configHash string, at time.Time) ([]any, error) {
	if r.Asset.ID == "" {
		return nil, eris.Errorf("store: score for %q has no asset id", r.Asset.ProjectName)
	}
	resultJSON, err := json.Marshal(r.Result)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal score result")
	}

	var overall any
	if r.Result.OverallScore.Valid {
		overall = r.Result.OverallScore.Value
	}
	return []any{
		uuid.New().String(), r.Asset.ID, runID, configHash,
		overall, string(r.Result.Rating), string(r.Status), string(resultJSON), at,
	}, nil
}
