// Package pipeline runs imports and score recalculations against the store.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ingest"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/metrics"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/store"
)

const (
	defaultChunkSize   = 250
	defaultConcurrency = 4
)

// Pipeline scores assets with one Calculator and records each pass as a run.
type Pipeline struct {
	store       store.Store
	calc        scoring.Calculator
	year        int
	chunkSize   int
	concurrency int
}

// Option tunes a Pipeline.
type Option func(*Pipeline)

// WithChunkSize sets how many assets each scoring goroutine handles.
func WithChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithConcurrency caps the number of scoring goroutines.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New creates a Pipeline. currentYear drives the Operating/Future status.
func New(st store.Store, calc scoring.Calculator, currentYear int, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       st,
		calc:        calc,
		year:        currentYear,
		chunkSize:   defaultChunkSize,
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Score computes rows for assets, fanning chunks out across goroutines.
// Row order matches asset order.
func (p *Pipeline) Score(ctx context.Context, assets []model.AssetRecord) ([]ranking.Row, error) {
	rows := make([]ranking.Row, len(assets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for start := 0; start < len(assets); start += p.chunkSize {
		end := min(start+p.chunkSize, len(assets))
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			copy(rows[start:end], ranking.NewRows(assets[start:end], p.calc, p.year))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: score")
	}
	return rows, nil
}

// Import loads src (a local path or ftp:// URL), upserts its assets and
// snapshots their scores.
func (p *Pipeline) Import(ctx context.Context, src string, opts ingest.Options) (*model.Run, error) {
	run, err := p.store.CreateRun(ctx, model.RunKindImport, src)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create import run")
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("src", src))
	start := time.Now()

	res, err := ingest.LoadFile(ctx, src, opts)
	if err != nil {
		return run, p.fail(ctx, run, eris.Wrap(err, "pipeline: load import"))
	}
	if res.Skipped > 0 {
		log.Warn("pipeline: skipped rows without a project name", zap.Int("skipped", res.Skipped))
	}

	saved, err := p.store.UpsertAssets(ctx, res.Assets)
	if err != nil {
		return run, p.fail(ctx, run, eris.Wrap(err, "pipeline: upsert assets"))
	}
	metrics.AssetsImportedTotal.Add(float64(len(saved)))

	if _, err := p.scoreAndSave(ctx, run, saved); err != nil {
		return run, p.fail(ctx, run, err)
	}

	log.Info("import complete",
		zap.Int("assets", run.AssetsTotal),
		zap.Int("scored", run.AssetsScored),
		zap.Int("na", run.AssetsNA),
		zap.Duration("elapsed", time.Since(start)),
	)
	return run, nil
}

// Recalc rescores every stored asset with the current config.
func (p *Pipeline) Recalc(ctx context.Context) (*model.Run, error) {
	run, err := p.store.CreateRun(ctx, model.RunKindRecalc, "")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create recalc run")
	}
	start := time.Now()

	assets, err := p.store.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return run, p.fail(ctx, run, eris.Wrap(err, "pipeline: list assets"))
	}

	if _, err := p.scoreAndSave(ctx, run, assets); err != nil {
		return run, p.fail(ctx, run, err)
	}

	zap.L().Info("recalc complete",
		zap.String("run_id", run.ID),
		zap.Int("assets", run.AssetsTotal),
		zap.Int("scored", run.AssetsScored),
		zap.Int("na", run.AssetsNA),
		zap.Duration("elapsed", time.Since(start)),
	)
	return run, nil
}

// SaveAsset upserts one asset by project name and snapshots its score in an
// edit run. The returned row carries the stored asset ID.
func (p *Pipeline) SaveAsset(ctx context.Context, a model.AssetRecord) (*model.Run, ranking.Row, error) {
	if a.ProjectName == "" {
		return nil, ranking.Row{}, eris.New("pipeline: asset has no project name")
	}
	run, err := p.store.CreateRun(ctx, model.RunKindEdit, a.ProjectName)
	if err != nil {
		return nil, ranking.Row{}, eris.Wrap(err, "pipeline: create edit run")
	}

	saved, err := p.store.UpsertAssets(ctx, []model.AssetRecord{a})
	if err != nil {
		return run, ranking.Row{}, p.fail(ctx, run, eris.Wrap(err, "pipeline: upsert asset"))
	}

	rows, err := p.scoreAndSave(ctx, run, saved)
	if err != nil {
		return run, ranking.Row{}, p.fail(ctx, run, err)
	}

	zap.L().Info("asset saved",
		zap.String("run_id", run.ID),
		zap.String("asset_id", rows[0].Asset.ID),
		zap.String("project", a.ProjectName),
		zap.String("rating", string(rows[0].Result.Rating)),
	)
	return run, rows[0], nil
}

func (p *Pipeline) scoreAndSave(ctx context.Context, run *model.Run, assets []model.AssetRecord) ([]ranking.Row, error) {
	rows, err := p.Score(ctx, assets)
	if err != nil {
		return nil, err
	}

	hash := p.calc.Config().Hash()
	if err := p.store.SaveScores(ctx, run.ID, hash, rows); err != nil {
		return nil, eris.Wrap(err, "pipeline: save scores")
	}

	run.AssetsTotal = len(rows)
	run.AssetsScored, run.AssetsNA = 0, 0
	for _, r := range rows {
		if r.Result.OverallScore.Valid {
			run.AssetsScored++
		} else {
			run.AssetsNA++
		}
		metrics.ObserveScores(r.Result)
	}
	run.ConfigHash = hash
	run.Status = model.RunStatusComplete

	if err := p.store.UpdateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "pipeline: update run")
	}
	metrics.RunsTotal.WithLabelValues(string(run.Kind), string(run.Status)).Inc()
	return rows, nil
}

// fail marks run failed and returns cause. The status write uses a fresh
// context so a cancelled run is still recorded.
func (p *Pipeline) fail(ctx context.Context, run *model.Run, cause error) error {
	run.Status = model.RunStatusFailed
	run.Error = cause.Error()
	metrics.RunsTotal.WithLabelValues(string(run.Kind), string(run.Status)).Inc()

	updCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.store.UpdateRun(updCtx, run); err != nil {
		zap.L().Error("pipeline: record failed run", zap.String("run_id", run.ID), zap.Error(err))
	}
	return cause
}
