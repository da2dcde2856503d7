package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ingest"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/kpi"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/store"
)

const maxScoreBody = 1 << 20

// AssetDetail is one asset with its live score and narrative.
type AssetDetail struct {
	Asset        model.AssetRecord         `json:"asset"`
	Result       scoring.ScoreResult       `json:"result"`
	Status       scoring.Status            `json:"status"`
	Analysis     scoring.Analysis          `json:"analysis"`
	Transmission []model.TransmissionPoint `json:"transmission,omitempty"`
	Stored       *store.ScoreSnapshot      `json:"stored,omitempty"`
	Run          *model.Run                `json:"run,omitempty"`
	Unknown      []string                  `json:"unknown_fields,omitempty"`
}

// KPIResponse carries the KPI cards and the chart rollups.
type KPIResponse struct {
	Summary kpi.Summary `json:"summary"`
	ByISO   []kpi.Group `json:"by_iso"`
	ByTech  []kpi.Group `json:"by_tech"`
	ByOwner []kpi.Group `json:"by_owner"`
}

type columnInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseView maps query parameters onto a View. sort names a column key and
// dir is asc or desc (asc when omitted).
func parseView(q url.Values) (ranking.View, error) {
	v := ranking.View{
		ProjectType: q.Get("project_type"),
		Rating:      q.Get("rating"),
		ISO:         q.Get("iso"),
		Process:     q.Get("process"),
		Owner:       q.Get("owner"),
		Tech:        q.Get("tech"),
		Search:      q.Get("search"),
	}

	col := q.Get("sort")
	if col == "" {
		return v, nil
	}
	if _, ok := ranking.LookupColumn(col); !ok {
		return v, eris.Errorf("unknown sort column %q", col)
	}
	dir := ranking.Direction(strings.ToLower(q.Get("dir")))
	switch dir {
	case ranking.DirNone:
		dir = ranking.DirAsc
	case ranking.DirAsc, ranking.DirDesc:
	default:
		return v, eris.Errorf("invalid sort direction %q", q.Get("dir"))
	}
	v.Sort = ranking.SortState{Column: col, Direction: dir}
	return v, nil
}

// rows loads every stored asset and scores it with the server's calculator.
func (s *Server) rows(r *http.Request) ([]ranking.Row, error) {
	assets, err := s.store.ListAssets(r.Context(), store.AssetFilter{})
	if err != nil {
		return nil, err
	}
	return ranking.NewRows(assets, s.calc, s.year), nil
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.rows(r)
	if err != nil {
		writeStoreError(w, err, "list assets")
		return
	}
	filtered := ranking.Apply(rows, view)

	writeJSON(w, http.StatusOK, map[string]any{
		"total": len(rows),
		"count": len(filtered),
		"view":  view,
		"rows":  filtered,
	})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.store.GetAsset(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "get asset")
		return
	}

	res := s.calc.ScoreAsset(*a)
	detail := AssetDetail{
		Asset:        *a,
		Result:       res,
		Status:       scoring.CalculateStatus(a.LegacyCOD, a.RedevCOD, s.year),
		Analysis:     scoring.Analyze(*a, res),
		Transmission: model.ParseTransmission(a.Transmission),
	}

	latest, err := s.store.LatestScores(r.Context())
	if err != nil {
		writeStoreError(w, err, "load stored scores")
		return
	}
	if snap, ok := latest[a.ID]; ok {
		detail.Stored = &snap
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err, "delete asset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeAttributes reads a JSON object of raw asset attributes.
func decodeAttributes(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScoreBody))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil || values == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return values, true
}

// handleScore scores raw attributes without persisting them. Keys may be
// field keys or spreadsheet headers; unrecognized keys are echoed back.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	values, ok := decodeAttributes(w, r)
	if !ok {
		return
	}

	a, unknown := ingest.MapRecord(values)
	res := s.calc.ScoreAsset(a)
	writeJSON(w, http.StatusOK, AssetDetail{
		Asset:    a,
		Result:   res,
		Status:   scoring.CalculateStatus(a.LegacyCOD, a.RedevCOD, s.year),
		Analysis: scoring.Analyze(a, res),
		Unknown:  unknown,
	})
}

// handleCreateAsset adds a new asset. A project name already in the store
// is a conflict; use PUT or PATCH to change it.
func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	if s.saver == nil {
		writeError(w, http.StatusNotImplemented, "asset editing is not enabled")
		return
	}
	values, ok := decodeAttributes(w, r)
	if !ok {
		return
	}

	a, unknown := ingest.MapRecord(values)
	if a.ProjectName == "" {
		writeError(w, http.StatusBadRequest, "project_name is required")
		return
	}
	existing, err := s.store.ListAssets(r.Context(), store.AssetFilter{})
	if err != nil {
		writeStoreError(w, err, "list assets")
		return
	}
	for _, e := range existing {
		if e.ProjectName == a.ProjectName {
			writeError(w, http.StatusConflict, "project "+a.ProjectName+" already exists")
			return
		}
	}

	s.saveAsset(w, r, a, unknown, http.StatusCreated)
}

// handleReplaceAsset overwrites every attribute of an asset. Omitted fields
// are cleared.
func (s *Server) handleReplaceAsset(w http.ResponseWriter, r *http.Request) {
	s.editAsset(w, r, func(_ model.AssetRecord, values map[string]any) (model.AssetRecord, []string) {
		return ingest.MapRecord(values)
	})
}

// handlePatchAsset changes only the attributes present in the body.
func (s *Server) handlePatchAsset(w http.ResponseWriter, r *http.Request) {
	s.editAsset(w, r, func(current model.AssetRecord, values map[string]any) (model.AssetRecord, []string) {
		unknown := ingest.ApplyRecord(&current, values)
		return current, unknown
	})
}

// editAsset loads the asset named in the path, applies the body with
// apply and saves it. Assets are keyed by project name, so renaming is
// rejected.
func (s *Server) editAsset(w http.ResponseWriter, r *http.Request, apply func(model.AssetRecord, map[string]any) (model.AssetRecord, []string)) {
	if s.saver == nil {
		writeError(w, http.StatusNotImplemented, "asset editing is not enabled")
		return
	}
	current, err := s.store.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "get asset")
		return
	}
	values, ok := decodeAttributes(w, r)
	if !ok {
		return
	}

	a, unknown := apply(*current, values)
	if a.ProjectName == "" {
		a.ProjectName = current.ProjectName
	}
	if a.ProjectName != current.ProjectName {
		writeError(w, http.StatusConflict, "project_name cannot be changed")
		return
	}
	a.ID = current.ID

	s.saveAsset(w, r, a, unknown, http.StatusOK)
}

func (s *Server) saveAsset(w http.ResponseWriter, r *http.Request, a model.AssetRecord, unknown []string, status int) {
	run, row, err := s.saver.SaveAsset(r.Context(), a)
	if err != nil {
		zap.L().Error("api: save asset", zap.String("project", a.ProjectName), zap.Error(err))
		if run != nil {
			writeJSON(w, http.StatusInternalServerError, run)
			return
		}
		writeError(w, http.StatusInternalServerError, "save asset failed")
		return
	}

	writeJSON(w, status, AssetDetail{
		Asset:        row.Asset,
		Result:       row.Result,
		Status:       row.Status,
		Analysis:     scoring.Analyze(row.Asset, row.Result),
		Transmission: model.ParseTransmission(row.Asset.Transmission),
		Run:          run,
		Unknown:      unknown,
	})
}

// handleKPIs summarizes the rows that pass the same filters as /api/assets.
func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.rows(r)
	if err != nil {
		writeStoreError(w, err, "list assets")
		return
	}
	rows = ranking.Apply(rows, view)

	writeJSON(w, http.StatusOK, KPIResponse{
		Summary: kpi.Summarize(rows, s.year),
		ByISO:   kpi.ByISO(rows),
		ByTech:  kpi.ByTech(rows),
		ByOwner: kpi.ByOwner(rows),
	})
}

func (s *Server) handleColumns(w http.ResponseWriter, _ *http.Request) {
	cols := make([]columnInfo, len(ranking.Columns))
	for i, c := range ranking.Columns {
		cols[i] = columnInfo{Key: c.Key, Label: c.Label}
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := s.calc.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"config": cfg,
		"hash":   cfg.Hash(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Kind:   model.RunKind(q.Get("kind")),
		Status: model.RunStatus(q.Get("status")),
	}
	var err error
	if filter.Limit, err = intParam(q, "limit"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = intParam(q, "offset"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err, "list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRecalc(w http.ResponseWriter, r *http.Request) {
	if s.recalc == nil {
		writeError(w, http.StatusNotImplemented, "recalculation is not enabled")
		return
	}
	run, err := s.recalc.Recalc(r.Context())
	if err != nil {
		zap.L().Error("api: recalc", zap.Error(err))
		if run != nil {
			writeJSON(w, http.StatusInternalServerError, run)
			return
		}
		writeError(w, http.StatusInternalServerError, "recalc failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func intParam(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}
