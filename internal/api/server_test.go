package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/pipeline"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/store"
)

type fakeRecalcer struct {
	run *model.Run
	err error
}

func (f fakeRecalcer) Recalc(context.Context) (*model.Run, error) { return f.run, f.err }

func seedAssets() []model.AssetRecord {
	return []model.AssetRecord{
		{
			ProjectName: "Roseton", PlantOwner: "Danskammer", ISO: "NYISO", Tech: "ST",
			CapacityMW: "1200", LegacyCOD: "1974", Transactability: "1", EnvironmentalScore: "2",
			ThermalOptimization: "1", MarketScore: "3", LandAvailability: "2", Utilities: "2", IX: "3",
			ProjectType: "Redev", ProcessType: "P", Transmission: "69 kV|143.9|144.2|-|true;138 kV|549.5|95.5|N-1|false",
		},
		{
			ProjectName: "Brandon Shores", PlantOwner: "Talen", ISO: "PJM", Tech: "ST",
			LegacyCOD: "#N/A", Transactability: "2", ProjectType: "M&A", ProcessType: "B",
		},
		{
			ProjectName: "Alpha", PlantOwner: "Vistra", ISO: "ERCOT", Tech: "CCGT",
			CapacityMW: "600", LegacyCOD: "2005", Transactability: "3", MarketScore: "1",
			LandAvailability: "1", Utilities: "1", IX: "1", ProjectType: "Redev, M&A", ProcessType: "P",
		},
	}
}

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, store.Store, []model.AssetRecord) {
	t.Helper()
	return newTestServerWith(t, func(store.Store) []Option { return opts })
}

// newTestServerWith builds options that need the seeded store.
func newTestServerWith(t *testing.T, options func(store.Store) []Option) (*httptest.Server, store.Store, []model.AssetRecord) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	saved, err := st.UpsertAssets(context.Background(), seedAssets())
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(st, scoring.NewCalculator(scoring.DefaultConfig()), 2025, options(st)...).Router())
	t.Cleanup(srv.Close)
	return srv, st, saved
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

type listResponse struct {
	Total int `json:"total"`
	Count int `json:"count"`
	Rows  []struct {
		Asset  model.AssetRecord `json:"asset"`
		Result struct {
			OverallScore *float64 `json:"overall_score"`
			Rating       string   `json:"rating"`
		} `json:"result"`
		Status string `json:"status"`
	} `json:"rows"`
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListAssets(t *testing.T) {
	srv, _, _ := newTestServer(t)

	t.Run("all rows", func(t *testing.T) {
		var body listResponse
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/assets", &body))
		assert.Equal(t, 3, body.Total)
		assert.Equal(t, 3, body.Count)
	})

	t.Run("filter by iso", func(t *testing.T) {
		var body listResponse
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/assets?iso=PJM", &body))
		require.Len(t, body.Rows, 1)
		assert.Equal(t, "Brandon Shores", body.Rows[0].Asset.ProjectName)
		assert.Nil(t, body.Rows[0].Result.OverallScore)
		assert.Equal(t, "N/A", body.Rows[0].Result.Rating)
	})

	t.Run("sort overall desc puts missing last", func(t *testing.T) {
		var body listResponse
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/assets?sort=overall&dir=desc", &body))
		require.Len(t, body.Rows, 3)
		require.NotNil(t, body.Rows[0].Result.OverallScore)
		require.NotNil(t, body.Rows[1].Result.OverallScore)
		assert.GreaterOrEqual(t, *body.Rows[0].Result.OverallScore, *body.Rows[1].Result.OverallScore)
		assert.Nil(t, body.Rows[2].Result.OverallScore)
	})

	t.Run("search", func(t *testing.T) {
		var body listResponse
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/assets?search=roset", &body))
		require.Len(t, body.Rows, 1)
		assert.Equal(t, "Roseton", body.Rows[0].Asset.ProjectName)
	})

	for _, q := range []string{"sort=nope", "sort=overall&dir=sideways"} {
		t.Run("bad "+q, func(t *testing.T) {
			var body map[string]string
			assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/assets?"+q, &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetAsset(t *testing.T) {
	srv, st, saved := newTestServer(t)
	ctx := context.Background()

	var roseton model.AssetRecord
	for _, a := range saved {
		if a.ProjectName == "Roseton" {
			roseton = a
		}
	}
	require.NotEmpty(t, roseton.ID)

	run, err := st.CreateRun(ctx, model.RunKindRecalc, "")
	require.NoError(t, err)
	require.NoError(t, st.SaveScores(ctx, run.ID, "hash", ranking.NewRows([]model.AssetRecord{roseton}, scoring.NewCalculator(scoring.DefaultConfig()), 2025)))

	var detail struct {
		Asset    model.AssetRecord `json:"asset"`
		Status   string            `json:"status"`
		Analysis scoring.Analysis  `json:"analysis"`
		Stored   *struct {
			RunID string `json:"run_id"`
		} `json:"stored"`
		Transmission []model.TransmissionPoint `json:"transmission"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/assets/"+roseton.ID, &detail))
	assert.Equal(t, "Roseton", detail.Asset.ProjectName)
	assert.Equal(t, string(scoring.StatusOperating), detail.Status)
	assert.Equal(t, "Roseton", detail.Analysis.ProjectName)
	assert.NotEmpty(t, detail.Analysis.Recommendation)
	require.Len(t, detail.Transmission, 2)
	assert.Equal(t, "138 kV", detail.Transmission[1].Voltage)
	assert.InDelta(t, 143.9, detail.Transmission[0].InjectionCapacity, 0.001)
	assert.True(t, detail.Transmission[0].HasExcessCapacity)
	require.NotNil(t, detail.Stored)
	assert.Equal(t, run.ID, detail.Stored.RunID)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/assets/missing", nil))
}

func TestDeleteAsset(t *testing.T) {
	srv, _, saved := newTestServer(t)

	del := func(id string) int {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/assets/"+id, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close() //nolint:errcheck
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusNoContent, del(saved[0].ID))
	assert.Equal(t, http.StatusNotFound, del(saved[0].ID))

	var body listResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/assets", &body))
	assert.Equal(t, 2, body.Total)
}

func TestScore(t *testing.T) {
	srv, _, _ := newTestServer(t)

	post := func(body string) (*http.Response, []byte) {
		resp, err := http.Post(srv.URL+"/api/score", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, data
	}

	t.Run("scores raw attributes", func(t *testing.T) {
		resp, data := post(`{
			"Project Name": "Test",
			"iso": "PJM",
			"legacy_cod": 2030,
			"transactability_scores": "2",
			"market_score": 3,
			"land_availability": 2,
			"utilities": 2,
			"ix": 3,
			"overall_score": 5
		}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var detail struct {
			Asset  model.AssetRecord `json:"asset"`
			Result struct {
				RedevelopmentScore *float64 `json:"redevelopment_score"`
			} `json:"result"`
			Status  string   `json:"status"`
			Unknown []string `json:"unknown_fields"`
		}
		require.NoError(t, json.Unmarshal(data, &detail))
		assert.Equal(t, "Test", detail.Asset.ProjectName)
		assert.Equal(t, "2030", detail.Asset.LegacyCOD)
		assert.Equal(t, string(scoring.StatusFuture), detail.Status)
		require.NotNil(t, detail.Result.RedevelopmentScore)
		assert.Equal(t, []string{"overall_score"}, detail.Unknown)
	})

	t.Run("invalid body", func(t *testing.T) {
		resp, _ := post(`[1,2`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestKPIs(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var body KPIResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/kpis", &body))
	assert.Equal(t, 3, body.Summary.ProjectCount)
	assert.Equal(t, 2, body.Summary.ProcessCount)
	assert.Equal(t, 1, body.Summary.BilateralCount)
	assert.Len(t, body.ByISO, 2, "rows without capacity are left out")

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/kpis?iso=ERCOT", &body))
	assert.Equal(t, 1, body.Summary.ProjectCount)
}

func TestColumnsAndConfig(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var cols []columnInfo
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/columns", &cols))
	require.NotEmpty(t, cols)
	assert.Equal(t, "id", cols[0].Key)

	var cfg struct {
		Config scoring.Config `json:"config"`
		Hash   string         `json:"hash"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/config", &cfg))
	assert.Equal(t, scoring.DefaultConfig(), cfg.Config)
	assert.Equal(t, scoring.DefaultConfig().Hash(), cfg.Hash)
}

func TestRuns(t *testing.T) {
	srv, st, _ := newTestServer(t)

	var runs []model.Run
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/runs", &runs))
	assert.Empty(t, runs)

	run, err := st.CreateRun(context.Background(), model.RunKindImport, "pipeline.xlsx")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/runs?kind=import", &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/runs?kind=recalc", &runs))
	assert.Empty(t, runs)

	var got model.Run
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/runs/"+run.ID, &got))
	assert.Equal(t, "pipeline.xlsx", got.Source)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/runs/missing", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/runs?limit=x", nil))
}

func TestRecalc(t *testing.T) {
	post := func(t *testing.T, srv *httptest.Server) *http.Response {
		resp, err := http.Post(srv.URL+"/api/recalc", "application/json", nil)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
		return resp
	}

	t.Run("disabled", func(t *testing.T) {
		srv, _, _ := newTestServer(t)
		assert.Equal(t, http.StatusNotImplemented, post(t, srv).StatusCode)
	})

	t.Run("complete", func(t *testing.T) {
		run := &model.Run{ID: "r1", Kind: model.RunKindRecalc, Status: model.RunStatusComplete}
		srv, _, _ := newTestServer(t, WithRecalcer(fakeRecalcer{run: run}))
		resp := post(t, srv)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.Run
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "r1", got.ID)
	})

	t.Run("failed", func(t *testing.T) {
		run := &model.Run{ID: "r2", Status: model.RunStatusFailed, Error: "boom"}
		srv, _, _ := newTestServer(t, WithRecalcer(fakeRecalcer{run: run, err: eris.New("boom")}))
		assert.Equal(t, http.StatusInternalServerError, post(t, srv).StatusCode)
	})
}

type savedAsset struct {
	Asset   model.AssetRecord   `json:"asset"`
	Result  scoring.ScoreResult `json:"result"`
	Run     *model.Run          `json:"run"`
	Unknown []string            `json:"unknown_fields"`
}

func sendJSON(t *testing.T, method, url, body string) (int, savedAsset) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var got savedAsset
	if resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	}
	return resp.StatusCode, got
}

func TestAssetEdits_Disabled(t *testing.T) {
	srv, _, saved := newTestServer(t)

	code, _ := sendJSON(t, http.MethodPost, srv.URL+"/api/assets", `{"project_name": "New"}`)
	assert.Equal(t, http.StatusNotImplemented, code)
	code, _ = sendJSON(t, http.MethodPatch, srv.URL+"/api/assets/"+saved[0].ID, `{"ix": 1}`)
	assert.Equal(t, http.StatusNotImplemented, code)
}

func TestCreateAsset(t *testing.T) {
	srv, st, _ := newTestServerWith(t, func(st store.Store) []Option {
		return []Option{WithAssetSaver(pipeline.New(st, scoring.NewCalculator(scoring.DefaultConfig()), 2025))}
	})

	code, got := sendJSON(t, http.MethodPost, srv.URL+"/api/assets", `{
		"project_name": "Danskammer",
		"iso": "NYISO",
		"legacy_cod": 1990,
		"transactability_scores": 1,
		"environmental_score": 2,
		"thermal_optimization": 1,
		"market_score": 3,
		"land_availability": 2,
		"utilities": 2,
		"ix": 3,
		"rating": "Strong"
	}`)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, got.Asset.ID)
	assert.True(t, got.Result.OverallScore.Valid)
	require.NotNil(t, got.Run)
	assert.Equal(t, model.RunKindEdit, got.Run.Kind)
	assert.Equal(t, []string{"rating"}, got.Unknown)

	latest, err := st.LatestScores(context.Background())
	require.NoError(t, err)
	snap, ok := latest[got.Asset.ID]
	require.True(t, ok)
	assert.Equal(t, got.Run.ID, snap.RunID)

	code, _ = sendJSON(t, http.MethodPost, srv.URL+"/api/assets", `{"project_name": "Roseton"}`)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = sendJSON(t, http.MethodPost, srv.URL+"/api/assets", `{"iso": "PJM"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = sendJSON(t, http.MethodPost, srv.URL+"/api/assets", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPatchAndReplaceAsset(t *testing.T) {
	srv, st, saved := newTestServerWith(t, func(st store.Store) []Option {
		return []Option{WithAssetSaver(pipeline.New(st, scoring.NewCalculator(scoring.DefaultConfig()), 2025))}
	})
	var roseton model.AssetRecord
	for _, a := range saved {
		if a.ProjectName == "Roseton" {
			roseton = a
		}
	}
	url := srv.URL + "/api/assets/" + roseton.ID

	t.Run("patch changes only named fields", func(t *testing.T) {
		code, got := sendJSON(t, http.MethodPatch, url, `{"ix": 0}`)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, roseton.ID, got.Asset.ID)
		assert.Equal(t, "NYISO", got.Asset.ISO)
		assert.Equal(t, "0", got.Asset.IX)
		assert.InDelta(t, 0, got.Result.RedevelopmentScore.Value, 1e-9)

		stored, err := st.GetAsset(context.Background(), roseton.ID)
		require.NoError(t, err)
		assert.Equal(t, "0", stored.IX)
		assert.Equal(t, "1974", stored.LegacyCOD)
	})

	t.Run("put clears omitted fields", func(t *testing.T) {
		code, got := sendJSON(t, http.MethodPut, url, `{"iso": "PJM"}`)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Roseton", got.Asset.ProjectName)
		assert.Equal(t, "PJM", got.Asset.ISO)
		assert.Empty(t, got.Asset.LegacyCOD)
		assert.Equal(t, scoring.RatingNA, got.Result.Rating)
	})

	t.Run("rename rejected", func(t *testing.T) {
		code, _ := sendJSON(t, http.MethodPut, url, `{"project_name": "Roseton II"}`)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("missing asset", func(t *testing.T) {
		code, _ := sendJSON(t, http.MethodPatch, srv.URL+"/api/assets/missing", `{"ix": 1}`)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestWriteLimit(t *testing.T) {
	run := &model.Run{ID: "r1", Kind: model.RunKindRecalc, Status: model.RunStatusComplete}
	srv, _, _ := newTestServer(t, WithRecalcer(fakeRecalcer{run: run}), WithWriteLimit(0.001, 1))

	post := func() *http.Response {
		resp, err := http.Post(srv.URL+"/api/recalc", "application/json", nil)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
		return resp
	}

	assert.Equal(t, http.StatusOK, post().StatusCode)
	resp := post()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", nil), "reads are not limited")
}

func TestCORS(t *testing.T) {
	srv, _, _ := newTestServer(t, WithAllowedOrigins([]string{"https://dash.example.com"}))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/assets", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dash.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "https://dash.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	getJSON(t, srv.URL+"/health", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `dashboard_api_requests_total{code="200",route="/health"}`)
}
