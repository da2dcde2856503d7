package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
)

func testRows() []ranking.Row {
	assets := []model.AssetRecord{
		{
			ProjectName: "Alpha", ISO: "PJM", Tech: "CCGT", PlantOwner: "Vistra", ProcessType: "B",
			CapacityMW: "1,200", HeatRate: "7,000", LegacyCOD: "1995",
			Transactability: "1", ThermalOptimization: "2", EnvironmentalScore: "3",
			MarketScore: "3", LandAvailability: "3", Utilities: "3", IX: "3",
		},
		{
			ProjectName: "Bravo", ISO: "PJM", Tech: "GT", PlantOwner: "NRG", ProcessType: "p",
			CapacityMW: "300", HeatRate: "#N/A", LegacyCOD: "2015",
			Transactability: "3", EnvironmentalScore: "1", MarketScore: "1", LandAvailability: "1", Utilities: "1", IX: "1",
		},
		{
			ProjectName: "Charlie", ISO: "ERCOT", Tech: "CCGT", PlantOwner: "", ProcessType: "",
			CapacityMW: "N/A", HeatRate: "9000", LegacyCOD: "",
		},
		{
			ProjectName: "", ISO: "", Tech: "ST", CapacityMW: "500", RedevCOD: "2031",
		},
	}
	return ranking.NewRows(assets, scoring.NewCalculator(scoring.DefaultConfig()), 2025)
}

func TestSummarize(t *testing.T) {
	s := Summarize(testRows(), 2025)

	assert.Equal(t, 3, s.ProjectCount)
	assert.Equal(t, 1, s.ProcessCount)
	assert.Equal(t, 1, s.BilateralCount)
	assert.InDelta(t, 2.0, s.TotalCapacityGW, 1e-9)
	assert.InDelta(t, 8000, s.AvgHeatRate, 1e-9)
	assert.InDelta(t, 20, s.AvgAgeYears, 1e-9)

	// Alpha 2.95 / 3.00, Bravo 1.55 / 1.00; the N/A rows are excluded.
	require.True(t, s.AvgThermal.Valid)
	assert.InDelta(t, 2.25, s.AvgThermal.Value, 1e-9)
	assert.InDelta(t, 2.0, s.AvgRedevelopment.Value, 1e-9)
	assert.InDelta(t, 4.25, s.AvgOverall.Value, 1e-9)

	assert.Equal(t, 1, s.Ratings[scoring.RatingStrong])
	assert.Equal(t, 1, s.Ratings[scoring.RatingWeak])
	assert.Equal(t, 2, s.Ratings[scoring.RatingNA])
	assert.Equal(t, 2, s.Statuses[scoring.StatusOperating])
	assert.Equal(t, 1, s.Statuses[scoring.StatusFuture])
	assert.Equal(t, 1, s.Statuses[scoring.StatusUnknown])
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 2025)
	assert.Zero(t, s.ProjectCount)
	assert.Zero(t, s.TotalCapacityGW)
	assert.True(t, s.AvgOverall.IsNA(), "no scores is N/A, not 0")
}

func TestRollups(t *testing.T) {
	rows := testRows()

	assert.Equal(t, []Group{
		{Name: "PJM", CapacityGW: 1.5, Count: 2},
		{Name: "Unknown", CapacityGW: 0.5, Count: 1},
	}, ByISO(rows))

	assert.Equal(t, []Group{
		{Name: "CCGT", CapacityGW: 1.2, Count: 1},
		{Name: "ST", CapacityGW: 0.5, Count: 1},
		{Name: "GT", CapacityGW: 0.3, Count: 1},
	}, ByTech(rows))

	owners := ByOwner(rows)
	require.Len(t, owners, 3)
	assert.Equal(t, "Vistra", owners[0].Name)
}
