// Package kpi computes the dashboard's portfolio summary cards and capacity
// rollups from scored rows.
package kpi

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
)

// maxFutureCOD bounds how far ahead a COD may be and still count toward age.
const maxFutureCOD = 10

// Summary holds the portfolio KPI cards.
type Summary struct {
	ProjectCount     int                    `json:"project_count"`
	ProcessCount     int                    `json:"process_count"`
	BilateralCount   int                    `json:"bilateral_count"`
	TotalCapacityGW  float64                `json:"total_capacity_gw"`
	AvgHeatRate      float64                `json:"avg_heat_rate"`
	AvgAgeYears      float64                `json:"avg_age_years"`
	AvgThermal       scoring.Score          `json:"avg_thermal"`
	AvgRedevelopment scoring.Score          `json:"avg_redevelopment"`
	AvgOverall       scoring.Score          `json:"avg_overall"`
	Ratings          map[scoring.Rating]int `json:"ratings"`
	Statuses         map[scoring.Status]int `json:"statuses"`
}

// mean accumulates only known values, so N/A never drags an average to 0.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(s scoring.Score) {
	if s.Valid {
		m.sum += s.Value
		m.n++
	}
}

func (m mean) score() scoring.Score {
	if m.n == 0 {
		return scoring.NA
	}
	return scoring.Of(m.sum / float64(m.n)).Round()
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// Summarize computes the KPI cards over rows.
func Summarize(rows []ranking.Row, currentYear int) Summary {
	s := Summary{
		Ratings:  make(map[scoring.Rating]int),
		Statuses: make(map[scoring.Status]int),
	}

	var capacityMW float64
	var heatRate, age, thermal, redev, overall mean

	for _, r := range rows {
		a := r.Asset
		if strings.TrimSpace(a.ProjectName) != "" {
			s.ProjectCount++
		}
		switch strings.ToUpper(strings.TrimSpace(a.ProcessType)) {
		case "P":
			s.ProcessCount++
		case "B":
			s.BilateralCount++
		}

		if mw := scoring.ParseExternalScalar(a.CapacityMW); mw.Valid {
			capacityMW += mw.Value
		}
		if hr := scoring.ParseExternalScalar(a.HeatRate); hr.Valid && hr.Value > 0 {
			heatRate.add(hr)
		}
		if year, ok := scoring.ExtractYear(a.LegacyCOD); ok && year <= currentYear+maxFutureCOD {
			age.add(scoring.Of(math.Max(0, float64(currentYear-year))))
		}

		thermal.add(r.Result.ThermalScore)
		redev.add(r.Result.RedevelopmentScore)
		overall.add(r.Result.OverallScore)
		s.Ratings[r.Result.Rating]++
		s.Statuses[r.Status]++
	}

	s.TotalCapacityGW = roundTo(capacityMW/1000, 1)
	s.AvgHeatRate = math.Round(heatRate.value())
	s.AvgAgeYears = math.Round(age.value())
	s.AvgThermal = thermal.score()
	s.AvgRedevelopment = redev.score()
	s.AvgOverall = overall.score()
	return s
}

// Group is one slice of a capacity rollup.
type Group struct {
	Name       string  `json:"name"`
	CapacityGW float64 `json:"capacity_gw"`
	Count      int     `json:"count"`
}

// ByISO rolls capacity up by market.
func ByISO(rows []ranking.Row) []Group {
	return rollup(rows, func(r ranking.Row) string { return r.Asset.ISO })
}

// ByTech rolls capacity up by technology.
func ByTech(rows []ranking.Row) []Group {
	return rollup(rows, func(r ranking.Row) string { return r.Asset.Tech })
}

// ByOwner rolls capacity up by plant owner.
func ByOwner(rows []ranking.Row) []Group {
	return rollup(rows, func(r ranking.Row) string { return r.Asset.PlantOwner })
}

// rollup groups rows with a known capacity, largest group first.
func rollup(rows []ranking.Row, key func(ranking.Row) string) []Group {
	mw := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range rows {
		capMW := scoring.ParseExternalScalar(r.Asset.CapacityMW)
		if !capMW.Valid {
			continue
		}
		name := strings.TrimSpace(key(r))
		if scoring.IsSentinel(name) {
			name = "Unknown"
		}
		mw[name] += capMW.Value
		counts[name]++
	}

	groups := make([]Group, 0, len(mw))
	for name, total := range mw {
		groups = append(groups, Group{Name: name, CapacityGW: roundTo(total/1000, 1), Count: counts[name]})
	}
	slices.SortFunc(groups, func(a, b Group) int {
		if c := cmp.Compare(b.CapacityGW, a.CapacityGW); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return groups
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
