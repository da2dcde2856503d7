// Package ranking filters and orders scored assets for the dashboard views.
package ranking

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/tier"
)

// Row is an asset with its freshly computed score and status.
type Row struct {
	Asset  model.AssetRecord   `json:"asset"`
	Result scoring.ScoreResult `json:"result"`
	Status scoring.Status      `json:"status"`
}

// NewRows scores every asset with calc.
func NewRows(assets []model.AssetRecord, calc scoring.Calculator, currentYear int) []Row {
	rows := make([]Row, len(assets))
	for i, a := range assets {
		rows[i] = Row{
			Asset:  a,
			Result: calc.ScoreAsset(a),
			Status: scoring.CalculateStatus(a.LegacyCOD, a.RedevCOD, currentYear),
		}
	}
	return rows
}

// Direction is a column sort direction.
type Direction string

const (
	DirNone Direction = ""
	DirAsc  Direction = "asc"
	DirDesc Direction = "desc"
)

// SortState is the explicit single-column sort.
type SortState struct {
	Column    string    `json:"column,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Active reports whether an explicit sort overrides the base ordering.
func (s SortState) Active() bool {
	return s.Column != "" && s.Direction != DirNone
}

// Toggle returns the state after activating column. The same column cycles
// none, asc, desc, none; a different column starts at asc.
func (s SortState) Toggle(column string) SortState {
	if column != s.Column {
		return SortState{Column: column, Direction: DirAsc}
	}
	switch s.Direction {
	case DirNone:
		return SortState{Column: column, Direction: DirAsc}
	case DirAsc:
		return SortState{Column: column, Direction: DirDesc}
	default:
		return SortState{}
	}
}

// View is a filter and sort configuration. Empty fields do not filter.
type View struct {
	ProjectType string    `json:"project_type,omitempty"`
	Rating      string    `json:"rating,omitempty"`
	ISO         string    `json:"iso,omitempty"`
	Process     string    `json:"process,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	Tech        string    `json:"tech,omitempty"`
	Search      string    `json:"search,omitempty"`
	Sort        SortState `json:"sort"`
}

// Apply filters rows by the view and orders the survivors. An active column
// sort replaces the project type's base tier ordering; an unknown sort
// column is ignored. Missing sort keys always sort last. rows is not modified.
func Apply(rows []Row, v View) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if v.Match(r) {
			out = append(out, r)
		}
	}

	if v.Sort.Active() {
		if col, ok := LookupColumn(v.Sort.Column); ok {
			coll := collate.New(language.English, collate.IgnoreCase)
			desc := v.Sort.Direction == DirDesc
			slices.SortStableFunc(out, func(a, b Row) int {
				return col.compare(a, b, desc, coll)
			})
			return out
		}
	}

	switch v.ProjectType {
	case model.ProjectTypeRedev:
		slices.SortStableFunc(out, func(a, b Row) int {
			return tier.CompareRedev(a.Asset.RedevTier, b.Asset.RedevTier)
		})
	case model.ProjectTypeMA:
		slices.SortStableFunc(out, func(a, b Row) int {
			return tier.CompareMA(a.Asset.MATier, b.Asset.MATier)
		})
	}
	return out
}

// Match reports whether a row passes every filter in the view.
func (v View) Match(r Row) bool {
	a := r.Asset

	if v.ProjectType != "" && v.ProjectType != model.ProjectTypeAll && !a.HasProjectType(v.ProjectType) {
		return false
	}
	if want, ok := scoring.ParseRating(v.Rating); ok && r.Result.Rating != want {
		return false
	}
	if v.ISO != "" && scoring.NormalizeMarketCode(a.ISO) != scoring.NormalizeMarketCode(v.ISO) {
		return false
	}
	if v.Process != "" && !strings.EqualFold(strings.TrimSpace(a.ProcessType), strings.TrimSpace(v.Process)) {
		return false
	}
	if v.Owner != "" && !strings.EqualFold(strings.TrimSpace(a.PlantOwner), strings.TrimSpace(v.Owner)) {
		return false
	}
	if v.Tech != "" && !strings.EqualFold(strings.TrimSpace(a.Tech), strings.TrimSpace(v.Tech)) {
		return false
	}
	if v.Search != "" && !matchSearch(r, v.Search) {
		return false
	}
	return true
}

// matchSearch requires every whitespace-separated term to appear somewhere
// in the row's searchable text.
func matchSearch(r Row, query string) bool {
	a := r.Asset
	text := strings.ToLower(strings.Join([]string{
		a.ID, a.DisplayName(), a.ProjectCodename, a.PlantOwner, a.Location, a.ISO,
		a.ZoneSubmarket, a.Tech, a.LegacyCOD, a.Fuel, a.Contact, a.RedevBaseCase,
		a.RedevCapacityMW, a.RedevTech, a.RedevFuel, a.RedevLead, a.RedevStageGate,
		a.ProjectType, a.POIVoltageKV, string(r.Status), string(r.Result.Rating),
	}, " "))
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}
