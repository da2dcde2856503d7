// Package ingest maps spreadsheet and CSV imports onto asset records. It is
// the one place that knows the many header spellings found in real pipeline
// workbooks.
package ingest

import (
	"slices"
	"strings"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
)

// Field binds one AssetRecord attribute to its database column, its header
// in the import template, and any legacy header spellings.
type Field struct {
	Key     string
	Header  string
	Aliases []string
	ptr     func(*model.AssetRecord) *string
}

// Get returns the field's value on a.
func (f Field) Get(a model.AssetRecord) string { return *f.ptr(&a) }

// Set assigns the field's value on a.
func (f Field) Set(a *model.AssetRecord, v string) { *f.ptr(a) = v }

// Fields lists every importable attribute in template column order.
var Fields = []Field{
	{Key: "project_name", Header: "Project Name", ptr: func(a *model.AssetRecord) *string { return &a.ProjectName }},
	{Key: "project_codename", Header: "Project Codename", ptr: func(a *model.AssetRecord) *string { return &a.ProjectCodename }},
	{Key: "plant_owner", Header: "Plant Owner", Aliases: []string{"Owner"}, ptr: func(a *model.AssetRecord) *string { return &a.PlantOwner }},
	{Key: "contact", Header: "Contact", ptr: func(a *model.AssetRecord) *string { return &a.Contact }},
	{Key: "project_type", Header: "Project Type", ptr: func(a *model.AssetRecord) *string { return &a.ProjectType }},

	{Key: "iso", Header: "ISO", ptr: func(a *model.AssetRecord) *string { return &a.ISO }},
	{Key: "zone_submarket", Header: "Zone/Submarket", ptr: func(a *model.AssetRecord) *string { return &a.ZoneSubmarket }},
	{Key: "location", Header: "Location", ptr: func(a *model.AssetRecord) *string { return &a.Location }},

	{Key: "legacy_nameplate_capacity_mw", Header: "Legacy Capacity (MW)", Aliases: []string{"Legacy Nameplate Capacity (MW)"}, ptr: func(a *model.AssetRecord) *string { return &a.CapacityMW }},
	{Key: "tech", Header: "Tech", ptr: func(a *model.AssetRecord) *string { return &a.Tech }},
	{Key: "fuel", Header: "Fuel", ptr: func(a *model.AssetRecord) *string { return &a.Fuel }},
	{Key: "heat_rate_btu_kwh", Header: "Heat Rate (Btu/kWh)", ptr: func(a *model.AssetRecord) *string { return &a.HeatRate }},
	{Key: "legacy_cod", Header: "Legacy COD (Year)", Aliases: []string{"Legacy COD"}, ptr: func(a *model.AssetRecord) *string { return &a.LegacyCOD }},
	{Key: "capacity_factor_2024", Header: "Capacity Factor (%)", Aliases: []string{"2024 Capacity Factor"}, ptr: func(a *model.AssetRecord) *string { return &a.CapacityFactor }},
	{Key: "site_acreage", Header: "Site Acreage", ptr: func(a *model.AssetRecord) *string { return &a.SiteAcreage }},
	{Key: "number_of_sites", Header: "Number of Sites", ptr: func(a *model.AssetRecord) *string { return &a.NumberOfSites }},
	{Key: "poi_voltage_kv", Header: "POI Voltage (kV)", ptr: func(a *model.AssetRecord) *string { return &a.POIVoltageKV }},
	{Key: "transmission_data", Header: "Transmission Data", ptr: func(a *model.AssetRecord) *string { return &a.Transmission }},

	{Key: "process_type", Header: "Process Type", Aliases: []string{"Process (P) or Bilateral (B)"}, ptr: func(a *model.AssetRecord) *string { return &a.ProcessType }},
	{Key: "transactability_scores", Header: "Transactability", Aliases: []string{"Transactability Scores"}, ptr: func(a *model.AssetRecord) *string { return &a.Transactability }},
	{Key: "gas_reference", Header: "Gas Reference", ptr: func(a *model.AssetRecord) *string { return &a.GasReference }},
	{Key: "ma_tier", Header: "M&A Tier", ptr: func(a *model.AssetRecord) *string { return &a.MATier }},

	{Key: "plant_cod", Header: "Plant COD", ptr: func(a *model.AssetRecord) *string { return &a.PlantCODScore }},
	{Key: "markets", Header: "Markets", ptr: func(a *model.AssetRecord) *string { return &a.MarketsScore }},
	{Key: "thermal_optimization", Header: "Thermal Optimization", ptr: func(a *model.AssetRecord) *string { return &a.ThermalOptimization }},
	{Key: "environmental_score", Header: "Environmental Score", Aliases: []string{"Envionmental Score"}, ptr: func(a *model.AssetRecord) *string { return &a.EnvironmentalScore }},
	{Key: "market_score", Header: "Market Score", ptr: func(a *model.AssetRecord) *string { return &a.MarketScore }},
	{Key: "infra", Header: "Infra", ptr: func(a *model.AssetRecord) *string { return &a.Infra }},
	{Key: "land_availability", Header: "Land Availability", ptr: func(a *model.AssetRecord) *string { return &a.LandAvailability }},
	{Key: "utilities", Header: "Utilities", ptr: func(a *model.AssetRecord) *string { return &a.Utilities }},
	{Key: "ix", Header: "IX", ptr: func(a *model.AssetRecord) *string { return &a.IX }},

	{Key: "redevelopment_base_case", Header: "Redev Base Case", Aliases: []string{"Redevelopment Base Case"}, ptr: func(a *model.AssetRecord) *string { return &a.RedevBaseCase }},
	{Key: "redev_tier", Header: "Redev Tier", ptr: func(a *model.AssetRecord) *string { return &a.RedevTier }},
	{Key: "redev_capacity_mw", Header: "Redev Capacity (MW)", ptr: func(a *model.AssetRecord) *string { return &a.RedevCapacityMW }},
	{Key: "redev_tech", Header: "Redev Tech", ptr: func(a *model.AssetRecord) *string { return &a.RedevTech }},
	{Key: "redev_fuel", Header: "Redev Fuel", ptr: func(a *model.AssetRecord) *string { return &a.RedevFuel }},
	{Key: "redev_heatrate_btu_kwh", Header: "Redev Heat Rate", Aliases: []string{"Redev Heatrate (Btu/kWh)"}, ptr: func(a *model.AssetRecord) *string { return &a.RedevHeatRate }},
	{Key: "redev_cod", Header: "Redev COD", ptr: func(a *model.AssetRecord) *string { return &a.RedevCOD }},
	{Key: "redev_land_control", Header: "Redev Land Control", ptr: func(a *model.AssetRecord) *string { return &a.RedevLandControl }},
	{Key: "redev_stage_gate", Header: "Redev Stage Gate", ptr: func(a *model.AssetRecord) *string { return &a.RedevStageGate }},
	{Key: "redev_lead", Header: "Redev Lead", ptr: func(a *model.AssetRecord) *string { return &a.RedevLead }},
	{Key: "redev_support", Header: "Redev Support", ptr: func(a *model.AssetRecord) *string { return &a.RedevSupport }},
	{Key: "co_locate_repower", Header: "Co-Locate/Repower", ptr: func(a *model.AssetRecord) *string { return &a.CoLocateRepower }},
}

// headerIndex maps canonical header spellings (template header, aliases and
// database key) to their Field.
var headerIndex = buildHeaderIndex()

func buildHeaderIndex() map[string]Field {
	idx := make(map[string]Field, len(Fields)*3)
	for _, f := range Fields {
		idx[CanonicalHeader(f.Key)] = f
		idx[CanonicalHeader(f.Header)] = f
		for _, a := range f.Aliases {
			idx[CanonicalHeader(a)] = f
		}
	}
	return idx
}

// CanonicalHeader folds case and collapses runs of whitespace, so "Plant  COD"
// and "plant cod" resolve to the same column.
func CanonicalHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// LookupHeader resolves an import header to its Field.
func LookupHeader(h string) (Field, bool) {
	f, ok := headerIndex[CanonicalHeader(h)]
	return f, ok
}

// CleanValue trims a raw cell and blanks spreadsheet error values and
// unevaluated formulas.
func CleanValue(v string) string {
	if scoring.IsSentinel(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// MapRow builds an asset from one data row. Unknown headers are ignored.
// Rows without a project name are reported as not ok.
func MapRow(headers, cells []string) (model.AssetRecord, bool) {
	var a model.AssetRecord
	for i, h := range headers {
		if i >= len(cells) {
			break
		}
		f, ok := LookupHeader(h)
		if !ok {
			continue
		}
		if v := CleanValue(cells[i]); v != "" {
			f.Set(&a, v)
		}
	}
	return a, a.ProjectName != ""
}

// MapRecord builds an asset from a JSON-style attribute map keyed by field
// key or header. Values may be strings or numbers. Keys that match no field
// are returned, sorted, in unknown.
func MapRecord(values map[string]any) (a model.AssetRecord, unknown []string) {
	unknown = ApplyRecord(&a, values)
	return a, unknown
}

// ApplyRecord sets only the fields named in values on a. A null or sentinel
// value clears its field. Unknown keys are returned sorted.
func ApplyRecord(a *model.AssetRecord, values map[string]any) (unknown []string) {
	for k, v := range values {
		f, ok := LookupHeader(k)
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		f.Set(a, scoring.Text(v))
	}
	slices.Sort(unknown)
	return unknown
}

// maxHeaderScan bounds how many leading rows are searched for the header row.
const maxHeaderScan = 10

// findHeaderRow returns the index of the first row carrying a project name
// column, or -1.
func findHeaderRow(rows [][]string) int {
	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		for _, cell := range rows[i] {
			if f, ok := LookupHeader(cell); ok && f.Key == "project_name" {
				return i
			}
		}
	}
	return -1
}
