package model

import (
	"strings"
	"time"
)

// ProjectType values used by the dashboard's project type selector.
const (
	ProjectTypeAll   = "All"
	ProjectTypeRedev = "Redev"
	ProjectTypeMA    = "M&A"
	ProjectTypeOwned = "Owned"
)

// AssetRecord is a flat record of raw power-plant attributes as they arrive
// from an import or the database. Every scalar is kept as text exactly as it
// was read; interpreting numbers and spreadsheet error sentinels is the job
// of the scoring package.
type AssetRecord struct {
	ID string `json:"id"`

	// Identification.
	ProjectName     string `json:"project_name"`
	ProjectCodename string `json:"project_codename,omitempty"`
	PlantOwner      string `json:"plant_owner,omitempty"`
	Contact         string `json:"contact,omitempty"`
	ProjectType     string `json:"project_type,omitempty"` // comma-separated, e.g. "Redev, M&A"

	// Location and market.
	Location      string `json:"location,omitempty"`
	ISO           string `json:"iso,omitempty"`
	ZoneSubmarket string `json:"zone_submarket,omitempty"`

	// Legacy plant.
	CapacityMW     string `json:"legacy_nameplate_capacity_mw,omitempty"`
	Tech           string `json:"tech,omitempty"`
	Fuel           string `json:"fuel,omitempty"`
	HeatRate       string `json:"heat_rate_btu_kwh,omitempty"`
	CapacityFactor string `json:"capacity_factor_2024,omitempty"`
	LegacyCOD      string `json:"legacy_cod,omitempty"`
	SiteAcreage    string `json:"site_acreage,omitempty"`
	NumberOfSites  string `json:"number_of_sites,omitempty"`
	GasReference   string `json:"gas_reference,omitempty"`
	POIVoltageKV   string `json:"poi_voltage_kv,omitempty"`
	Transmission   string `json:"transmission_data,omitempty"`

	// Transaction.
	ProcessType     string `json:"process_type,omitempty"` // "P" or "B"
	Transactability string `json:"transactability,omitempty"`
	MATier          string `json:"ma_tier,omitempty"`

	// Pre-computed thermal component scores, when the source sheet carries them.
	PlantCODScore string `json:"plant_cod,omitempty"`
	MarketsScore  string `json:"markets,omitempty"`

	// Qualitative component ratings.
	ThermalOptimization string `json:"thermal_optimization,omitempty"`
	EnvironmentalScore  string `json:"environmental_score,omitempty"`
	MarketScore         string `json:"market_score,omitempty"`
	Infra               string `json:"infra,omitempty"`
	LandAvailability    string `json:"land_availability,omitempty"`
	Utilities           string `json:"utilities,omitempty"`
	IX                  string `json:"ix,omitempty"`

	// Redevelopment.
	RedevTier        string `json:"redev_tier,omitempty"`
	RedevBaseCase    string `json:"redevelopment_base_case,omitempty"`
	RedevCapacityMW  string `json:"redev_capacity_mw,omitempty"`
	RedevTech        string `json:"redev_tech,omitempty"`
	RedevFuel        string `json:"redev_fuel,omitempty"`
	RedevHeatRate    string `json:"redev_heatrate_btu_kwh,omitempty"`
	RedevCOD         string `json:"redev_cod,omitempty"`
	RedevLandControl string `json:"redev_land_control,omitempty"`
	RedevStageGate   string `json:"redev_stage_gate,omitempty"`
	RedevLead        string `json:"redev_lead,omitempty"`
	RedevSupport     string `json:"redev_support,omitempty"`
	CoLocateRepower  string `json:"co_locate_repower,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ProjectTypes splits the comma-separated project type list into trimmed,
// non-empty values.
func (a AssetRecord) ProjectTypes() []string {
	if strings.TrimSpace(a.ProjectType) == "" {
		return nil
	}
	parts := strings.Split(a.ProjectType, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasProjectType reports whether the asset is tagged with the given project type.
func (a AssetRecord) HasProjectType(pt string) bool {
	for _, t := range a.ProjectTypes() {
		if t == pt {
			return true
		}
	}
	return false
}

// DisplayName returns the project name, falling back to the codename.
func (a AssetRecord) DisplayName() string {
	if a.ProjectName != "" {
		return a.ProjectName
	}
	return a.ProjectCodename
}
