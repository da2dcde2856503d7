package ranking

import (
	"cmp"
	"strings"

	"golang.org/x/text/collate"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/tier"
)

// Kind selects how a column's values are compared.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindTier
)

// Column is a sortable dashboard column.
type Column struct {
	Key   string
	Label string
	Kind  Kind

	text   func(Row) string
	number func(Row) scoring.Score
	rank   func(Row) int
}

func stringColumn(key, label string, fn func(Row) string) Column {
	return Column{Key: key, Label: label, Kind: KindString, text: fn}
}

func numberColumn(key, label string, fn func(Row) scoring.Score) Column {
	return Column{Key: key, Label: label, Kind: KindNumber, number: fn}
}

func tierColumn(key, label string, fn func(Row) int) Column {
	return Column{Key: key, Label: label, Kind: KindTier, rank: fn}
}

func raw(fn func(Row) string) func(Row) scoring.Score {
	return func(r Row) scoring.Score { return scoring.ParseExternalScalar(fn(r)) }
}

// Columns lists every sortable column in display order.
var Columns = []Column{
	stringColumn("id", "#", func(r Row) string { return r.Asset.ID }),
	stringColumn("asset", "Asset", func(r Row) string { return r.Asset.DisplayName() }),
	stringColumn("owner", "Owner", func(r Row) string { return r.Asset.PlantOwner }),
	stringColumn("project_type", "Project Type", func(r Row) string { return r.Asset.ProjectType }),
	tierColumn("ma_tier", "M&A Tier", func(r Row) int { return tier.MARank(r.Asset.MATier) }),
	tierColumn("redev_tier", "Redev Tier", func(r Row) int { return tier.RedevRank(r.Asset.RedevTier) }),
	stringColumn("status", "Status", func(r Row) string { return string(r.Status) }),
	numberColumn("overall", "Overall", func(r Row) scoring.Score { return r.Result.OverallScore }),
	numberColumn("thermal", "Thermal", func(r Row) scoring.Score { return r.Result.ThermalScore }),
	numberColumn("redev", "Redev", func(r Row) scoring.Score { return r.Result.RedevelopmentScore }),
	stringColumn("mkt", "Mkt", func(r Row) string { return r.Asset.ISO }),
	stringColumn("zone", "Zone", func(r Row) string { return r.Asset.ZoneSubmarket }),
	numberColumn("mw", "MW", raw(func(r Row) string { return r.Asset.CapacityMW })),
	numberColumn("poi_voltage", "POI Voltage (KV)", raw(func(r Row) string { return r.Asset.POIVoltageKV })),
	stringColumn("tech", "Tech", func(r Row) string { return r.Asset.Tech }),
	numberColumn("hr", "HR", raw(func(r Row) string { return r.Asset.HeatRate })),
	numberColumn("cf", "CF", raw(func(r Row) string { return r.Asset.CapacityFactor })),
	stringColumn("cod", "COD", func(r Row) string { return r.Asset.LegacyCOD }),
	stringColumn("redev_base_case", "Redev Case", func(r Row) string { return r.Asset.RedevBaseCase }),
	numberColumn("redev_capacity", "Redev MW", raw(func(r Row) string { return r.Asset.RedevCapacityMW })),
	stringColumn("redev_tech", "Redev Tech", func(r Row) string { return r.Asset.RedevTech }),
	stringColumn("redev_stage_gate", "Stage Gate", func(r Row) string { return r.Asset.RedevStageGate }),
	numberColumn("transactability_score", "Transact Score", func(r Row) scoring.Score {
		return r.Result.Breakdown.Thermal.Transactability
	}),
}

// LookupColumn finds a sortable column by key.
func LookupColumn(key string) (Column, bool) {
	for _, c := range Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// missingLast orders missing values after present ones regardless of
// direction. done is false when both values are present.
func missingLast(aMissing, bMissing bool) (result int, done bool) {
	switch {
	case aMissing && bMissing:
		return 0, true
	case aMissing:
		return 1, true
	case bMissing:
		return -1, true
	default:
		return 0, false
	}
}

func directed(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}

func (c Column) compare(a, b Row, desc bool, coll *collate.Collator) int {
	switch c.Kind {
	case KindNumber:
		x, y := c.number(a), c.number(b)
		if r, done := missingLast(!x.Valid, !y.Valid); done {
			return r
		}
		return directed(cmp.Compare(x.Value, y.Value), desc)
	case KindTier:
		x, y := c.rank(a), c.rank(b)
		if r, done := missingLast(x == tier.Unranked, y == tier.Unranked); done {
			return r
		}
		return directed(cmp.Compare(x, y), desc)
	default:
		x, y := strings.TrimSpace(c.text(a)), strings.TrimSpace(c.text(b))
		if r, done := missingLast(scoring.IsSentinel(x), scoring.IsSentinel(y)); done {
			return r
		}
		return directed(coll.CompareString(x, y), desc)
	}
}
