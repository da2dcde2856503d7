package scoring

import (
	"strings"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
)

// Rating is the qualitative class of an overall score.
type Rating string

const (
	RatingStrong   Rating = "Strong"
	RatingModerate Rating = "Moderate"
	RatingWeak     Rating = "Weak"
	RatingNA       Rating = "N/A"
)

// Rating thresholds on the overall score.
const (
	StrongThreshold   = 4.5
	ModerateThreshold = 3.0
)

// RatingFor classifies an overall score.
func RatingFor(overall Score) Rating {
	if !overall.Valid {
		return RatingNA
	}
	switch {
	case overall.Value >= StrongThreshold:
		return RatingStrong
	case overall.Value >= ModerateThreshold:
		return RatingModerate
	default:
		return RatingWeak
	}
}

// ParseRating resolves a case-insensitive rating name. "all" and unknown
// names return false.
func ParseRating(s string) (Rating, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strong":
		return RatingStrong, true
	case "moderate":
		return RatingModerate, true
	case "weak":
		return RatingWeak, true
	case "n/a", "na":
		return RatingNA, true
	default:
		return "", false
	}
}

// ScoreResult is the scored view of one asset. Scores are rounded to two
// decimals; the rating is taken from the overall score before rounding.
type ScoreResult struct {
	ThermalScore        Score     `json:"thermal_score"`
	RedevelopmentScore  Score     `json:"redevelopment_score"`
	OverallScore        Score     `json:"overall_score"`
	InfrastructureScore Score     `json:"infrastructure_score"`
	Rating              Rating    `json:"rating"`
	Confidence          int       `json:"confidence"`
	HasNA               bool      `json:"has_na"`
	Breakdown           Breakdown `json:"breakdown"`
}

// Confidence bounds, in percent.
const (
	baseConfidence = 70
	maxConfidence  = 95
)

// Score computes a fresh ScoreResult from a breakdown and the asset's
// co-locate/repower flag.
func (c Calculator) Score(b Breakdown, coLocate string) ScoreResult {
	thermal := c.ThermalScore(b.Thermal)
	redev := c.RedevelopmentScore(b.Redevelopment, IsRepower(coLocate))
	overall := c.OverallScore(thermal, redev)

	res := ScoreResult{
		ThermalScore:        thermal.Round(),
		RedevelopmentScore:  redev.Round(),
		OverallScore:        overall.Round(),
		InfrastructureScore: c.InfrastructureScore(b.Redevelopment).Round(),
		Rating:              RatingFor(overall), // bands apply to the unrounded sum
		HasNA:               !thermal.Valid || !redev.Valid,
		Breakdown:           b,
	}
	res.Confidence = confidence(res)
	return res
}

func confidence(r ScoreResult) int {
	c := baseConfidence
	if r.OverallScore.Valid {
		c += 10
	}
	if r.ThermalScore.Valid {
		c += 5
	}
	if r.RedevelopmentScore.Valid {
		c += 5
	}
	if r.Breakdown.Thermal.Markets.Valid {
		c += 5
	}
	return min(c, maxConfidence)
}

// ScoreAsset derives the breakdown from raw attributes and scores it.
func (c Calculator) ScoreAsset(a model.AssetRecord) ScoreResult {
	return c.Score(BreakdownFromAsset(a), a.CoLocateRepower)
}

// ScoreAsset scores an asset with the default weights.
func ScoreAsset(a model.AssetRecord) ScoreResult {
	return defaultCalculator.ScoreAsset(a)
}

// BreakdownFromAsset normalizes raw asset attributes into component scores.
// Pre-computed COD and market scores win over values derived from the COD
// year and ISO code. A single legacy infra rating fills land availability
// and utilities when those are blank.
func BreakdownFromAsset(a model.AssetRecord) Breakdown {
	cod := Clamp(ParseExternalScalar(a.PlantCODScore), 0, 3)
	if !cod.Valid {
		cod = CODToScore(a.LegacyCOD)
	}
	markets := Clamp(ParseExternalScalar(a.MarketsScore), 0, 3)
	if !markets.Valid {
		markets = MarketToScore(a.ISO)
	}

	land := InfraToScore(a.LandAvailability)
	util := InfraToScore(a.Utilities)
	if legacy := InfraToScore(a.Infra); legacy.Valid {
		if !land.Valid {
			land = legacy
		}
		if !util.Valid {
			util = legacy
		}
	}

	return Breakdown{
		Thermal: ThermalComponents{
			COD:                 cod,
			Markets:             markets,
			Transactability:     TransactabilityToScore(a.Transactability),
			ThermalOptimization: ThermalOptimizationToScore(a.ThermalOptimization),
			Environmental:       EnvironmentalToScore(a.EnvironmentalScore),
		},
		Redevelopment: RedevComponents{
			Market:           RedevMarketToScore(a.MarketScore),
			LandAvailability: land,
			Utilities:        util,
			Interconnection:  IXToScore(a.IX),
		},
	}
}
