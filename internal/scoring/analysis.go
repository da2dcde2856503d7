package scoring

import (
	"fmt"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
)

const (
	maxStrengths = 4
	maxRisks     = 3
)

// Analysis is the narrative summary shown on an asset's detail view.
type Analysis struct {
	ProjectName    string   `json:"project_name"`
	Rating         Rating   `json:"rating"`
	Confidence     int      `json:"confidence"`
	Recommendation string   `json:"recommendation"`
	Interconnect   string   `json:"interconnection"`
	Strengths      []string `json:"strengths"`
	Risks          []string `json:"risks"`
}

// Recommendation maps an overall score to an investment recommendation.
func Recommendation(overall Score) string {
	if !overall.Valid {
		return "Insufficient Data - Complete the missing scores to assess"
	}
	switch {
	case overall.Value >= 4.5:
		return "Highly Recommended - Strong investment opportunity"
	case overall.Value >= 3.5:
		return "Recommended - Good potential with manageable risks"
	case overall.Value >= 2.5:
		return "Consider with Caution - Requires detailed due diligence"
	default:
		return "Not Recommended - Significant challenges identified"
	}
}

// InterconnectionOutlook describes an interconnection rating.
func InterconnectionOutlook(ix Score) string {
	if !ix.Valid {
		return "Interconnection not assessed"
	}
	switch {
	case ix.Value >= 3:
		return "Secured interconnection rights"
	case ix.Value >= 2:
		return "No upgrades needed for interconnection"
	case ix.Value >= 1:
		return "Minimal upgrades required"
	default:
		return "Major upgrades required"
	}
}

// Analyze builds strengths and risks from an asset's component scores.
func Analyze(a model.AssetRecord, r ScoreResult) Analysis {
	th, rd := r.Breakdown.Thermal, r.Breakdown.Redevelopment
	market := NormalizeMarketCode(a.ISO)
	premium := market != "" && marketScore(market) == 3

	var strengths []string
	if th.Environmental.Valid && th.Environmental.Value >= 2 {
		strengths = append(strengths, "Environmental conditions known and mitigable")
	}
	if premium {
		strengths = append(strengths, fmt.Sprintf("Favorable market position in %s", market))
	}
	if th.Transactability.Valid && th.Transactability.Value >= 3 {
		strengths = append(strengths, "Bilateral transaction structure provides relationship advantage")
	}
	if rd.Market.Valid && rd.Market.Value >= 2 {
		strengths = append(strengths, "Good market position for redevelopment")
	}
	if r.InfrastructureScore.Valid && r.InfrastructureScore.Value >= 2 {
		strengths = append(strengths, "Adequate infrastructure for future development")
	}
	if len(strengths) == 0 {
		strengths = []string{
			"Site has existing energy infrastructure that can be leveraged",
			"Potential for modernization and efficiency improvements",
		}
	}

	var risks []string
	if year, ok := ExtractYear(a.LegacyCOD); ok && year < 2000 {
		risks = append(risks, "Vintage plant may have higher maintenance and retirement risks")
	}
	if a.ISO != "" && !premium {
		risks = append(risks, fmt.Sprintf("Market %s may have limited pricing opportunities", market))
	}
	if rd.Interconnection.Valid && rd.Interconnection.Value < 2 {
		risks = append(risks, "Interconnection upgrades may be required for redevelopment")
	}
	if r.HasNA {
		risks = append(risks, "Incomplete scoring data limits assessment confidence")
	}
	if len(risks) == 0 {
		risks = []string{
			"Standard market and operational risks associated with energy projects",
			"Regulatory changes could impact project viability",
		}
	}

	return Analysis{
		ProjectName:    a.DisplayName(),
		Rating:         r.Rating,
		Confidence:     r.Confidence,
		Recommendation: Recommendation(r.OverallScore),
		Interconnect:   InterconnectionOutlook(rd.Interconnection),
		Strengths:      strengths[:min(len(strengths), maxStrengths)],
		Risks:          risks[:min(len(risks), maxRisks)],
	}
}
