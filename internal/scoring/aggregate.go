package scoring

import "strings"

// ThermalComponents are the inputs to the Thermal Operating Score.
// COD, Markets and Transactability are mandatory.
type ThermalComponents struct {
	COD                 Score `json:"cod"`
	Markets             Score `json:"markets"`
	Transactability     Score `json:"transactability"`
	ThermalOptimization Score `json:"thermal_optimization"`
	Environmental       Score `json:"environmental"`
}

// RedevComponents are the inputs to the Redevelopment Score.
type RedevComponents struct {
	Market           Score `json:"market"`
	LandAvailability Score `json:"land_availability"`
	Utilities        Score `json:"utilities"`
	Interconnection  Score `json:"interconnection"`
}

// Breakdown is the full set of component scores for one asset.
type Breakdown struct {
	Thermal       ThermalComponents `json:"thermal"`
	Redevelopment RedevComponents   `json:"redevelopment"`
}

// Calculator applies a weight Config to component scores. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator using cfg. Callers are expected to have
// run cfg.Validate.
func NewCalculator(cfg Config) Calculator {
	return Calculator{cfg: cfg}
}

// Config returns the weights in use.
func (c Calculator) Config() Config { return c.cfg }

// ThermalScore computes the weighted Thermal Operating Score. A missing COD,
// Markets or Transactability component makes the whole score N/A. A missing
// environmental rating drops that term; thermal optimization always counts,
// with missing read as 0.
func (c Calculator) ThermalScore(tc ThermalComponents) Score {
	if !tc.COD.Valid || !tc.Markets.Valid || !tc.Transactability.Valid {
		return NA
	}
	w := c.cfg.Thermal

	opt := tc.ThermalOptimization
	if !opt.Valid {
		opt = Of(0)
	}

	total := tc.COD.Value*w.COD +
		tc.Markets.Value*w.Markets +
		tc.Transactability.Value*w.Transactability +
		opt.Value*w.ThermalOptimization
	if tc.Environmental.Valid {
		total += tc.Environmental.Value * w.Environmental
	}
	return Of(total)
}

// InfrastructureScore averages land availability and utilities. When only
// one of them is known it stands alone; when neither is, the result is N/A.
func (c Calculator) InfrastructureScore(rc RedevComponents) Score {
	land, util := rc.LandAvailability, rc.Utilities
	switch {
	case land.Valid && util.Valid:
		return Of((land.Value + util.Value) / 2)
	case land.Valid:
		return land
	case util.Valid:
		return util
	default:
		return NA
	}
}

// RedevelopmentScore computes the weighted Redevelopment Score. Any missing
// dimension (market, infrastructure, interconnection) yields N/A. Otherwise a
// zero in any dimension vetoes the whole score to 0. Repower projects are
// scaled by RepowerMultiplier, all others by CoLocateMultiplier.
func (c Calculator) RedevelopmentScore(rc RedevComponents, repower bool) Score {
	infra := c.InfrastructureScore(rc)
	if !rc.Market.Valid || !infra.Valid || !rc.Interconnection.Valid {
		return NA
	}
	if rc.Market.Value == 0 || infra.Value == 0 || rc.Interconnection.Value == 0 {
		return Of(0)
	}

	w := c.cfg.Redevelopment
	base := rc.Market.Value*w.Market + infra.Value*w.Infra + rc.Interconnection.Value*w.Interconnection
	return Of(base * c.multiplier(repower))
}

func (c Calculator) multiplier(repower bool) float64 {
	if repower {
		return c.cfg.RepowerMultiplier
	}
	return c.cfg.CoLocateMultiplier
}

// OverallScore adds the two aggregates. Either being N/A makes it N/A.
func (c Calculator) OverallScore(thermal, redev Score) Score {
	if !thermal.Valid || !redev.Valid {
		return NA
	}
	return Of(thermal.Value + redev.Value)
}

// IsRepower reports whether a co-locate/repower flag marks a repower project.
func IsRepower(flag string) bool {
	return strings.EqualFold(strings.TrimSpace(flag), "repower")
}

var defaultCalculator = NewCalculator(DefaultConfig())

// CalculateThermalScore computes the Thermal Operating Score with the default weights.
func CalculateThermalScore(tc ThermalComponents) Score {
	return defaultCalculator.ThermalScore(tc)
}

// CalculateRedevelopmentScore computes the Redevelopment Score with the default weights.
func CalculateRedevelopmentScore(rc RedevComponents, repower bool) Score {
	return defaultCalculator.RedevelopmentScore(rc, repower)
}

// CalculateOverallScore adds the two aggregates.
func CalculateOverallScore(thermal, redev Score) Score {
	return defaultCalculator.OverallScore(thermal, redev)
}
