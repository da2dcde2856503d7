package scoring

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Named multipliers applied to the redevelopment score.
const (
	// DefaultRepowerMultiplier discounts repower projects, which replace the
	// existing unit instead of adding capacity beside it. Business owners
	// may override it through configuration.
	DefaultRepowerMultiplier = 0.75
	// DefaultCoLocateMultiplier applies to every non-repower project.
	DefaultCoLocateMultiplier = 1.0
)

// ThermalWeights weighs the Thermal Operating Score components.
type ThermalWeights struct {
	COD                 float64 `mapstructure:"cod" yaml:"cod" json:"cod"`
	Markets             float64 `mapstructure:"markets" yaml:"markets" json:"markets"`
	Transactability     float64 `mapstructure:"transactability" yaml:"transactability" json:"transactability"`
	ThermalOptimization float64 `mapstructure:"thermal_optimization" yaml:"thermal_optimization" json:"thermal_optimization"`
	Environmental       float64 `mapstructure:"environmental" yaml:"environmental" json:"environmental"`
}

// Sum returns the sum of all thermal weights.
func (w ThermalWeights) Sum() float64 {
	return w.COD + w.Markets + w.Transactability + w.ThermalOptimization + w.Environmental
}

// RedevWeights weighs the Redevelopment Score components.
type RedevWeights struct {
	Market          float64 `mapstructure:"market" yaml:"market" json:"market"`
	Infra           float64 `mapstructure:"infra" yaml:"infra" json:"infra"`
	Interconnection float64 `mapstructure:"interconnection" yaml:"interconnection" json:"interconnection"`
}

// Sum returns the sum of all redevelopment weights.
func (w RedevWeights) Sum() float64 {
	return w.Market + w.Infra + w.Interconnection
}

// Config holds the tunable weight tables and multipliers. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	Thermal            ThermalWeights `mapstructure:"thermal" yaml:"thermal" json:"thermal"`
	Redevelopment      RedevWeights   `mapstructure:"redevelopment" yaml:"redevelopment" json:"redevelopment"`
	RepowerMultiplier  float64        `mapstructure:"repower_multiplier" yaml:"repower_multiplier" json:"repower_multiplier"`
	CoLocateMultiplier float64        `mapstructure:"colocate_multiplier" yaml:"colocate_multiplier" json:"colocate_multiplier"`
}

// DefaultConfig returns the production weight tables. Each table sums to 1.
func DefaultConfig() Config {
	return Config{
		Thermal: ThermalWeights{
			COD:                 0.20,
			Markets:             0.30,
			Transactability:     0.30,
			ThermalOptimization: 0.05,
			Environmental:       0.15,
		},
		Redevelopment: RedevWeights{
			Market:          0.40,
			Infra:           0.30,
			Interconnection: 0.30,
		},
		RepowerMultiplier:  DefaultRepowerMultiplier,
		CoLocateMultiplier: DefaultCoLocateMultiplier,
	}
}

// Validate checks that a Config is internally consistent and reports every
// problem at once.
func (c Config) Validate() error {
	var errs []string

	weights := map[string]float64{
		"thermal.cod":                   c.Thermal.COD,
		"thermal.markets":               c.Thermal.Markets,
		"thermal.transactability":       c.Thermal.Transactability,
		"thermal.thermal_optimization":  c.Thermal.ThermalOptimization,
		"thermal.environmental":         c.Thermal.Environmental,
		"redevelopment.market":          c.Redevelopment.Market,
		"redevelopment.infra":           c.Redevelopment.Infra,
		"redevelopment.interconnection": c.Redevelopment.Interconnection,
	}
	for _, name := range slices.Sorted(maps.Keys(weights)) {
		if weights[name] < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if sum := c.Thermal.Sum(); math.Abs(sum-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("thermal weights should sum to 1, got %.2f", sum))
	}
	if sum := c.Redevelopment.Sum(); math.Abs(sum-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("redevelopment weights should sum to 1, got %.2f", sum))
	}

	if c.RepowerMultiplier <= 0 || c.RepowerMultiplier > 1 {
		errs = append(errs, "repower_multiplier must be in (0, 1]")
	}
	if c.CoLocateMultiplier <= 0 || c.CoLocateMultiplier > 1 {
		errs = append(errs, "colocate_multiplier must be in (0, 1]")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Hash returns a SHA-256 hash of the config, stored alongside score snapshots
// so a snapshot can be traced to the weights that produced it.
func (c Config) Hash() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16]) // 32 hex chars
}
