// Package scoring converts raw power-plant attributes into component scores,
// the Thermal Operating and Redevelopment aggregates, an overall rating and a
// lifecycle status. Every function in this package is pure: no I/O, no
// logging and no package-level mutable state.
package scoring

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Score is a component or aggregate score that may be missing.
// The zero value is missing (N/A), which is distinct from a known score of 0.
type Score struct {
	Value float64
	Valid bool
}

// NA is the missing score.
var NA = Score{}

// Of returns a known score.
func Of(v float64) Score {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return Score{Value: v, Valid: true}
}

// IsNA reports whether the score is missing.
func (s Score) IsNA() bool { return !s.Valid }

// Float64 returns the value and whether it is known.
func (s Score) Float64() (float64, bool) { return s.Value, s.Valid }

// Format renders the score with the given number of decimals, or "N/A".
func (s Score) Format(decimals int) string {
	if !s.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(s.Value, 'f', decimals, 64)
}

// String renders the score with two decimals, or "N/A".
func (s Score) String() string { return s.Format(2) }

// Round returns the score rounded to two decimals. Missing stays missing.
func (s Score) Round() Score {
	if !s.Valid {
		return NA
	}
	return Of(math.Round(s.Value*100) / 100)
}

// Clamp limits a known score to [lo, hi]. Missing stays missing, so
// Clamp(Clamp(s)) == Clamp(s).
func Clamp(s Score, lo, hi float64) Score {
	if !s.Valid {
		return NA
	}
	return Of(math.Max(lo, math.Min(hi, s.Value)))
}

// MarshalJSON encodes a missing score as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts null, a number, or any raw cell text understood by
// ParseExternalScalar.
func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = NA
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*s = ParseExternalScalar(v)
	return nil
}
