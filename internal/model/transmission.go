package model

import (
	"strconv"
	"strings"
)

// TransmissionPoint is one point of interconnection parsed from the
// "Transmission Data" column.
type TransmissionPoint struct {
	Voltage            string  `json:"voltage"`
	InjectionCapacity  float64 `json:"injection_capacity"`
	WithdrawalCapacity float64 `json:"withdrawal_capacity"`
	Constraints        string  `json:"constraints"`
	HasExcessCapacity  bool    `json:"has_excess_capacity"`
}

// ParseTransmission parses the packed transmission string
// "69 kV|143.9|144.2|-|true;138 kV|549.5|95.5|-|true".
// Points with fewer than five fields are dropped; unparseable capacities read as 0.
func ParseTransmission(s string) []TransmissionPoint {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var points []TransmissionPoint
	for _, raw := range strings.Split(s, ";") {
		parts := strings.Split(raw, "|")
		if len(parts) < 5 {
			continue
		}
		inj, _ := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		wd, _ := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		points = append(points, TransmissionPoint{
			Voltage:            strings.TrimSpace(parts[0]),
			InjectionCapacity:  inj,
			WithdrawalCapacity: wd,
			Constraints:        strings.TrimSpace(parts[3]),
			HasExcessCapacity:  strings.EqualFold(strings.TrimSpace(parts[4]), "true"),
		})
	}
	return points
}

// HasExcessCapacity reports whether any point of interconnection has excess capacity.
func HasExcessCapacity(points []TransmissionPoint) bool {
	for _, p := range points {
		if p.HasExcessCapacity {
			return true
		}
	}
	return false
}
