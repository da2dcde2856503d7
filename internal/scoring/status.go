package scoring

// Status is the lifecycle status of an asset.
type Status string

const (
	StatusOperating Status = "Operating"
	StatusFuture    Status = "Future"
	StatusUnknown   Status = "Unknown"
)

// CalculateStatus derives a lifecycle status from COD strings. The
// redevelopment COD takes priority over the legacy COD. A COD year equal to
// currentYear counts as Operating.
func CalculateStatus(legacyCOD, redevCOD string, currentYear int) Status {
	for _, cod := range []string{redevCOD, legacyCOD} {
		year, ok := ExtractYear(cod)
		if !ok {
			continue
		}
		if year > currentYear {
			return StatusFuture
		}
		return StatusOperating
	}
	return StatusUnknown
}
