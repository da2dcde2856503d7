package scoring

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// sentinels are spreadsheet cell values that mean "no data".
var sentinels = map[string]bool{
	"":        true,
	"#N/A":    true,
	"N/A":     true,
	"#VALUE!": true,
	"#REF!":   true,
}

var (
	leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	fourDigitYear = regexp.MustCompile(`\b(\d{4})\b`)
)

// IsSentinel reports whether raw cell text carries no data: blank, an Excel
// error value, or a formula that was exported unevaluated.
func IsSentinel(s string) bool {
	s = strings.TrimSpace(s)
	if sentinels[strings.ToUpper(s)] {
		return true
	}
	return strings.HasPrefix(s, "=") || strings.Contains(s, "XLOOKUP") || strings.Contains(s, "_xlfn")
}

// ParseExternalScalar is the single adapter between raw external values and
// the engine. It accepts nil, strings, Go numeric types, *float64, *string
// and json.Number. Blank cells, sentinels, NaN, Inf and text without a
// leading number are missing. Text is trimmed and thousands separators are
// dropped, so "1,250 MW" reads as 1250.
func ParseExternalScalar(v any) Score {
	switch x := v.(type) {
	case nil:
		return NA
	case Score:
		return x
	case string:
		return parseText(x)
	case *string:
		if x == nil {
			return NA
		}
		return parseText(*x)
	case json.Number:
		return parseText(x.String())
	case float64:
		return Of(x)
	case *float64:
		if x == nil {
			return NA
		}
		return Of(*x)
	case float32:
		return Of(float64(x))
	case int:
		return Of(float64(x))
	case int8:
		return Of(float64(x))
	case int16:
		return Of(float64(x))
	case int32:
		return Of(float64(x))
	case int64:
		return Of(float64(x))
	case uint:
		return Of(float64(x))
	case uint8:
		return Of(float64(x))
	case uint16:
		return Of(float64(x))
	case uint32:
		return Of(float64(x))
	case uint64:
		return Of(float64(x))
	default:
		return NA
	}
}

func parseText(s string) Score {
	if IsSentinel(s) {
		return NA
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := leadingNumber.FindString(s)
	if m == "" {
		return NA
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return NA
	}
	return Of(f)
}

// Text renders a raw scalar as cell text: sentinels become "", numbers use
// the shortest decimal form.
func Text(v any) string {
	s, _ := rawText(v)
	return s
}

// rawText returns trimmed text for a raw value, or false when the value is missing.
func rawText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		if IsSentinel(x) {
			return "", false
		}
		return strings.TrimSpace(x), true
	case *string:
		if x == nil {
			return "", false
		}
		return rawText(*x)
	default:
		s := ParseExternalScalar(v)
		if !s.Valid {
			return "", false
		}
		return strconv.FormatFloat(s.Value, 'f', -1, 64), true
	}
}

// ExtractYear finds a four-digit year in raw text or reads a numeric year.
// Years before 1900 are treated as unparseable.
func ExtractYear(v any) (int, bool) {
	var year int
	switch v.(type) {
	case string, *string:
		s, ok := rawText(v)
		if !ok {
			return 0, false
		}
		m := fourDigitYear.FindStringSubmatch(s)
		if m == nil {
			return 0, false
		}
		year, _ = strconv.Atoi(m[1])
	default:
		s := ParseExternalScalar(v)
		if !s.Valid {
			return 0, false
		}
		year = int(math.Trunc(s.Value))
	}
	if year < 1900 {
		return 0, false
	}
	return year, true
}

// CODToScore scores a commercial operation year: before 2000 is 3,
// 2000 through 2005 is 2, later is 1.
func CODToScore(v any) Score {
	year, ok := ExtractYear(v)
	if !ok {
		return NA
	}
	switch {
	case year < 2000:
		return Of(3)
	case year <= 2005:
		return Of(2)
	default:
		return Of(1)
	}
}

// marketTiers maps normalized ISO/RTO codes to their market score.
var marketTiers = map[string]float64{
	"PJM":        3,
	"NYISO":      3,
	"ISO-NE":     3,
	"MISO NORTH": 2,
	"SERC":       2,
	"SPP":        1,
	"MISO SOUTH": 1,
	"ERCOT":      0,
	"WECC":       0,
	"CAISO":      0,
}

// marketAliases maps alternate spellings to the canonical code.
var marketAliases = map[string]string{
	"ISONE":           "ISO-NE",
	"ISO NE":          "ISO-NE",
	"ISO NEW ENGLAND": "ISO-NE",
	"MISO N":          "MISO NORTH",
	"MISO-NORTH":      "MISO NORTH",
	"MISO S":          "MISO SOUTH",
	"MISO-SOUTH":      "MISO SOUTH",
}

// marketKeywords is searched in order when a code is not in marketTiers, so
// zone-qualified codes ("PJM East", "NYISO Zone J") resolve to their ISO.
var marketKeywords = []struct {
	score float64
	codes []string
}{
	{3, []string{"PJM", "NYISO", "ISO-NE", "ISONE", "ISO NE"}},
	{2, []string{"MISO NORTH", "MISO-NORTH", "MISO N", "SERC"}},
	{1, []string{"SPP", "MISO SOUTH", "MISO-SOUTH", "MISO S"}},
	{0, []string{"ERCOT", "WECC", "CAISO"}},
}

// DefaultMarketScore is returned for a non-empty market code that is not in
// the market table.
const DefaultMarketScore = 1

// NormalizeMarketCode upper-cases and collapses whitespace in a market code
// and resolves known aliases.
func NormalizeMarketCode(code string) string {
	c := strings.ToUpper(strings.Join(strings.Fields(code), " "))
	if alias, ok := marketAliases[c]; ok {
		return alias
	}
	return c
}

// MarketToScore scores an ISO/RTO market code.
func MarketToScore(v any) Score {
	s, ok := rawText(v)
	if !ok {
		return NA
	}
	return Of(marketScore(NormalizeMarketCode(s)))
}

func marketScore(code string) float64 {
	if score, ok := marketTiers[code]; ok {
		return score
	}
	for _, tier := range marketKeywords {
		for _, kw := range tier.codes {
			if strings.Contains(code, kw) {
				return tier.score
			}
		}
	}
	return DefaultMarketScore
}

// DefaultTransactabilityScore is returned for transactability text that
// matches no keyword.
const DefaultTransactabilityScore = 2

// TransactabilityToScore scores a transactability bracket. The bracket scale
// is inverted: bracket 1 (bilateral, developed relationship) scores 3,
// bracket 3 (competitive process) scores 1. Numbers outside 1–3 are missing.
// Free text is matched on keywords.
func TransactabilityToScore(v any) Score {
	s, ok := rawText(v)
	if !ok {
		return NA
	}
	if n := ParseExternalScalar(s); n.Valid {
		switch int(math.Trunc(n.Value)) {
		case 1:
			return Of(3)
		case 2:
			return Of(2)
		case 3:
			return Of(1)
		default:
			return NA
		}
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "bilateral") && strings.Contains(lower, "developed"):
		return Of(3)
	case strings.Contains(lower, "bilateral"), strings.Contains(lower, "process"):
		return Of(2)
	case strings.Contains(lower, "competitive"), strings.Contains(lower, ">10"):
		return Of(1)
	default:
		return Of(DefaultTransactabilityScore)
	}
}

// CapacityFactorToScore scores a capacity factor. Values above 1, or text
// with a percent sign, are read as percentages. Under 10% is 3, up to 25%
// is 2, higher is 1.
func CapacityFactorToScore(v any) Score {
	cf := ParseExternalScalar(v)
	if !cf.Valid {
		return NA
	}
	f := cf.Value
	if s, ok := v.(string); (ok && strings.Contains(s, "%")) || f > 1 {
		f /= 100
	}
	switch {
	case f < 0.10:
		return Of(3)
	case f <= 0.25:
		return Of(2)
	default:
		return Of(1)
	}
}

// ThermalOptimizationToScore scores the thermal optimization rating on [0, 2].
// Unlike the other components a missing value scores 0.
func ThermalOptimizationToScore(v any) Score {
	s := ParseExternalScalar(v)
	if !s.Valid {
		return Of(0)
	}
	return Clamp(s, 0, 2)
}

// EnvironmentalToScore clamps the environmental rating to [0, 3].
func EnvironmentalToScore(v any) Score { return Clamp(ParseExternalScalar(v), 0, 3) }

// RedevMarketToScore clamps the redevelopment market rating to [0, 3].
func RedevMarketToScore(v any) Score { return Clamp(ParseExternalScalar(v), 0, 3) }

// InfraToScore clamps an infrastructure rating (land or utilities) to [0, 3].
func InfraToScore(v any) Score { return Clamp(ParseExternalScalar(v), 0, 3) }

// IXToScore clamps the interconnection rating to [0, 3].
func IXToScore(v any) Score { return Clamp(ParseExternalScalar(v), 0, 3) }
