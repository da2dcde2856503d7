// Package tier orders the two business-defined tier scales used to
// prioritize opportunities: the Redevelopment Tier (0, I through V) and the
// M&A Tier (owned through passed).
package tier

import (
	"cmp"
	"slices"
	"strings"
)

// Unranked is the rank of a missing or unrecognized tier. It sorts after
// every known tier.
const Unranked = 999

// numeralRanks maps numeral and roman-numeral spellings to their rank.
var numeralRanks = map[string]int{
	"0": 0,
	"1": 1, "I": 1,
	"2": 2, "II": 2,
	"3": 3, "III": 3,
	"4": 4, "IV": 4,
	"5": 5, "V": 5,
}

// maRanks is the fixed M&A pipeline order.
var maRanks = map[string]int{
	"OWNED":        0,
	"EXCLUSIVITY":  1,
	"SECOND ROUND": 2,
	"FIRST ROUND":  3,
	"PIPELINE":     4,
	"PASSED":       5,
}

func normalize(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	s = strings.TrimPrefix(s, "TIER ")
	return s
}

// RedevRank returns the rank of a redevelopment tier label.
func RedevRank(label string) int {
	if r, ok := numeralRanks[normalize(label)]; ok {
		return r
	}
	return Unranked
}

// MARank returns the rank of an M&A tier label. Numeral and roman-numeral
// spellings of 0 through 5 are accepted as the rank itself.
func MARank(label string) int {
	n := normalize(label)
	if r, ok := maRanks[n]; ok {
		return r
	}
	if r, ok := numeralRanks[n]; ok {
		return r
	}
	return Unranked
}

// CompareRedev orders two redevelopment tier labels.
func CompareRedev(a, b string) int { return cmp.Compare(RedevRank(a), RedevRank(b)) }

// CompareMA orders two M&A tier labels.
func CompareMA(a, b string) int { return cmp.Compare(MARank(a), MARank(b)) }

// SortRedev returns a stably sorted copy of labels in ascending tier order.
func SortRedev(labels []string) []string {
	out := slices.Clone(labels)
	slices.SortStableFunc(out, CompareRedev)
	return out
}

// SortMA returns a stably sorted copy of labels in M&A pipeline order.
func SortMA(labels []string) []string {
	out := slices.Clone(labels)
	slices.SortStableFunc(out, CompareMA)
	return out
}
