package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedevRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"I", 1},
		{"1", 1},
		{"ii", 2},
		{"2", 2},
		{"III", 3},
		{"iv", 4},
		{"V", 5},
		{"5", 5},
		{" Tier II ", 2},
		{"", Unranked},
		{"VI", Unranked},
		{"owned", Unranked},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RedevRank(tt.in))
		})
	}
}

func TestMARank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"owned", 0},
		{"Exclusivity", 1},
		{"second round", 2},
		{"Second  Round", 2},
		{"FIRST ROUND", 3},
		{"pipeline", 4},
		{"Passed", 5},
		{"2", 2},
		{"II", 2},
		{"", Unranked},
		{"on hold", Unranked},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MARank(tt.in))
		})
	}
}

func TestSortRedev(t *testing.T) {
	t.Parallel()

	in := []string{"II", "0", "IV", "I"}
	assert.Equal(t, []string{"0", "I", "II", "IV"}, SortRedev(in))
	assert.Equal(t, []string{"II", "0", "IV", "I"}, in, "input is not mutated")
}

func TestSortRedev_UnrankedLastAndStable(t *testing.T) {
	t.Parallel()

	got := SortRedev([]string{"", "III", "bogus", "2", "1"})
	assert.Equal(t, []string{"1", "2", "III", "", "bogus"}, got)
}

func TestSortMA(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"owned", "pipeline", "passed"}, SortMA([]string{"passed", "owned", "pipeline"}))
	assert.Equal(t,
		[]string{"Owned", "Exclusivity", "Second Round", "First Round", "Pipeline", "Passed", "?"},
		SortMA([]string{"?", "Passed", "First Round", "Owned", "Pipeline", "Second Round", "Exclusivity"}),
	)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, CompareRedev("2", "II"))
	assert.Equal(t, -1, CompareRedev("I", "V"))
	assert.Equal(t, 1, CompareMA("passed", "owned"))
	assert.Equal(t, 0, CompareMA("", "unknown"))
}
