// Package analysis folds validated draws into the cacheable statistics
// and frequency payloads served by the facade. The number-generation
// heuristics live outside this repository; these reducers only count.
package analysis

import (
	"sort"

	"github.com/lottopipe/lottopipe/internal/core/domain"
)

// FrequencyType selects which numbers a frequency analysis counts.
type FrequencyType string

const (
	FrequencyMain  FrequencyType = "main"  // six main numbers only
	FrequencyBonus FrequencyType = "bonus" // bonus number only
	FrequencyAll   FrequencyType = "all"   // main numbers plus bonus
)

// Frequency is the per-number appearance count over a window of rounds.
type Frequency struct {
	Type   FrequencyType `json:"type"`
	Rounds int           `json:"rounds"`
	Counts map[int]int   `json:"counts"`
}

// Statistics summarizes a window of rounds. Extended adds the sum and
// parity distributions.
type Statistics struct {
	Rounds     int            `json:"rounds"`
	Hot        []int          `json:"hot"`  // most frequent main numbers, ties by number
	Cold       []int          `json:"cold"` // least frequent main numbers
	Extended   bool           `json:"extended"`
	OddEven    map[string]int `json:"odd_even,omitempty"` // odd/even counts, extended only
	SumMin     int            `json:"sum_min,omitempty"`
	SumMax     int            `json:"sum_max,omitempty"`
	SumAverage float64        `json:"sum_average,omitempty"`
}

// Frequencies counts number appearances across draws.
func Frequencies(draws []domain.DrawResult, typ FrequencyType) Frequency {
	counts := make(map[int]int)
	for _, d := range draws {
		if typ == FrequencyMain || typ == FrequencyAll {
			for _, n := range d.Numbers {
				counts[n]++
			}
		}
		if typ == FrequencyBonus || typ == FrequencyAll {
			counts[d.Bonus]++
		}
	}
	return Frequency{Type: typ, Rounds: len(draws), Counts: counts}
}

// Summarize builds the statistics payload for a window of draws.
func Summarize(draws []domain.DrawResult, extended bool) Statistics {
	s := Statistics{Rounds: len(draws), Extended: extended}
	if len(draws) == 0 {
		return s
	}

	freq := Frequencies(draws, FrequencyMain).Counts
	s.Hot = topNumbers(freq, 6, true)
	s.Cold = topNumbers(freq, 6, false)

	if !extended {
		return s
	}

	s.OddEven = map[string]int{"odd": 0, "even": 0}
	s.SumMin = -1
	var sumTotal int
	for _, d := range draws {
		sum := 0
		for _, n := range d.Numbers {
			sum += n
			if n%2 == 0 {
				s.OddEven["even"]++
			} else {
				s.OddEven["odd"]++
			}
		}
		if s.SumMin < 0 || sum < s.SumMin {
			s.SumMin = sum
		}
		if sum > s.SumMax {
			s.SumMax = sum
		}
		sumTotal += sum
	}
	s.SumAverage = float64(sumTotal) / float64(len(draws))
	return s
}

// topNumbers returns the n most (or least) frequent numbers. Numbers
// that never appeared count as zero so cold sets stay meaningful.
func topNumbers(freq map[int]int, n int, most bool) []int {
	all := make([]int, 0, domain.MaxNumber)
	for num := domain.MinNumber; num <= domain.MaxNumber; num++ {
		all = append(all, num)
	}
	sort.SliceStable(all, func(i, j int) bool {
		fi, fj := freq[all[i]], freq[all[j]]
		if fi != fj {
			if most {
				return fi > fj
			}
			return fi < fj
		}
		return all[i] < all[j]
	})
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}
