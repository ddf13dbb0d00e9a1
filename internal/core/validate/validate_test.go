package validate

import (
	"reflect"
	"testing"

	"github.com/lottopipe/lottopipe/internal/core/domain"
)

func validDraw(round int) domain.DrawResult {
	return domain.DrawResult{
		Round:   round,
		Date:    "2026-08-22",
		Numbers: []int{3, 11, 17, 24, 38, 45},
		Bonus:   7,
		Prizes: []domain.PrizeTier{
			{Rank: 1, Winners: 12, Amount: 2_300_000_000},
			{Rank: 2, Winners: 80, Amount: 54_000_000},
			{Rank: 3, Winners: 2900, Amount: 1_500_000},
			{Rank: 4, Winners: 140000, Amount: 50_000},
			{Rank: 5, Winners: 2400000, Amount: 5_000},
		},
	}
}

func TestValidNumber(t *testing.T) {
	tests := []struct {
		n    int
		want bool
	}{
		{1, true}, {45, true}, {23, true},
		{0, false}, {46, false}, {-3, false},
	}
	for _, tt := range tests {
		if got := ValidNumber(tt.n); got != tt.want {
			t.Errorf("ValidNumber(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestValidNumberSet(t *testing.T) {
	tests := []struct {
		name string
		xs   []int
		want bool
	}{
		{"valid", []int{1, 2, 3, 4, 5, 45}, true},
		{"too few", []int{1, 2, 3, 4, 5}, false},
		{"too many", []int{1, 2, 3, 4, 5, 6, 7}, false},
		{"duplicate", []int{1, 2, 3, 4, 5, 5}, false},
		{"out of range", []int{1, 2, 3, 4, 5, 46}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		if got := ValidNumberSet(tt.xs); got != tt.want {
			t.Errorf("%s: ValidNumberSet(%v) = %v, want %v", tt.name, tt.xs, got, tt.want)
		}
	}
}

func TestValidDate(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"2026-08-22", true},
		{"2026-2-1", false},   // no zero padding
		{"2026-02-30", false}, // does not round-trip
		{"22-08-2026", false},
		{"garbage", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidDate(tt.s); got != tt.want {
			t.Errorf("ValidDate(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestValidRound(t *testing.T) {
	tests := []struct {
		r    int
		want bool
	}{
		{1, true}, {1184, true}, {9999, true},
		{0, false}, {-1, false}, {10000, false},
	}
	for _, tt := range tests {
		if got := ValidRound(tt.r); got != tt.want {
			t.Errorf("ValidRound(%d) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.DrawResult)
	}{
		{"zero round", func(d *domain.DrawResult) { d.Round = 0 }},
		{"round above ceiling", func(d *domain.DrawResult) { d.Round = 10000 }},
		{"bad date", func(d *domain.DrawResult) { d.Date = "2026-13-01" }},
		{"seven numbers", func(d *domain.DrawResult) { d.Numbers = append(d.Numbers, 9) }},
		{"duplicate number", func(d *domain.DrawResult) { d.Numbers[5] = d.Numbers[0] }},
		{"bonus out of range", func(d *domain.DrawResult) { d.Bonus = 46 }},
		{"bonus collision", func(d *domain.DrawResult) { d.Bonus = d.Numbers[2] }},
		{"missing prize tier", func(d *domain.DrawResult) { d.Prizes = d.Prizes[:4] }},
		{"negative winners", func(d *domain.DrawResult) { d.Prizes[1].Winners = -1 }},
		{"negative amount", func(d *domain.DrawResult) { d.Prizes[4].Amount = -500 }},
	}
	for _, tt := range tests {
		d := validDraw(100)
		d.Numbers = append([]int(nil), d.Numbers...)
		d.Prizes = append([]domain.PrizeTier(nil), d.Prizes...)
		tt.mutate(&d)
		if _, err := Validate(d); err == nil {
			t.Errorf("%s: Validate accepted an invalid draw", tt.name)
		}
	}
}

func TestValidateAcceptsValidDraw(t *testing.T) {
	d := validDraw(1184)
	got, err := Validate(d)
	if err != nil {
		t.Fatalf("Validate rejected a valid draw: %v", err)
	}
	if !reflect.DeepEqual(got, d) {
		t.Errorf("Validate altered the draw: got %+v, want %+v", got, d)
	}
}

func TestCleanBatchFiltersSortsDedupes(t *testing.T) {
	bad := validDraw(1182)
	bad.Numbers = append(bad.Numbers, 9) // seven numbers

	dupe := validDraw(1183)
	dupe.Bonus = 8 // distinguishable from the first 1183 entry

	in := []domain.DrawResult{
		validDraw(1181),
		bad,
		validDraw(1183),
		dupe,
		validDraw(1184),
	}

	out := CleanBatch(in)

	wantRounds := []int{1184, 1183, 1181}
	if len(out) != len(wantRounds) {
		t.Fatalf("CleanBatch returned %d draws, want %d", len(out), len(wantRounds))
	}
	for i, r := range wantRounds {
		if out[i].Round != r {
			t.Errorf("out[%d].Round = %d, want %d", i, out[i].Round, r)
		}
	}
	// First occurrence wins for the duplicated round.
	if out[1].Bonus != 7 {
		t.Errorf("dedup kept the later occurrence of round 1183")
	}
}

func TestCleanBatchIdempotent(t *testing.T) {
	in := []domain.DrawResult{validDraw(3), validDraw(1), validDraw(2), validDraw(2)}
	once := CleanBatch(in)
	twice := CleanBatch(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("CleanBatch is not idempotent: %v vs %v", once, twice)
	}
}

func TestCleanBatchNeverDuplicatesRounds(t *testing.T) {
	in := []domain.DrawResult{validDraw(5), validDraw(5), validDraw(5), validDraw(4)}
	out := CleanBatch(in)
	seen := map[int]bool{}
	for _, d := range out {
		if seen[d.Round] {
			t.Fatalf("round %d appears twice", d.Round)
		}
		seen[d.Round] = true
	}
	if len(out) > len(in) {
		t.Errorf("CleanBatch grew the batch: %d > %d", len(out), len(in))
	}
}
