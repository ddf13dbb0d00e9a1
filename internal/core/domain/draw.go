package domain

import "time"

// NumberCount is how many main numbers one draw carries.
const NumberCount = 6

// Number range for a 6/45 draw.
const (
	MinNumber = 1
	MaxNumber = 45
)

// MaxRound is a sanity ceiling for round identifiers, not a domain limit.
const MaxRound = 10000

// PrizeTierCount is the number of prize tiers published per draw.
const PrizeTierCount = 5

// DateLayout is the wire format for draw dates.
const DateLayout = "2006-01-02"

// PrizeTier holds winner count and payout for one prize rank.
type PrizeTier struct {
	Rank    int   `json:"rank" db:"rank"`
	Winners int64 `json:"winners" db:"winners"`
	Amount  int64 `json:"amount" db:"amount"`
}

// DrawResult is the validated outcome of one weekly round. Values are
// immutable once built; mutation happens by constructing a new value.
type DrawResult struct {
	Round   int         `json:"round"`
	Date    string      `json:"date"` // YYYY-MM-DD
	Numbers []int       `json:"numbers"`
	Bonus   int         `json:"bonus"`
	Prizes  []PrizeTier `json:"prizes"`
}

// DrawDate parses the Date field. Callers should only see validated
// results, so a parse failure here indicates a bug upstream.
func (d DrawResult) DrawDate() (time.Time, error) {
	return time.Parse(DateLayout, d.Date)
}

// HasNumber reports whether n is one of the six main numbers.
func (d DrawResult) HasNumber(n int) bool {
	for _, v := range d.Numbers {
		if v == n {
			return true
		}
	}
	return false
}
