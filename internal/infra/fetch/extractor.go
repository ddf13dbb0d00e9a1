package fetch

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lottopipe/lottopipe/internal/core/domain"
)

// Extractor turns raw page content into candidate draw records. It is
// separated from the transport so extraction can be exercised against
// saved fixture pages without the network.
type Extractor interface {
	Extract(page io.Reader) (domain.DrawResult, error)
}

// PageExtractor reads the source's result markup by structural position:
// a round label, a draw date, six number elements, one bonus element and
// a prize table with five tier rows.
type PageExtractor struct{}

// NewPageExtractor returns the extractor for the source's result pages.
func NewPageExtractor() *PageExtractor {
	return &PageExtractor{}
}

var digitsRe = regexp.MustCompile(`\d+`)

// Extract parses one result page. It returns ErrNoData (wrapped in a
// ParseError) when the expected structure is absent; it never guesses
// missing values.
func (x *PageExtractor) Extract(page io.Reader) (domain.DrawResult, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return domain.DrawResult{}, &domain.ParseError{Field: "document", Err: err}
	}

	result := doc.Find(".draw-result").First()
	if result.Length() == 0 {
		return domain.DrawResult{}, &domain.ParseError{Field: "draw-result", Err: domain.ErrNoData}
	}

	round, err := parseRoundLabel(result.Find(".draw-round").First().Text())
	if err != nil {
		return domain.DrawResult{}, &domain.ParseError{Field: "round", Err: err}
	}

	date := strings.TrimSpace(result.Find(".draw-date").First().Text())
	if date == "" {
		return domain.DrawResult{}, &domain.ParseError{Round: round, Field: "date", Err: domain.ErrNoData}
	}

	var numbers []int
	var numErr error
	result.Find(".win-numbers .ball").Each(func(_ int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(s.Text()))
		if err != nil && numErr == nil {
			numErr = fmt.Errorf("number element %q: %w", s.Text(), err)
		}
		numbers = append(numbers, n)
	})
	if numErr != nil {
		return domain.DrawResult{}, &domain.ParseError{Round: round, Field: "numbers", Err: numErr}
	}
	if len(numbers) == 0 {
		return domain.DrawResult{}, &domain.ParseError{Round: round, Field: "numbers", Err: domain.ErrNoData}
	}

	bonusText := strings.TrimSpace(result.Find(".bonus-number .ball").First().Text())
	if bonusText == "" {
		return domain.DrawResult{}, &domain.ParseError{Round: round, Field: "bonus", Err: domain.ErrNoData}
	}
	bonus, err := strconv.Atoi(bonusText)
	if err != nil {
		return domain.DrawResult{}, &domain.ParseError{Round: round, Field: "bonus", Err: err}
	}

	prizes, err := parsePrizeTable(result)
	if err != nil {
		return domain.DrawResult{}, &domain.ParseError{Round: round, Field: "prizes", Err: err}
	}

	return domain.DrawResult{
		Round:   round,
		Date:    date,
		Numbers: numbers,
		Bonus:   bonus,
		Prizes:  prizes,
	}, nil
}

// parseRoundLabel pulls the round number out of a label such as
// "Round 1184" or "제1184회".
func parseRoundLabel(label string) (int, error) {
	m := digitsRe.FindString(label)
	if m == "" {
		return 0, fmt.Errorf("round label %q: %w", strings.TrimSpace(label), domain.ErrNoData)
	}
	return strconv.Atoi(m)
}

// parsePrizeTable reads the tier rows in order; tier 1 is the first row.
// Winner counts sit in the first cell, payouts in the second, both with
// thousands separators.
func parsePrizeTable(result *goquery.Selection) ([]domain.PrizeTier, error) {
	rows := result.Find(".prize-table tbody tr")
	if rows.Length() == 0 {
		return nil, errors.New("prize table missing")
	}

	var prizes []domain.PrizeTier
	var rowErr error
	rows.Each(func(i int, row *goquery.Selection) {
		if rowErr != nil {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			rowErr = fmt.Errorf("tier row %d has %d cells", i+1, cells.Length())
			return
		}
		winners, err := parseAmount(cells.Eq(0).Text())
		if err != nil {
			rowErr = fmt.Errorf("tier %d winners: %w", i+1, err)
			return
		}
		amount, err := parseAmount(cells.Eq(1).Text())
		if err != nil {
			rowErr = fmt.Errorf("tier %d amount: %w", i+1, err)
			return
		}
		prizes = append(prizes, domain.PrizeTier{Rank: i + 1, Winners: winners, Amount: amount})
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return prizes, nil
}

// parseAmount parses an integer that may carry thousands separators or a
// currency suffix.
func parseAmount(s string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, fmt.Errorf("no numeric value in %q", strings.TrimSpace(s))
	}
	return strconv.ParseInt(cleaned, 10, 64)
}
