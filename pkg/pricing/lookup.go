package pricing

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var (
	ErrUnknownRegion   = errors.New("unknown pricing region")
	ErrUnknownInterval = errors.New("unknown billing interval")
)

// Quote is a plan resolved for one region and billing interval.
type Quote struct {
	Plan      string    `json:"plan"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	BestValue bool      `json:"best_value"`
	PerPeriod bool      `json:"per_period"`
	Features  []Feature `json:"features"`
}

func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, s)
	}
	return r, nil
}

func ParseInterval(s string) (Interval, error) {
	switch i := Interval(strings.ToLower(strings.TrimSpace(s))); i {
	case Monthly, Yearly:
		return i, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
}

// Lookup resolves every plan of region in display order.
func Lookup(region Region, interval Interval) ([]Quote, error) {
	plans, ok := catalog[region]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	if interval != Monthly && interval != Yearly {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}

	quotes := make([]Quote, 0, len(planOrder))
	for _, key := range planOrder {
		p := plans[key]

		price := p.Flat
		perPeriod := p.Flat == ""
		if perPeriod {
			price, ok = p.ByPeriod[interval]
			if !ok {
				return nil, fmt.Errorf("plan %s in %s has no %s price", p.Key, region, interval)
			}
		}
		if p.BestValue {
			price = BestValueLabel + price
		}

		quotes = append(quotes, Quote{
			Plan:      p.Key,
			Name:      p.Name,
			Price:     price,
			BestValue: p.BestValue,
			PerPeriod: perPeriod,
			Features:  append([]Feature(nil), p.Features...),
		})
	}
	return quotes, nil
}

// MustLookup is Lookup for callers holding compile-time constants.
func MustLookup(region Region, interval Interval) []Quote {
	q, err := Lookup(region, interval)
	if err != nil {
		panic(err)
	}
	return q
}

// DetectRegion guesses a default region from an Accept-Language header.
// The result only pre-selects a tab for display; nothing billing related
// may depend on it.
func DetectRegion(acceptLanguage string) Region {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultRegion
	}
	if r, conf := tags[0].Region(); conf == language.Exact && r.String() == "IN" {
		return RegionIndia
	}
	return DefaultRegion
}
