// Package rates ranks provider quotes by pluggable strategy. Ranking is a
// pure function with deterministic tie-breaking so results are reproducible
// across runs.
package rates

import (
	"slices"

	"github.com/courierhq/dispatch/pkg/api"
)

// Best-value weighting: delivery days are scaled to be comparable with
// price before the fixed 60/40 split
const (
	bestValuePriceWeight = 0.6
	bestValueDaysWeight  = 0.4
	bestValueDaysScale   = 10.0
)

// Rank returns the quotes ordered by the given strategy. The input slice is
// not modified. Unknown strategies rank as cheapest
func Rank(quotes []api.RateQuote, strategy api.Strategy) []api.RateQuote {
	ranked := slices.Clone(quotes)
	switch strategy {
	case api.StrategyFastest:
		slices.SortStableFunc(ranked, byFastest)
	case api.StrategyBestValue:
		slices.SortStableFunc(ranked, byBestValue)
	default:
		slices.SortStableFunc(ranked, byCheapest)
	}
	return ranked
}

// SelectBest returns the top-ranked quote, or false when quotes is empty
func SelectBest(
	quotes []api.RateQuote, strategy api.Strategy,
) (api.RateQuote, bool) {
	if len(quotes) == 0 {
		return api.RateQuote{}, false
	}
	return Rank(quotes, strategy)[0], true
}

// Score returns the weighted best-value score for a quote; lower is better
func Score(q api.RateQuote) float64 {
	return q.Price*bestValuePriceWeight +
		float64(q.DeliveryDays)*bestValueDaysScale*bestValueDaysWeight
}

// byCheapest orders by ascending price, then shorter delivery estimate,
// then provider id
func byCheapest(a, b api.RateQuote) int {
	if c := compareFloat(a.Price, b.Price); c != 0 {
		return c
	}
	if c := a.DeliveryDays - b.DeliveryDays; c != 0 {
		return c
	}
	return compareProvider(a, b)
}

// byFastest orders by ascending delivery days, then price
func byFastest(a, b api.RateQuote) int {
	if c := a.DeliveryDays - b.DeliveryDays; c != 0 {
		return c
	}
	if c := compareFloat(a.Price, b.Price); c != 0 {
		return c
	}
	return compareProvider(a, b)
}

// byBestValue orders by ascending weighted score, then price
func byBestValue(a, b api.RateQuote) int {
	if c := compareFloat(Score(a), Score(b)); c != 0 {
		return c
	}
	if c := compareFloat(a.Price, b.Price); c != 0 {
		return c
	}
	return compareProvider(a, b)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareProvider(a, b api.RateQuote) int {
	switch {
	case a.Provider < b.Provider:
		return -1
	case a.Provider > b.Provider:
		return 1
	}
	return 0
}
