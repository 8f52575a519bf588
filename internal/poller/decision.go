package poller

import (
	"math"
	"time"

	"crypto-advisor/internal/types"
)

const (
	DefaultAdviceMaxAge      = 4 * time.Hour
	DefaultAdvicePriceChange = 10.0
)

// DecisionRule decides when the advice timer should ask for a new recommendation
type DecisionRule struct {
	MaxAge        time.Duration
	PercentChange float64
}

// ShouldRequestAdvice is true when there is no previous recommendation, when
// the price moved more than PercentChange percent since it was issued, or when
// it is older than MaxAge. Both thresholds are strict.
func (r DecisionRule) ShouldRequestAdvice(last *types.Recommendation, asset types.Asset, now time.Time) bool {
	if last == nil {
		return true
	}
	if PriceChangePercent(last.Asset.CurrentPrice, asset.CurrentPrice) > r.PercentChange {
		return true
	}
	return now.Sub(last.CreatedAt) > r.MaxAge
}

// PriceChangePercent is the absolute change from before to after in percent.
// Unknown (zero or negative) prices count as no change.
func PriceChangePercent(before, after float64) float64 {
	if before <= 0 || after <= 0 {
		return 0
	}
	return math.Abs((after-before)/before) * 100
}
