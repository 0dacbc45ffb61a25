// Package levels finds swing-point support and resistance levels and answers
// proximity and breakout questions about them.
package levels

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"FxSentinel/internal/model"
)

// Defaults mirror the values used by the decision pipeline.
const (
	DefaultWindow      = 20
	DefaultLookback    = 1000
	DefaultMaxLevels   = 3
	DefaultNearATRK    = 0.35
	DefaultBreakoutK   = 0.20
	DefaultFallbackAbs = 0.002
	DefaultBreakoutEps = 1e-6
)

// Levels holds supports below price (nearest first) and resistances above
// price (nearest first).
type Levels struct {
	Supports    []float64
	Resistances []float64
}

// Find collects swing highs and lows over the newest lookback bars. A bar is a
// swing high when its high is strictly above every high in the window bars on
// either side (swing lows mirror this on lows). Levels on the wrong side of the
// last close are dropped and each side is truncated to maxLevels.
func Find(bars []model.OHLCV, window, lookback, maxLevels int) Levels {
	n := len(bars)
	if n == 0 || window <= 0 {
		return Levels{}
	}
	price := bars[n-1].Close

	start := window
	if lookback > 0 && n-lookback > start {
		start = n - lookback
	}

	var supports, resistances []float64
	for i := start; i < n-window; i++ {
		if isSwingHigh(bars, i, window) && bars[i].High > price {
			resistances = append(resistances, bars[i].High)
		}
		if isSwingLow(bars, i, window) && bars[i].Low < price {
			supports = append(supports, bars[i].Low)
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))
	sort.Float64s(resistances)
	return Levels{
		Supports:    truncate(supports, maxLevels),
		Resistances: truncate(resistances, maxLevels),
	}
}

func isSwingHigh(bars []model.OHLCV, i, window int) bool {
	for j := i - window; j <= i+window; j++ {
		if j != i && bars[j].High >= bars[i].High {
			return false
		}
	}
	return true
}

func isSwingLow(bars []model.OHLCV, i, window int) bool {
	for j := i - window; j <= i+window; j++ {
		if j != i && bars[j].Low <= bars[i].Low {
			return false
		}
	}
	return true
}

func truncate(v []float64, max int) []float64 {
	if max > 0 && len(v) > max {
		return v[:max]
	}
	return v
}

// Empty reports whether no level was found on either side.
func (l Levels) Empty() bool {
	return len(l.Supports) == 0 && len(l.Resistances) == 0
}

func (l Levels) all() []float64 {
	out := make([]float64, 0, len(l.Supports)+len(l.Resistances))
	out = append(out, l.Supports...)
	return append(out, l.Resistances...)
}

// NearestDistance returns the absolute distance from price to the closest level.
func (l Levels) NearestDistance(price float64) (float64, bool) {
	levels := l.all()
	if len(levels) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, lvl := range levels {
		best = math.Min(best, math.Abs(price-lvl))
	}
	return best, true
}

// IsNear reports whether price is within threshold (price units) of any level.
func (l Levels) IsNear(price, threshold float64) bool {
	d, ok := l.NearestDistance(price)
	return ok && d <= threshold
}

// IsNearATR uses k x ATR as the proximity threshold, falling back to the
// absolute threshold when atr is not positive.
func (l Levels) IsNearATR(price, atr, k, fallbackAbs float64) bool {
	if atr <= 0 || math.IsNaN(atr) {
		return l.IsNear(price, fallbackAbs)
	}
	return l.IsNear(price, k*atr)
}

// IsBreakout reports whether price cleared the extreme level in direction:
// above the highest resistance for BUY, below the lowest support for SELL.
// The clearance is k x ATR, or eps when atr is not positive.
func (l Levels) IsBreakout(price float64, dir model.Direction, atr, k, eps float64) bool {
	buffer := eps
	if atr > 0 && !math.IsNaN(atr) {
		buffer = k * atr
	}
	return l.ClearsBy(price, dir, buffer)
}

// ClearsBy reports whether price is beyond the extreme level in direction by
// more than buffer.
func (l Levels) ClearsBy(price float64, dir model.Direction, buffer float64) bool {
	switch dir {
	case model.Buy:
		if len(l.Resistances) == 0 {
			return false
		}
		return price > maxOf(l.Resistances)+buffer
	case model.Sell:
		if len(l.Supports) == 0 {
			return false
		}
		return price < minOf(l.Supports)-buffer
	}
	return false
}

func maxOf(v []float64) float64 {
	m := math.Inf(-1)
	for _, x := range v {
		m = math.Max(m, x)
	}
	return m
}

func minOf(v []float64) float64 {
	m := math.Inf(1)
	for _, x := range v {
		m = math.Min(m, x)
	}
	return m
}

// Summary renders the levels for log lines.
func (l Levels) Summary(price, atr float64) string {
	var parts []string
	if len(l.Supports) > 0 {
		parts = append(parts, "S="+join(l.Supports))
	}
	if len(l.Resistances) > 0 {
		parts = append(parts, "R="+join(l.Resistances))
	}
	if d, ok := l.NearestDistance(price); ok {
		parts = append(parts, fmt.Sprintf("nearest=%.5f", d))
	}
	if atr > 0 {
		parts = append(parts, fmt.Sprintf("ATR=%.5f", atr))
	}
	if len(parts) == 0 {
		return "no levels"
	}
	return strings.Join(parts, " | ")
}

func join(v []float64) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = fmt.Sprintf("%.5f", x)
	}
	return strings.Join(s, ", ")
}
