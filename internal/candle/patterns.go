// Package candle classifies the newest one to three bars of a series into
// candlestick reversal patterns. Every predicate reads the tail of the slice
// it is given and returns false when there are too few bars.
package candle

import (
	"math"

	"FxSentinel/internal/model"
)

const (
	wickBodyRatio  = 2.0  // hammer / shooting star / doji wick vs body
	dojiBodyRatio  = 0.1  // body vs range
	starBodyRatio  = 0.2  // middle star body vs its range
	tweezerTol     = 1e-5 // absolute high/low match
	negligibleWick = 0.1  // opposite doji wick vs range
)

// Pattern is one entry of the classifier table.
type Pattern struct {
	Name      string
	Direction model.Direction // None for indecision patterns
	Bars      int
	Match     func(bars []model.OHLCV) bool
}

// Patterns lists every pattern in evaluation order: BUY set, SELL set, neutral.
var Patterns = []Pattern{
	{"Bullish Engulfing", model.Buy, 2, IsBullishEngulfing},
	{"Hammer", model.Buy, 1, IsHammer},
	{"Dragonfly Doji", model.Buy, 1, IsDragonflyDoji},
	{"Tweezer Bottom", model.Buy, 2, IsTweezerBottom},
	{"Bullish Harami", model.Buy, 2, IsBullishHarami},
	{"Morning Star", model.Buy, 3, IsMorningStar},

	{"Bearish Engulfing", model.Sell, 2, IsBearishEngulfing},
	{"Shooting Star", model.Sell, 1, IsShootingStar},
	{"Gravestone Doji", model.Sell, 1, IsGravestoneDoji},
	{"Tweezer Top", model.Sell, 2, IsTweezerTop},
	{"Bearish Harami", model.Sell, 2, IsBearishHarami},
	{"Evening Star", model.Sell, 3, IsEveningStar},

	{"Doji", model.None, 1, IsDoji},
}

// ForDirection returns the patterns tagged with dir, in table order.
func ForDirection(dir model.Direction) []Pattern {
	var out []Pattern
	for _, p := range Patterns {
		if p.Direction == dir {
			out = append(out, p)
		}
	}
	return out
}

// Detect returns the first pattern tagged with dir that matches the tail of bars.
// Neutral patterns never count for a direction.
func Detect(bars []model.OHLCV, dir model.Direction) (Pattern, bool) {
	if dir == model.None {
		return Pattern{}, false
	}
	for _, p := range Patterns {
		if p.Direction == dir && p.Match(bars) {
			return p, true
		}
	}
	return Pattern{}, false
}

// DetectAny returns the first pattern of the full table that matches.
func DetectAny(bars []model.OHLCV) (Pattern, bool) {
	for _, p := range Patterns {
		if p.Match(bars) {
			return p, true
		}
	}
	return Pattern{}, false
}

func last(bars []model.OHLCV, n int) ([]model.OHLCV, bool) {
	if len(bars) < n {
		return nil, false
	}
	return bars[len(bars)-n:], true
}

// IsBullishEngulfing: bearish bar followed by a bullish bar whose body covers it.
func IsBullishEngulfing(bars []model.OHLCV) bool {
	b, ok := last(bars, 2)
	if !ok {
		return false
	}
	prev, curr := b[0], b[1]
	return prev.Bearish() && curr.Bullish() &&
		curr.Open < prev.Close && curr.Close > prev.Open
}

// IsBearishEngulfing: bullish bar followed by a bearish bar whose body covers it.
func IsBearishEngulfing(bars []model.OHLCV) bool {
	b, ok := last(bars, 2)
	if !ok {
		return false
	}
	prev, curr := b[0], b[1]
	return prev.Bullish() && curr.Bearish() &&
		curr.Open > prev.Close && curr.Close < prev.Open
}

// IsHammer: lower wick longer than twice the body.
func IsHammer(bars []model.OHLCV) bool {
	b, ok := last(bars, 1)
	if !ok {
		return false
	}
	return b[0].LowerWick() > wickBodyRatio*b[0].Body()
}

// IsShootingStar: upper wick longer than twice the body.
func IsShootingStar(bars []model.OHLCV) bool {
	b, ok := last(bars, 1)
	if !ok {
		return false
	}
	return b[0].UpperWick() > wickBodyRatio*b[0].Body()
}

// IsDoji: body under a tenth of the range.
func IsDoji(bars []model.OHLCV) bool {
	b, ok := last(bars, 1)
	if !ok {
		return false
	}
	return b[0].Body() < dojiBodyRatio*b[0].Range()
}

// IsGravestoneDoji: doji with a long upper wick and almost no lower wick.
func IsGravestoneDoji(bars []model.OHLCV) bool {
	if !IsDoji(bars) {
		return false
	}
	c := bars[len(bars)-1]
	return c.UpperWick() > wickBodyRatio*c.Body() && c.LowerWick() <= negligibleWick*c.Range()
}

// IsDragonflyDoji: doji with a long lower wick and almost no upper wick.
func IsDragonflyDoji(bars []model.OHLCV) bool {
	if !IsDoji(bars) {
		return false
	}
	c := bars[len(bars)-1]
	return c.LowerWick() > wickBodyRatio*c.Body() && c.UpperWick() <= negligibleWick*c.Range()
}

// IsMorningStar: bearish bar, small-bodied star, bullish close past the first body's midpoint.
func IsMorningStar(bars []model.OHLCV) bool {
	b, ok := last(bars, 3)
	if !ok {
		return false
	}
	first, star, third := b[0], b[1], b[2]
	return first.Bearish() &&
		star.Body() < starBodyRatio*star.Range() &&
		third.Bullish() &&
		third.Close > (first.Open+first.Close)/2
}

// IsEveningStar: bullish bar, small-bodied star, bearish close past the first body's midpoint.
func IsEveningStar(bars []model.OHLCV) bool {
	b, ok := last(bars, 3)
	if !ok {
		return false
	}
	first, star, third := b[0], b[1], b[2]
	return first.Bullish() &&
		star.Body() < starBodyRatio*star.Range() &&
		third.Bearish() &&
		third.Close < (first.Open+first.Close)/2
}

// IsTweezerTop: equal highs, bullish then bearish.
func IsTweezerTop(bars []model.OHLCV) bool {
	b, ok := last(bars, 2)
	if !ok {
		return false
	}
	return math.Abs(b[0].High-b[1].High) < tweezerTol && b[0].Bullish() && b[1].Bearish()
}

// IsTweezerBottom: equal lows, bearish then bullish.
func IsTweezerBottom(bars []model.OHLCV) bool {
	b, ok := last(bars, 2)
	if !ok {
		return false
	}
	return math.Abs(b[0].Low-b[1].Low) < tweezerTol && b[0].Bearish() && b[1].Bullish()
}

// IsBullishHarami: bullish body inside the previous bearish body.
func IsBullishHarami(bars []model.OHLCV) bool {
	b, ok := last(bars, 2)
	if !ok {
		return false
	}
	mother, child := b[0], b[1]
	return mother.Bearish() && child.Bullish() &&
		child.Open > mother.Close && child.Close < mother.Open
}

// IsBearishHarami: bearish body inside the previous bullish body.
func IsBearishHarami(bars []model.OHLCV) bool {
	b, ok := last(bars, 2)
	if !ok {
		return false
	}
	mother, child := b[0], b[1]
	return mother.Bullish() && child.Bearish() &&
		child.Open < mother.Close && child.Close > mother.Open
}
