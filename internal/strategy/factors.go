package strategy

import (
	"fmt"
	"math"

	"FxSentinel/internal/calculator"
	"FxSentinel/internal/candle"
	"FxSentinel/internal/chart"
	"FxSentinel/internal/model"
)

// momentumSignal compares the last two closes.
func momentumSignal(bars []model.OHLCV) model.Direction {
	n := len(bars)
	if n < 2 {
		return model.None
	}
	switch {
	case bars[n-1].Close > bars[n-2].Close:
		return model.Buy
	case bars[n-1].Close < bars[n-2].Close:
		return model.Sell
	}
	return model.None
}

// rsiSignal reads oversold as BUY and overbought as SELL.
func rsiSignal(ind model.IndicatorSet, oversold, overbought float64) model.Direction {
	rsi, ok := ind.Last(model.RSI14)
	switch {
	case !ok:
		return model.None
	case rsi < oversold:
		return model.Buy
	case rsi > overbought:
		return model.Sell
	}
	return model.None
}

// bollingerSignal fades a close outside the bands.
func bollingerSignal(bars []model.OHLCV, ind model.IndicatorSet) model.Direction {
	upper, okU := ind.Last(model.BBUpper20)
	lower, okL := ind.Last(model.BBLower20)
	if !okU || !okL || len(bars) == 0 {
		return model.None
	}
	last := bars[len(bars)-1].Close
	switch {
	case last > upper:
		return model.Sell
	case last < lower:
		return model.Buy
	}
	return model.None
}

// trendSignal is the EMA14/EMA50 crossover state.
func trendSignal(ind model.IndicatorSet) model.Direction {
	short, okS := ind.Last(model.EMA14)
	long, okL := ind.Last(model.EMA50)
	switch {
	case !okS || !okL:
		return model.None
	case short > long:
		return model.Buy
	case short < long:
		return model.Sell
	}
	return model.None
}

// respectsTrendline checks the last close against the rolling extreme that
// ended offset bars ago: above the rolling low for BUY, below the rolling
// high for SELL.
func respectsTrendline(bars []model.OHLCV, dir model.Direction, window, offset int) bool {
	n := len(bars)
	if n < window+offset {
		return false
	}
	last := bars[n-1].Close
	switch dir {
	case model.Buy:
		low, ok := calculator.RollingExtreme(bars, n-offset, window, false)
		return ok && last > low
	case model.Sell:
		high, ok := calculator.RollingExtreme(bars, n-offset, window, true)
		return ok && last < high
	}
	return false
}

// nearRecentLevel reports whether the last close sits within proximity
// (fraction of price) of the recent low or high.
func nearRecentLevel(bars []model.OHLCV, window int, proximity float64) bool {
	low, high, ok := calculator.RecentRange(bars, window)
	if !ok {
		return false
	}
	last := bars[len(bars)-1].Close
	return math.Abs(last-low)/last < proximity || math.Abs(last-high)/last < proximity
}

// confirmedCandle looks for a pattern on the bars before the newest one and
// requires the newest bar to close in the direction.
func confirmedCandle(bars []model.OHLCV, dir model.Direction) (string, bool) {
	if len(bars) < 2 {
		return "", false
	}
	p, ok := candle.Detect(bars[:len(bars)-1], dir)
	if !ok {
		return "", false
	}
	last := bars[len(bars)-1]
	if (dir == model.Buy && last.Bullish()) || (dir == model.Sell && last.Bearish()) {
		return p.Name, true
	}
	return "", false
}

// SubSignals records which sub-signals agree with the chosen direction.
type SubSignals struct {
	Trend      bool
	Momentum   bool
	Oscillator bool
	Band       bool
	Level      bool
	Trendline  bool
	Candle     string // pattern name when confirmed
	Chart      string // pattern name when it matches the direction
}

// factor is one row of the scoring table.
type factor struct {
	agree  bool
	weight float64
	text   string
}

func (s SubSignals) factors(w Weights, dir model.Direction) []factor {
	trend := "uptrend"
	if dir == model.Sell {
		trend = "downtrend"
	}
	return []factor{
		{s.Trend, w.Trend, "Trend=" + trend},
		{s.Momentum, w.Momentum, "Momentum=" + string(dir)},
		{s.Oscillator, w.Oscillator, "RSI=" + string(dir)},
		{s.Band, w.Band, "Bollinger=" + string(dir)},
		{s.Level, w.Level, "Near support/resistance"},
		{s.Trendline, w.Trendline, "Respecting trendline"},
		{s.Candle != "", w.Candle, fmt.Sprintf("Candle pattern %s (confirmed)", s.Candle)},
		{s.Chart != "", w.Chart, "Chart=" + s.Chart},
	}
}

// Score sums the weights of the agreeing sub-signals and lists them as
// reasons. Weights are non-negative, so an extra agreeing signal never lowers
// the score.
func Score(s SubSignals, w Weights, dir model.Direction) (float64, []model.Reason) {
	var total float64
	var reasons []model.Reason
	for _, f := range s.factors(w, dir) {
		if !f.agree {
			continue
		}
		total += f.weight
		reasons = append(reasons, model.Reason{Text: f.text, Weight: f.weight})
	}
	return total, reasons
}

// collectSignals evaluates every sub-signal against dir on the signal and
// price timeframes.
func collectSignals(cfg Config, signal, price []model.OHLCV, ind model.IndicatorSet, dir model.Direction) SubSignals {
	s := SubSignals{
		Trend:      trendSignal(ind) == dir,
		Momentum:   momentumSignal(signal) == dir,
		Oscillator: rsiSignal(ind, cfg.RSIOversold, cfg.RSIOverbought) == dir,
		Band:       bollingerSignal(signal, ind) == dir,
		Level:      nearRecentLevel(price, cfg.LevelWindow, cfg.LevelProximity),
		Trendline:  respectsTrendline(signal, dir, cfg.TrendlineWindow, cfg.TrendlineOffset),
	}
	if name, ok := confirmedCandle(model.Tail(signal, cfg.CandleLookback), dir); ok {
		s.Candle = name
	}
	if m := chart.Detect(model.Tail(signal, cfg.ChartLookback), dir); m != nil && m.Direction == dir {
		s.Chart = m.Name
	}
	return s
}

// vote picks the majority direction among non-empty votes; ties go to the
// direction seen first.
func vote(votes ...model.Direction) model.Direction {
	counts := map[model.Direction]int{}
	var order []model.Direction
	for _, v := range votes {
		if v == model.None {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := model.None
	for _, d := range order {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
