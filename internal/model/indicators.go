package model

// Indicator names used as IndicatorSet keys.
const (
	SMA20     = "SMA20"
	SMA50     = "SMA50"
	EMA14     = "EMA14"
	EMA50     = "EMA50"
	RSI14     = "RSI14"
	ATR14     = "ATR14"
	BBUpper20 = "BBUpper20"
	BBMid20   = "BBMid20"
	BBLower20 = "BBLower20"
)

// IndicatorSeries is aligned with the bar series it was computed from.
// Indices below WarmUp are undefined.
type IndicatorSeries struct {
	Values []float64
	WarmUp int
}

// At returns the value at i and whether it is defined.
func (s IndicatorSeries) At(i int) (float64, bool) {
	if i < s.WarmUp || i < 0 || i >= len(s.Values) {
		return 0, false
	}
	return s.Values[i], true
}

// Last returns the newest value and whether it is defined.
func (s IndicatorSeries) Last() (float64, bool) {
	return s.At(len(s.Values) - 1)
}

// IndicatorSet holds derived series keyed by indicator name.
type IndicatorSet map[string]IndicatorSeries

// Last returns the newest defined value of the named indicator.
func (s IndicatorSet) Last(name string) (float64, bool) {
	series, ok := s[name]
	if !ok {
		return 0, false
	}
	return series.Last()
}
