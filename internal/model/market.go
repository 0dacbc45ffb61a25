package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrDataIntegrity marks a bar series that must be rejected wholesale.
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrInsufficientData marks a series shorter than a consumer's minimum.
	ErrInsufficientData = errors.New("insufficient data")
)

// Timeframe is the sampling interval of a bar series.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H2  Timeframe = "H2"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// AllTimeframes lists the supported timeframes from fastest to slowest.
var AllTimeframes = []Timeframe{M1, M5, M15, M30, H1, H2, H4, D1}

var timeframeDurations = map[Timeframe]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  time.Hour,
	H2:  2 * time.Hour,
	H4:  4 * time.Hour,
	D1:  24 * time.Hour,
}

// Duration returns the bar interval, or 0 for an unknown timeframe.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Valid reports whether tf is one of the supported timeframes.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// ParseTimeframe normalizes a label such as "h1" into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if !tf.Valid() {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Body is the absolute open-to-close distance.
func (b OHLCV) Body() float64 { return math.Abs(b.Close - b.Open) }

// Range is the high-to-low distance.
func (b OHLCV) Range() float64 { return b.High - b.Low }

// UpperWick is the distance from the top of the body to the high.
func (b OHLCV) UpperWick() float64 { return b.High - math.Max(b.Open, b.Close) }

// LowerWick is the distance from the bottom of the body to the low.
func (b OHLCV) LowerWick() float64 { return math.Min(b.Open, b.Close) - b.Low }

// Bullish reports a close above the open.
func (b OHLCV) Bullish() bool { return b.Close > b.Open }

// Bearish reports a close below the open.
func (b OHLCV) Bearish() bool { return b.Close < b.Open }

// BarSeries is an ordered run of bars for one (symbol, timeframe) pair, newest last.
type BarSeries struct {
	Symbol    string
	Timeframe Timeframe
	Bars      []OHLCV
}

// Validate rejects series with missing/non-finite prices, inverted ranges or
// timestamps that are not strictly increasing.
func (s *BarSeries) Validate() error {
	for i, b := range s.Bars {
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return fmt.Errorf("%s %s bar %d: non-finite or non-positive price: %w", s.Symbol, s.Timeframe, i, ErrDataIntegrity)
			}
		}
		if b.High < b.Low {
			return fmt.Errorf("%s %s bar %d: high %.5f below low %.5f: %w", s.Symbol, s.Timeframe, i, b.High, b.Low, ErrDataIntegrity)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("%s %s bar %d: timestamp %s not after %s: %w", s.Symbol, s.Timeframe, i,
				b.Time.Format(time.RFC3339), s.Bars[i-1].Time.Format(time.RFC3339), ErrDataIntegrity)
		}
	}
	return nil
}

// Len returns the number of bars.
func (s *BarSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the newest bar.
func (s *BarSeries) Last() (OHLCV, bool) {
	if s.Len() == 0 {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Tail returns the newest n bars (all of them when n exceeds the length).
func (s *BarSeries) Tail(n int) []OHLCV {
	return Tail(s.Bars, n)
}

// Tail returns the newest n bars of a slice.
func Tail(bars []OHLCV, n int) []OHLCV {
	if n <= 0 {
		return nil
	}
	if n >= len(bars) {
		return bars
	}
	return bars[len(bars)-n:]
}

// Closes extracts the close prices.
func Closes(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high prices.
func Highs(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low prices.
func Lows(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Frames maps each timeframe to its series for a single evaluation.
type Frames map[Timeframe]*BarSeries

// Bars returns the bars for tf, or nil when the timeframe is absent.
func (f Frames) Bars(tf Timeframe) []OHLCV {
	if s, ok := f[tf]; ok && s != nil {
		return s.Bars
	}
	return nil
}
