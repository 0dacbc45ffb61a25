package strategy

import (
	"errors"
	"fmt"
	"math"

	"FxSentinel/internal/model"
)

// Weights assigns the score contribution of each agreeing sub-signal.
type Weights struct {
	Trend      float64 `yaml:"trend"`
	Momentum   float64 `yaml:"momentum"`
	Oscillator float64 `yaml:"oscillator"`
	Band       float64 `yaml:"band"`
	Level      float64 `yaml:"level"`
	Trendline  float64 `yaml:"trendline"`
	Candle     float64 `yaml:"candle"`
	Chart      float64 `yaml:"chart"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Trend + w.Momentum + w.Oscillator + w.Band + w.Level + w.Trendline + w.Candle + w.Chart
}

// Validate requires non-negative weights summing to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"trend": w.Trend, "momentum": w.Momentum, "oscillator": w.Oscillator, "band": w.Band,
		"level": w.Level, "trendline": w.Trendline, "candle": w.Candle, "chart": w.Chart,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s is negative: %v", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights sum to %.4f, want 1.0", sum)
	}
	return nil
}

// Config drives the decision pipeline.
type Config struct {
	RequiredTimeframes []model.Timeframe       `yaml:"required_timeframes"`
	BarCounts          map[model.Timeframe]int `yaml:"bar_counts"`
	DefaultBarCount    int                     `yaml:"default_bar_count"`
	SignalTimeframe    model.Timeframe         `yaml:"signal_timeframe"`
	PriceTimeframe     model.Timeframe         `yaml:"price_timeframe"`
	Threshold          float64                 `yaml:"confidence_threshold"`
	UseReversalFilter  bool                    `yaml:"use_reversal_filter"`
	Weights            Weights                 `yaml:"weights"`

	RSIOversold     float64 `yaml:"rsi_oversold"`
	RSIOverbought   float64 `yaml:"rsi_overbought"`
	LevelWindow     int     `yaml:"level_window"`
	LevelProximity  float64 `yaml:"level_proximity"`
	TrendlineWindow int     `yaml:"trendline_window"`
	TrendlineOffset int     `yaml:"trendline_offset"`
	ChartLookback   int     `yaml:"chart_lookback"`
	CandleLookback  int     `yaml:"candle_lookback"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RequiredTimeframes: []model.Timeframe{model.M5, model.M15, model.M30, model.H1, model.H2, model.H4, model.D1},
		BarCounts: map[model.Timeframe]int{
			model.M5:  4000,
			model.M15: 3000,
			model.M30: 3000,
			model.H1:  1500,
			model.H2:  1500,
			model.H4:  2000,
			model.D1:  2000,
		},
		DefaultBarCount:   500,
		SignalTimeframe:   model.M15,
		PriceTimeframe:    model.M5,
		Threshold:         0.7,
		UseReversalFilter: true,
		Weights: Weights{
			Trend:      0.20,
			Momentum:   0.15,
			Oscillator: 0.10,
			Band:       0.10,
			Level:      0.15,
			Trendline:  0.10,
			Candle:     0.10,
			Chart:      0.10,
		},
		RSIOversold:     30,
		RSIOverbought:   70,
		LevelWindow:     20,
		LevelProximity:  0.002,
		TrendlineWindow: 5,
		TrendlineOffset: 5,
		ChartLookback:   40,
		CandleLookback:  3,
	}
}

// barCount returns how many bars to request for tf.
func (c Config) barCount(tf model.Timeframe) int {
	if n, ok := c.BarCounts[tf]; ok && n > 0 {
		return n
	}
	return c.DefaultBarCount
}

// Validate checks the weights, threshold and timeframe wiring.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("confidence threshold %v outside [0,1]", c.Threshold)
	}
	required := map[model.Timeframe]bool{}
	for _, tf := range c.RequiredTimeframes {
		if !tf.Valid() {
			return fmt.Errorf("unknown required timeframe %q", tf)
		}
		required[tf] = true
	}
	for _, tf := range []model.Timeframe{c.SignalTimeframe, c.PriceTimeframe} {
		if !required[tf] {
			return fmt.Errorf("timeframe %q must be listed in required_timeframes", tf)
		}
	}
	for tf, n := range c.BarCounts {
		if n <= 0 {
			return fmt.Errorf("bar count for %s must be positive", tf)
		}
	}
	if c.DefaultBarCount <= 0 {
		return errors.New("default_bar_count must be positive")
	}
	return nil
}
