// Package reversal confirms a proposed direction by polling a ladder of
// timeframes and requiring a quorum of independent confirmations.
package reversal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"FxSentinel/internal/candle"
	"FxSentinel/internal/levels"
	"FxSentinel/internal/model"
)

// Rung is one timeframe of the ladder and the bars it needs.
type Rung struct {
	Timeframe model.Timeframe `yaml:"timeframe"`
	MinBars   int             `yaml:"min_bars"`
}

// Config holds the ladder and the per-timeframe heuristics.
type Config struct {
	Ladder []Rung `yaml:"ladder"`
	Quorum int    `yaml:"quorum"`

	RecentWindow int     `yaml:"recent_window"`
	ChopSignSum  int     `yaml:"chop_sign_sum"`
	ChopStdRatio float64 `yaml:"chop_std_ratio"`

	LevelWindow   int `yaml:"level_window"`
	LevelLookback int `yaml:"level_lookback"`
	MaxLevels     int `yaml:"max_levels"`

	ProximityPips    float64 `yaml:"proximity_pips"`
	BreakoutPips     float64 `yaml:"breakout_pips"`
	BreakoutFraction float64 `yaml:"breakout_fraction"`

	MomentumSpan int `yaml:"momentum_span"`
	MinOpposing  int `yaml:"min_opposing"`
}

// DefaultConfig returns the eight-timeframe ladder with a quorum of four.
func DefaultConfig() Config {
	return Config{
		Ladder: []Rung{
			{model.M1, 5000},
			{model.M5, 5000},
			{model.M15, 3000},
			{model.M30, 1500},
			{model.H1, 1500},
			{model.H2, 1500},
			{model.H4, 2000},
			{model.D1, 2000},
		},
		Quorum:           4,
		RecentWindow:     20,
		ChopSignSum:      2,
		ChopStdRatio:     0.5,
		LevelWindow:      20,
		LevelLookback:    500,
		MaxLevels:        3,
		ProximityPips:    20,
		BreakoutPips:     10,
		BreakoutFraction: 0.001,
		MomentumSpan:     5,
		MinOpposing:      2,
	}
}

// BarSource supplies validated bar series.
type BarSource interface {
	Bars(ctx context.Context, symbol string, tf model.Timeframe, count int) (*model.BarSeries, error)
}

// Engine runs the consensus vote.
type Engine struct {
	cfg    Config
	source BarSource
	logger zerolog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg Config, source BarSource, logger zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, source: source, logger: logger.With().Str("component", "reversal").Logger()}
}

// Detect fetches every ladder timeframe, evaluates each one independently and
// tallies the verdicts. Fetch failures count as insufficient data; only a
// data-integrity error aborts the vote.
func (e *Engine) Detect(ctx context.Context, symbol string, dir model.Direction) (*model.Consensus, error) {
	log := e.logger.With().Str("symbol", symbol).Str("direction", string(dir)).Logger()
	verdicts := make([]model.TimeframeVerdict, 0, len(e.cfg.Ladder))

	for _, rung := range e.cfg.Ladder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, err := e.source.Bars(ctx, symbol, rung.Timeframe, rung.MinBars)
		if err != nil {
			if errors.Is(err, model.ErrDataIntegrity) {
				return nil, fmt.Errorf("reversal %s %s: %w", symbol, rung.Timeframe, err)
			}
			log.Warn().Err(err).Str("tf", string(rung.Timeframe)).Msg("fetch failed")
		}
		v := EvaluateTimeframe(e.cfg, symbol, dir, rung, barsOf(series))
		log.Debug().Str("tf", string(v.Timeframe)).Str("status", string(v.Status)).
			Strs("reasons", v.Reasons).Msg("timeframe verdict")
		verdicts = append(verdicts, v)
	}

	c := Tally(symbol, dir, verdicts, e.cfg.Quorum)
	log.Info().Int("confirmed", c.Confirmed).Int("quorum", c.Quorum).Bool("passed", c.Passed()).
		Msg("reversal consensus")
	return c, nil
}

func barsOf(s *model.BarSeries) []model.OHLCV {
	if s.Len() == 0 {
		return nil
	}
	return s.Bars
}

// Tally counts confirmed verdicts against the quorum.
func Tally(symbol string, dir model.Direction, verdicts []model.TimeframeVerdict, quorum int) *model.Consensus {
	c := &model.Consensus{Symbol: symbol, Direction: dir, Quorum: quorum, Verdicts: verdicts}
	for _, v := range verdicts {
		if v.Status == model.VerdictConfirmed {
			c.Confirmed++
		}
	}
	return c
}

// PipSize returns the pip for the symbol's instrument class.
func PipSize(symbol string) float64 {
	s := strings.ToUpper(symbol)
	switch {
	case strings.Contains(s, "XAU"):
		return 0.1
	case strings.Contains(s, "JPY"):
		return 0.01
	default:
		return 0.0001
	}
}

// EvaluateTimeframe applies the per-timeframe checks in order: bar count,
// chop filter, candlestick set, level ambiguity, then momentum fade with
// opposing bars.
func EvaluateTimeframe(cfg Config, symbol string, dir model.Direction, rung Rung, bars []model.OHLCV) model.TimeframeVerdict {
	v := model.TimeframeVerdict{Timeframe: rung.Timeframe}
	minBars := rung.MinBars
	if need := 2*cfg.MomentumSpan + 1; minBars < need {
		minBars = need
	}
	if len(bars) < minBars {
		v.Status = model.VerdictInsufficient
		v.Reasons = append(v.Reasons, fmt.Sprintf("%d bars, need %d", len(bars), minBars))
		return v
	}
	reject := func(reason string) model.TimeframeVerdict {
		v.Status = model.VerdictRejected
		v.Reasons = append(v.Reasons, reason)
		return v
	}

	recent := model.Tail(bars, cfg.RecentWindow)
	signSum, opposing := 0, 0
	bodies := make([]float64, len(recent))
	for i, b := range recent {
		sign := 0
		switch {
		case b.Bullish():
			sign = 1
		case b.Bearish():
			sign = -1
		}
		signSum += sign
		if (dir == model.Buy && sign < 0) || (dir == model.Sell && sign > 0) {
			opposing++
		}
		bodies[i] = b.Body()
	}
	mean, std := meanStd(bodies)
	// Signed sum: an even-bodied one-way run counts as chop too.
	if signSum <= cfg.ChopSignSum && std < cfg.ChopStdRatio*mean {
		return reject(fmt.Sprintf("choppy: sign sum %d, body std %.5f vs mean %.5f", signSum, std, mean))
	}

	patternMatch := false
	if p, ok := candle.DetectAny(recent); ok {
		patternMatch = true
		v.Reasons = append(v.Reasons, "pattern "+p.Name)
	}

	price := bars[len(bars)-1].Close
	pip := PipSize(symbol)
	lv := levels.Find(bars, cfg.LevelWindow, cfg.LevelLookback, cfg.MaxLevels)
	buffer := math.Max(cfg.BreakoutPips*pip, cfg.BreakoutFraction*price)
	if lv.IsNear(price, cfg.ProximityPips*pip) && !lv.ClearsBy(price, dir, buffer) {
		return reject("near S/R without breakout: " + lv.Summary(price, 0))
	}

	n, span := len(bars), cfg.MomentumSpan
	slopeRecent := bars[n-1].Close - bars[n-1-span].Close
	slopePrior := bars[n-1-span].Close - bars[n-1-2*span].Close
	fading := math.Abs(slopeRecent) < math.Abs(slopePrior)
	if fading {
		v.Reasons = append(v.Reasons, fmt.Sprintf("momentum fading %.5f < %.5f", math.Abs(slopeRecent), math.Abs(slopePrior)))
	}
	v.Reasons = append(v.Reasons, fmt.Sprintf("%d opposing bars", opposing))

	if patternMatch || (fading && opposing >= cfg.MinOpposing) {
		v.Status = model.VerdictConfirmed
		return v
	}
	return reject("no reversal evidence")
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, x := range values {
		mean += x
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range values {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / (n - 1))
}

// Validate checks the ladder and quorum.
func (c Config) Validate() error {
	if len(c.Ladder) == 0 {
		return errors.New("reversal ladder is empty")
	}
	for _, r := range c.Ladder {
		if !r.Timeframe.Valid() {
			return fmt.Errorf("reversal ladder: unknown timeframe %q", r.Timeframe)
		}
		if r.MinBars <= 0 {
			return fmt.Errorf("reversal ladder: %s min_bars must be positive", r.Timeframe)
		}
	}
	if c.Quorum <= 0 || c.Quorum > len(c.Ladder) {
		return fmt.Errorf("reversal quorum %d outside 1..%d", c.Quorum, len(c.Ladder))
	}
	if c.RecentWindow <= 0 || c.MomentumSpan <= 0 || c.LevelWindow <= 0 {
		return errors.New("reversal windows must be positive")
	}
	return nil
}
