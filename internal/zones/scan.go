package zones

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"FxSentinel/internal/calculator"
	"FxSentinel/internal/chart"
	"FxSentinel/internal/model"
)

// Rung is one timeframe of the scan ladder with its extraction parameters.
type Rung struct {
	Timeframe model.Timeframe `yaml:"timeframe"`
	Params    `yaml:",inline"`
}

// Config drives the fallback scan.
type Config struct {
	Ladder []Rung `yaml:"ladder"`
	// PadTimeframe supplies the ATR for the touch tolerance and the bars for
	// chart-pattern confirmation.
	PadTimeframe    model.Timeframe `yaml:"pad_timeframe"`
	PadFactor       float64         `yaml:"pad_factor"`
	JPYPad          float64         `yaml:"jpy_pad"`
	PriceFraction   float64         `yaml:"price_fraction"`
	PatternLookback int             `yaml:"pattern_lookback"`
}

// DefaultConfig returns the M30 to D1 ladder.
func DefaultConfig() Config {
	p := Params{Window: 20, RangeFactor: 1.0, BreakoutMult: 0.1, MaxZones: 3}
	with := func(tf model.Timeframe, window, max int) Rung {
		r := Rung{Timeframe: tf, Params: p}
		r.Window, r.MaxZones = window, max
		return r
	}
	return Config{
		Ladder: []Rung{
			with(model.M30, 20, 3),
			with(model.H1, 20, 3),
			with(model.H2, 25, 3),
			with(model.H4, 30, 3),
			with(model.D1, 10, 2),
		},
		PadTimeframe:    model.M15,
		PadFactor:       0.5,
		JPYPad:          0.01,
		PriceFraction:   0.0003,
		PatternLookback: 3,
	}
}

// ReversalCheck confirms the scan direction once price sits in a zone.
type ReversalCheck func(ctx context.Context) (bool, error)

// Scanner runs the fallback scan.
type Scanner struct {
	cfg    Config
	logger zerolog.Logger
}

// NewScanner creates a Scanner.
func NewScanner(cfg Config, logger zerolog.Logger) *Scanner {
	return &Scanner{cfg: cfg, logger: logger.With().Str("component", "zones").Logger()}
}

// Tolerance returns the touch padding: PadFactor x ATR of the pad timeframe,
// else a fixed pad for yen-quoted symbols, else a fraction of price.
func (s *Scanner) Tolerance(symbol string, frames model.Frames, price float64) float64 {
	if atr, ok := calculator.LastATR(frames.Bars(s.cfg.PadTimeframe), calculator.ATRPeriod); ok {
		return atr * s.cfg.PadFactor
	}
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return s.cfg.JPYPad
	}
	return s.cfg.PriceFraction * price
}

// Scan visits the ladder from fastest to slowest. On the first timeframe
// where price touches a zone on the direction's side and either a chart
// pattern on the newest pad-timeframe bars or confirm agrees, it returns that
// timeframe with its zone sets. Otherwise the returned scan is unmatched and
// only carries the nearest side zone across all timeframes.
func (s *Scanner) Scan(ctx context.Context, symbol string, frames model.Frames, dir model.Direction, price float64, confirm ReversalCheck) (*model.ZoneScan, error) {
	tol := s.Tolerance(symbol, frames, price)
	log := s.logger.With().Str("symbol", symbol).Str("direction", string(dir)).Logger()
	log.Debug().Float64("price", price).Float64("tolerance", tol).Msg("zone scan")

	scan := &model.ZoneScan{Direction: dir, Price: price, Tolerance: tol}
	type found struct {
		tf             model.Timeframe
		demand, supply []model.Zone
	}
	var visited []found

	for _, rung := range s.cfg.Ladder {
		bars := frames.Bars(rung.Timeframe)
		if len(bars) == 0 {
			continue
		}
		demand, supply := Find(bars, rung.Timeframe, rung.Params)
		visited = append(visited, found{rung.Timeframe, demand, supply})
		log.Debug().Str("tf", string(rung.Timeframe)).
			Str("demand", describe(demand)).Str("supply", describe(supply)).Msg("zones")

		side := demand
		if dir == model.Sell {
			side = supply
		}
		for i := range side {
			z := side[i]
			if !z.Contains(price, tol) {
				continue
			}
			how, err := s.confirm(ctx, frames, dir, confirm)
			if err != nil {
				return nil, err
			}
			if how == "" {
				log.Debug().Str("zone", z.String()).Msg("zone touched but no reversal confirmed")
				continue
			}
			log.Debug().Str("zone", z.String()).Str("confirmation", how).Msg("zone match")
			scan.Timeframe = rung.Timeframe
			scan.Demand, scan.Supply = demand, supply
			scan.Zone = &z
			scan.Confirmation = how
			return scan, nil
		}
	}

	best := math.Inf(1)
	for _, v := range visited {
		side := v.demand
		if dir == model.Sell {
			side = v.supply
		}
		for i := range side {
			if d := math.Abs(side[i].Mid() - price); d < best {
				best = d
				z := side[i]
				scan.Nearest = &z
			}
		}
	}
	if scan.Nearest != nil {
		log.Debug().Str("nearest", scan.Nearest.String()).Float64("distance", best).Msg("no confirmed zone match")
	} else {
		log.Debug().Msg("no zones on any timeframe")
	}
	return scan, nil
}

// confirm returns a non-empty description when the touch is confirmed.
func (s *Scanner) confirm(ctx context.Context, frames model.Frames, dir model.Direction, check ReversalCheck) (string, error) {
	pad := frames.Bars(s.cfg.PadTimeframe)
	if len(pad) >= s.cfg.PatternLookback {
		if m := chart.Detect(model.Tail(pad, s.cfg.PatternLookback), dir); m != nil && m.Direction == dir {
			return fmt.Sprintf("chart pattern %s", m.Name), nil
		}
	}
	if check == nil {
		return "", nil
	}
	ok, err := check(ctx)
	if err != nil {
		return "", fmt.Errorf("zone reversal check: %w", err)
	}
	if ok {
		return "reversal consensus", nil
	}
	return "", nil
}

func describe(zones []model.Zone) string {
	if len(zones) == 0 {
		return "(none)"
	}
	parts := make([]string, len(zones))
	for i, z := range zones {
		parts[i] = fmt.Sprintf("%.5f-%.5f", z.Low, z.High)
	}
	return strings.Join(parts, ", ")
}

// Validate checks the ladder and padding settings.
func (c Config) Validate() error {
	for _, r := range c.Ladder {
		if !r.Timeframe.Valid() {
			return fmt.Errorf("zone ladder: unknown timeframe %q", r.Timeframe)
		}
		if r.Window <= 0 || r.MaxZones <= 0 {
			return fmt.Errorf("zone ladder: %s window and max_zones must be positive", r.Timeframe)
		}
	}
	if !c.PadTimeframe.Valid() {
		return fmt.Errorf("zones: unknown pad timeframe %q", c.PadTimeframe)
	}
	if c.PadFactor <= 0 || c.JPYPad <= 0 || c.PriceFraction <= 0 {
		return fmt.Errorf("zones: padding settings must be positive")
	}
	if c.PatternLookback <= 0 {
		return fmt.Errorf("zones: pattern_lookback must be positive")
	}
	return nil
}
