// Package strategy runs the per-symbol decision pipeline: data, direction
// vote, pattern conflict, weighted score, reversal consensus, zone scan and
// in-zone candle confirmation.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"FxSentinel/internal/calculator"
	"FxSentinel/internal/candle"
	"FxSentinel/internal/chart"
	"FxSentinel/internal/model"
	"FxSentinel/internal/zones"
)

// BarSource supplies validated bar series.
type BarSource interface {
	Bars(ctx context.Context, symbol string, tf model.Timeframe, count int) (*model.BarSeries, error)
}

// ReversalDetector runs the multi-timeframe reversal vote.
type ReversalDetector interface {
	Detect(ctx context.Context, symbol string, dir model.Direction) (*model.Consensus, error)
}

// Engine evaluates one symbol at a time. It holds no state between calls.
type Engine struct {
	cfg      Config
	source   BarSource
	reversal ReversalDetector
	zones    *zones.Scanner
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine creates an Engine. reversal may be nil when the reversal gate is
// disabled; the zone scan then confirms touches by chart pattern only.
func NewEngine(cfg Config, source BarSource, reversal ReversalDetector, scanner *zones.Scanner, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		source:   source,
		reversal: reversal,
		zones:    scanner,
		logger:   logger.With().Str("component", "strategy").Logger(),
		now:      time.Now,
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Evaluate walks the gate sequence for symbol. A rejection is a normal
// result with Accepted=false and a reason; only data-integrity violations
// and context cancellation are returned as errors.
func (e *Engine) Evaluate(ctx context.Context, symbol string) (*model.Evaluation, error) {
	log := e.logger.With().Str("symbol", symbol).Logger()
	ev := &model.Evaluation{Symbol: symbol, At: e.now()}
	reject := func(stage model.Stage, format string, args ...any) (*model.Evaluation, error) {
		ev.Stage = stage
		ev.Reason = fmt.Sprintf(format, args...)
		log.Info().Str("stage", string(stage)).Str("direction", string(ev.Direction)).
			Float64("score", ev.Score).Msg("rejected: " + ev.Reason)
		return ev, nil
	}

	// Data.
	frames, missing, err := e.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return reject(model.StageData, "missing data on %s", strings.Join(missing, ", "))
	}
	signal := frames.Bars(e.cfg.SignalTimeframe)
	priceBars := frames.Bars(e.cfg.PriceTimeframe)
	price := priceBars[len(priceBars)-1].Close
	ind := calculator.Compute(signal)

	// Direction vote: momentum, RSI, Bollinger.
	dir := vote(
		momentumSignal(signal),
		rsiSignal(ind, e.cfg.RSIOversold, e.cfg.RSIOverbought),
		bollingerSignal(signal, ind),
	)
	if dir == model.None {
		return reject(model.StageDirection, "no direction from indicators")
	}
	ev.Direction = dir
	log = log.With().Str("direction", string(dir)).Logger()

	// Pattern conflict.
	if m := chart.Detect(model.Tail(signal, e.cfg.ChartLookback), dir); m != nil && m.Direction != model.None && m.Direction != dir {
		return reject(model.StageConflict, "%s pattern %s conflicts with %s", e.cfg.SignalTimeframe, m.Name, dir)
	}

	// Score.
	subs := collectSignals(e.cfg, signal, priceBars, ind, dir)
	ev.Score, ev.Reasons = Score(subs, e.cfg.Weights, dir)
	log.Debug().Float64("score", ev.Score).Interface("reasons", ev.Reasons).Msg("score")
	if ev.Score < e.cfg.Threshold {
		return reject(model.StageThreshold, "score %.2f below threshold %.2f", ev.Score, e.cfg.Threshold)
	}

	// The consensus is computed at most once per evaluation.
	var consensus *model.Consensus
	detectReversal := func(ctx context.Context) (*model.Consensus, error) {
		if consensus != nil {
			return consensus, nil
		}
		c, err := e.reversal.Detect(ctx, symbol, dir)
		if err != nil {
			return nil, err
		}
		consensus = c
		ev.Consensus = c
		return c, nil
	}

	if e.cfg.UseReversalFilter {
		if e.reversal == nil {
			return nil, errors.New("reversal filter enabled without a detector")
		}
		c, err := detectReversal(ctx)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", symbol, err)
		}
		if !c.Passed() {
			return reject(model.StageReversal, "reversal filter failed: %d/%d timeframes, need %d",
				c.Confirmed, len(c.Verdicts), c.Quorum)
		}
	}

	// Zone scan.
	var check zones.ReversalCheck
	if e.reversal != nil {
		check = func(ctx context.Context) (bool, error) {
			c, err := detectReversal(ctx)
			if err != nil {
				return false, err
			}
			return c.Passed(), nil
		}
	}
	scan, err := e.zones.Scan(ctx, symbol, frames, dir, price, check)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", symbol, err)
	}
	ev.ZoneScan = scan
	if !scan.Matched() || len(scan.SideZones()) == 0 {
		return reject(model.StageZone, "not in %s zone on any timeframe", model.SideFor(dir))
	}

	// In-zone reversal candle.
	p, ok := candle.Detect(model.Tail(signal, e.cfg.CandleLookback), dir)
	if !ok {
		return reject(model.StageZoneReversal, "in %s %s zone but no reversal pattern", scan.Timeframe, model.SideFor(dir))
	}

	reasons := append(ev.Reasons,
		model.Reason{Text: fmt.Sprintf("In %s %s zone", scan.Timeframe, model.SideFor(dir))},
		model.Reason{Text: fmt.Sprintf("Reversal pattern %s confirmed in zone", p.Name)},
	)
	ev.Reasons = reasons
	ev.Stage = model.StageAccepted
	ev.Accepted = true
	ev.Reason = "accepted"
	ev.Decision = &model.Decision{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		Direction:     dir,
		Confidence:    ev.Score,
		Price:         price,
		ZoneTimeframe: scan.Timeframe,
		Reasons:       reasons,
		CreatedAt:     ev.At,
	}
	log.Info().Float64("confidence", ev.Score).Str("zone_tf", string(scan.Timeframe)).
		Float64("price", price).Msg("accepted")
	return ev, nil
}

// fetch loads every required timeframe. Timeframes that fail to load or come
// back empty are reported as missing; integrity violations abort.
func (e *Engine) fetch(ctx context.Context, symbol string) (model.Frames, []string, error) {
	frames := make(model.Frames, len(e.cfg.RequiredTimeframes))
	var missing []string
	for _, tf := range e.cfg.RequiredTimeframes {
		series, err := e.source.Bars(ctx, symbol, tf, e.cfg.barCount(tf))
		switch {
		case errors.Is(err, model.ErrDataIntegrity):
			return nil, nil, fmt.Errorf("evaluate %s: %w", symbol, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, nil, err
		case err != nil:
			e.logger.Warn().Err(err).Str("symbol", symbol).Str("tf", string(tf)).Msg("fetch failed")
			missing = append(missing, string(tf))
		case series.Len() == 0:
			missing = append(missing, string(tf))
		default:
			frames[tf] = series
		}
	}
	return frames, missing, nil
}
