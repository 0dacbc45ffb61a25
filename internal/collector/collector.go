package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"FxSentinel/internal/model"
)

// MockFetcher returns deterministic synthetic bars for development and testing.
type MockFetcher struct {
	Price float64
	// End is the open time of the newest bar; zero means now.
	End time.Time
	// Bars overrides the generated data per timeframe and is returned as is.
	Bars map[model.Timeframe][]model.OHLCV
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	if bars, ok := m.Bars[tf]; ok {
		return bars, nil
	}
	if !tf.Valid() {
		return nil, fmt.Errorf("mock: unknown timeframe %q", tf)
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return generateMockBars(m.Price, tf, end.Truncate(tf.Duration()), count), nil
}

// generateMockBars draws a slow sine wave around basePrice so every timeframe
// shows swings, zones and a mix of bullish and bearish bars.
func generateMockBars(basePrice float64, tf model.Timeframe, end time.Time, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	prev := basePrice
	for i := 0; i < count; i++ {
		phase := float64(i) / 24
		p := basePrice * (1 + 0.004*math.Sin(phase) + 0.001*math.Sin(phase*5))
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * tf.Duration()),
			Open:   prev,
			High:   math.Max(prev, p) * 1.0002,
			Low:    math.Min(prev, p) * 0.9998,
			Close:  p,
			Volume: 1000,
		}
		prev = p
	}
	return bars
}

// Collector turns raw fetcher output into validated bar series.
type Collector struct {
	Fetcher Fetcher
	logger  zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, logger zerolog.Logger) *Collector {
	return &Collector{Fetcher: fetcher, logger: logger.With().Str("component", "collector").Logger()}
}

// Bars fetches, orders and validates the newest count bars of tf. A series
// that fails validation is rejected wholesale with model.ErrDataIntegrity;
// an empty response is model.ErrInsufficientData.
func (c *Collector) Bars(ctx context.Context, symbol string, tf model.Timeframe, count int) (*model.BarSeries, error) {
	bars, err := c.Fetcher.FetchBars(ctx, symbol, tf, count)
	if err != nil {
		return nil, fmt.Errorf("%s %s via %s: %w", symbol, tf, c.Fetcher.Name(), err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s via %s: no bars: %w", symbol, tf, c.Fetcher.Name(), model.ErrInsufficientData)
	}
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	series := &model.BarSeries{Symbol: symbol, Timeframe: tf, Bars: model.Tail(sorted, count)}
	if err := series.Validate(); err != nil {
		c.logger.Error().Err(err).Str("symbol", symbol).Str("tf", string(tf)).Msg("rejecting series")
		return nil, err
	}
	if len(series.Bars) < count {
		c.logger.Debug().Str("symbol", symbol).Str("tf", string(tf)).
			Int("got", len(series.Bars)).Int("want", count).Msg("short series")
	}
	return series, nil
}
