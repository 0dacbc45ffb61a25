package zones

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"FxSentinel/internal/model"
)

// line builds n bars whose close moves by step each bar from start.
func line(n int, start, step, half float64, tf model.Timeframe) *model.BarSeries {
	t0 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = model.OHLCV{
			Time:  t0.Add(time.Duration(i) * tf.Duration()),
			Open:  c - step/2,
			High:  c + half,
			Low:   c - half,
			Close: c,
		}
	}
	return &model.BarSeries{Symbol: "EURUSD", Timeframe: tf, Bars: bars}
}

func TestMerge(t *testing.T) {
	in := []model.Zone{
		{Low: 1.10, High: 1.12},
		{Low: 1.15, High: 1.13}, // inverted
		{Low: 1.11, High: 1.14}, // bridges the first two
		{Low: 1.20, High: 1.20}, // degenerate
		{Low: 1.30, High: 1.31},
		{Low: 1.31, High: 1.32}, // touches the previous one
		{Low: 1.40, High: 1.41},
	}
	got := Merge(in, 10)
	want := []model.Zone{
		{Low: 1.10, High: 1.15},
		{Low: 1.30, High: 1.32},
		{Low: 1.40, High: 1.41},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for _, z := range got {
		if z.Low > z.High {
			t.Errorf("zone %v has low above high", z)
		}
	}
	if again := Merge(got, 10); !reflect.DeepEqual(again, got) {
		t.Errorf("merge is not idempotent: %v then %v", got, again)
	}
	if last := Merge(in, 2); !reflect.DeepEqual(last, want[1:]) {
		t.Errorf("expected the newest two zones %v, got %v", want[1:], last)
	}
	if Merge(nil, 3) != nil {
		t.Error("expected nil for no zones")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	sets := [][]model.Zone{
		{{Low: 1, High: 2}, {Low: 3, High: 4}, {Low: 1.5, High: 3.5}},
		{{Low: 5, High: 6}, {Low: 1, High: 2}, {Low: 2, High: 5}},
		{{Low: 2, High: 1}, {Low: 4, High: 3}, {Low: 6, High: 5}, {Low: 8, High: 7}},
	}
	for i, zones := range sets {
		once := Merge(zones, 3)
		twice := Merge(once, 3)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("set %d: %v != %v", i, once, twice)
		}
		for a := range once {
			for b := a + 1; b < len(once); b++ {
				if overlaps(once[a], once[b]) {
					t.Errorf("set %d: %v overlaps %v", i, once[a], once[b])
				}
			}
		}
	}
}

func TestFind_Direction(t *testing.T) {
	p := Params{Window: 20, RangeFactor: 1.0, BreakoutMult: 0.1, MaxZones: 3}

	rising := line(40, 1.0800, 0.0005, 0.0003, model.H1)
	demand, supply := Find(rising.Bars, model.H1, p)
	if len(demand) != 1 || len(supply) != 0 {
		t.Fatalf("expected one demand zone and no supply, got %v / %v", demand, supply)
	}
	z := demand[0]
	if z.Side != model.Demand || z.Timeframe != model.H1 {
		t.Errorf("unexpected zone tags %+v", z)
	}
	if math.Abs(z.Low-1.0797) > 1e-9 || math.Abs(z.High-(1.0800+0.0005*38+0.0003)) > 1e-9 {
		t.Errorf("unexpected bounds %v", z)
	}

	falling := line(40, 1.1000, -0.0005, 0.0003, model.M30)
	demand, supply = Find(falling.Bars, model.M30, p)
	if len(demand) != 0 || len(supply) != 1 {
		t.Errorf("expected supply only, got %v / %v", demand, supply)
	}
}

func TestFind_EdgeCases(t *testing.T) {
	p := Params{Window: 20, RangeFactor: 1.0, BreakoutMult: 0.1, MaxZones: 3}

	flat := line(40, 1.1, 0, 0, model.H1)
	if d, s := Find(flat.Bars, model.H1, p); d != nil || s != nil {
		t.Errorf("degenerate windows must be discarded, got %v / %v", d, s)
	}
	if d, s := Find(line(20, 1.1, 0.001, 0.0003, model.H1).Bars, model.H1, p); d != nil || s != nil {
		t.Error("a series no longer than the window has no zones")
	}

	filtered := p
	filtered.ATRFilter = true
	if d, s := Find(line(10, 1.1, 0.001, 0.0003, model.H1).Bars, model.H1, Params{Window: 5, ATRFilter: true, RangeFactor: 1}); d != nil || s != nil {
		t.Error("an enabled filter without ATR must reject every window")
	}

	// Every 20-bar window spans 0.0101 while ATR is 0.0008.
	steady := line(60, 1.08, 0.0005, 0.0003, model.H1)
	if d, _ := Find(steady.Bars, model.H1, filtered); d != nil {
		t.Errorf("wide windows must fail the consolidation filter, got %v", d)
	}
	filtered.RangeFactor = 100
	if d, _ := Find(steady.Bars, model.H1, filtered); len(d) != 1 {
		t.Errorf("expected windows to pass a loose consolidation filter, got %v", d)
	}
}

func TestTolerance(t *testing.T) {
	s := NewScanner(DefaultConfig(), zerolog.Nop())

	if got := s.Tolerance("EURUSD", model.Frames{}, 1.1); math.Abs(got-0.00033) > 1e-12 {
		t.Errorf("expected fraction-of-price pad 0.00033, got %v", got)
	}
	if got := s.Tolerance("usdjpy", model.Frames{}, 150); got != 0.01 {
		t.Errorf("expected JPY pad 0.01, got %v", got)
	}
	frames := model.Frames{model.M15: line(30, 1.1, 0, 0.002, model.M15)}
	if got := s.Tolerance("EURUSD", frames, 1.1); math.Abs(got-0.002) > 1e-9 {
		t.Errorf("expected half of ATR 0.004, got %v", got)
	}
}

func TestScan(t *testing.T) {
	frames := model.Frames{
		model.M30: line(60, 1.1000, -0.0005, 0.0003, model.M30),
		model.H1:  line(60, 1.0800, 0.0005, 0.0003, model.H1),
	}
	s := NewScanner(DefaultConfig(), zerolog.Nop())
	price := 1.0900

	calls := 0
	yes := func(context.Context) (bool, error) { calls++; return true, nil }
	scan, err := s.Scan(context.Background(), "EURUSD", frames, model.Buy, price, yes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !scan.Matched() || scan.Timeframe != model.H1 {
		t.Fatalf("expected a match on H1, got %+v", scan)
	}
	if scan.Confirmation != "reversal consensus" || calls != 1 {
		t.Errorf("expected one reversal confirmation, got %q after %d calls", scan.Confirmation, calls)
	}
	if len(scan.SideZones()) == 0 || !scan.Zone.Contains(price, scan.Tolerance) {
		t.Errorf("expected the matched zone to contain price, got %+v", scan.Zone)
	}

	no := func(context.Context) (bool, error) { return false, nil }
	scan, err = s.Scan(context.Background(), "EURUSD", frames, model.Buy, price, no)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scan.Matched() || len(scan.SideZones()) != 0 {
		t.Errorf("expected no match, got %+v", scan)
	}
	if scan.Nearest == nil || scan.Nearest.Timeframe != model.H1 {
		t.Errorf("expected the H1 demand zone as nearest, got %+v", scan.Nearest)
	}

	boom := errors.New("feed down")
	fail := func(context.Context) (bool, error) { return false, boom }
	if _, err := s.Scan(context.Background(), "EURUSD", frames, model.Buy, price, fail); !errors.Is(err, boom) {
		t.Errorf("expected the reversal error to propagate, got %v", err)
	}

	scan, _ = s.Scan(context.Background(), "EURUSD", frames, model.Sell, 1.5, yes)
	if scan.Matched() || scan.Nearest == nil || scan.Nearest.Side != model.Supply {
		t.Errorf("expected an unmatched SELL scan with a supply diagnostic, got %+v", scan)
	}
}

func TestScan_ChartConfirmation(t *testing.T) {
	// M15 double bottom: troughs at bars 10 and 30.
	t0 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	pad := &model.BarSeries{Symbol: "EURUSD", Timeframe: model.M15, Bars: make([]model.OHLCV, 40)}
	for i := range pad.Bars {
		mid := 1.0900 + 0.0002*math.Abs(float64(i%20-10))
		pad.Bars[i] = model.OHLCV{
			Time: t0.Add(time.Duration(i) * 15 * time.Minute),
			Open: mid, High: mid + 0.0002, Low: mid - 0.0002, Close: mid,
		}
	}
	frames := model.Frames{
		model.M15: pad,
		model.M30: line(60, 1.1000, -0.0005, 0.0003, model.M30),
		model.H1:  line(60, 1.0800, 0.0005, 0.0003, model.H1),
	}

	// Three bars are too few for any extrema, so only the reversal check can
	// confirm at the default lookback.
	scan, err := NewScanner(DefaultConfig(), zerolog.Nop()).Scan(context.Background(), "EURUSD", frames, model.Buy, 1.0900, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scan.Matched() {
		t.Errorf("expected no chart confirmation over 3 bars, got %q", scan.Confirmation)
	}

	cfg := DefaultConfig()
	cfg.PatternLookback = 40
	scan, err = NewScanner(cfg, zerolog.Nop()).Scan(context.Background(), "EURUSD", frames, model.Buy, 1.0900, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !scan.Matched() || scan.Timeframe != model.H1 || scan.Confirmation != "chart pattern Double Bottom" {
		t.Errorf("expected an H1 match confirmed by the double bottom, got %s %q", scan.Timeframe, scan.Confirmation)
	}
}
