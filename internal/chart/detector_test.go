package chart

import (
	"reflect"
	"testing"
	"time"

	"FxSentinel/internal/model"
)

type point struct {
	i int
	v float64
}

// pathBars draws bars whose mid price follows straight segments between
// anchor points, with a fixed half-spread above and below.
func pathBars(half float64, anchors ...point) []model.OHLCV {
	n := anchors[len(anchors)-1].i + 1
	mids := make([]float64, n)
	for k := 0; k < len(anchors)-1; k++ {
		a, b := anchors[k], anchors[k+1]
		for i := a.i; i <= b.i; i++ {
			switch i {
			case a.i:
				mids[i] = a.v
			case b.i:
				mids[i] = b.v
			default:
				mids[i] = a.v + (b.v-a.v)*float64(i-a.i)/float64(b.i-a.i)
			}
		}
	}
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i, m := range mids {
		bars[i] = model.OHLCV{
			Time:  start.Add(time.Duration(i) * 15 * time.Minute),
			Open:  m,
			High:  m + half,
			Low:   m - half,
			Close: m,
		}
	}
	return bars
}

func TestFindExtrema(t *testing.T) {
	values := []float64{5, 4, 3, 2, 1, 0, 1, 2, 3, 4, 5}
	mins, maxs := FindExtrema(values, 5)
	if !reflect.DeepEqual(mins, []int{5}) {
		t.Errorf("expected minima [5], got %v", mins)
	}
	if len(maxs) != 0 {
		t.Errorf("expected no maxima, got %v", maxs)
	}
	if mins, maxs := FindExtrema(values[:9], 5); mins != nil || maxs != nil {
		t.Errorf("expected no extrema when the window cannot fit, got %v %v", mins, maxs)
	}
}

func TestDoubleBottom(t *testing.T) {
	bars := pathBars(0.001,
		point{0, 1.05}, point{10, 1.00}, point{20, 1.05}, point{30, 1.00}, point{40, 1.05})
	if !DoubleBottom(bars) {
		t.Fatal("expected double bottom")
	}
	if DoubleTop(bars) {
		t.Error("a single peak cannot form a double top")
	}
	m := Detect(bars, model.None)
	if m == nil || m.Name != "Double Bottom" || m.Direction != model.Buy {
		t.Errorf("expected Double Bottom BUY, got %+v", m)
	}
}

func TestHeadAndShoulders_DirectionPreference(t *testing.T) {
	bars := pathBars(0.0015,
		point{0, 0.9985}, point{8, 1.0485}, point{16, 1.0085}, point{24, 1.0785},
		point{32, 1.0085}, point{40, 1.0485}, point{48, 0.9985})
	if !HeadAndShoulders(bars) {
		t.Fatal("expected head and shoulders")
	}
	if InverseHeadAndShoulders(bars) {
		t.Error("did not expect an inverse head and shoulders")
	}

	// The two neckline troughs are equal, so the higher-priority double
	// bottom wins without a preference.
	if m := Detect(bars, model.None); m == nil || m.Name != "Double Bottom" {
		t.Errorf("expected Double Bottom by priority, got %+v", m)
	}
	if m := Detect(bars, model.Sell); m == nil || m.Name != "Head and Shoulders" {
		t.Errorf("expected SELL preference to pick Head and Shoulders, got %+v", m)
	}
	if m := Detect(bars, model.Buy); m == nil || m.Name != "Double Bottom" {
		t.Errorf("expected BUY preference to pick Double Bottom, got %+v", m)
	}
}

func TestAscendingTriangle(t *testing.T) {
	bars := pathBars(0.001,
		point{0, 1.02}, point{10, 1.05}, point{20, 1.00}, point{30, 1.05}, point{40, 1.02}, point{48, 1.04})
	if !AscendingTriangle(bars) {
		t.Fatal("expected ascending triangle")
	}
	if DescendingTriangle(bars) {
		t.Error("did not expect descending triangle")
	}
	if m := Detect(bars, model.None); m == nil || m.Name != "Double Top" {
		t.Errorf("expected Double Top by priority, got %+v", m)
	}
	if m := Detect(bars, model.Buy); m == nil || m.Name != "Ascending Triangle" {
		t.Errorf("expected BUY preference to pick Ascending Triangle, got %+v", m)
	}
}

func TestFlagAndRectangle(t *testing.T) {
	bars := pathBars(0.0004, point{0, 1.00}, point{9, 1.03}, point{19, 1.03})
	if !Flag(bars) {
		t.Error("expected flag: 3% pole then a flat grip")
	}
	if !Rectangle(bars[10:], rectangleTol) {
		t.Error("expected the grip to be a rectangle")
	}
	if Rectangle(bars, rectangleTol) {
		t.Error("the full window including the pole is not a rectangle")
	}
}

func TestShortWindowsNeverMatch(t *testing.T) {
	bars := pathBars(0.0004, point{0, 1.00}, point{8, 1.03})
	if Flag(bars) || Pennant(bars) {
		t.Error("flag and pennant need at least 10 bars")
	}
	if CupAndHandle(pathBars(0.0004, point{0, 1.00}, point{10, 1.00})) {
		t.Error("cup and handle needs at least 12 bars")
	}
	if Detect(nil, model.Buy) != nil {
		t.Error("expected no match for an empty window")
	}
}

func TestPennant_LastThirdRoundsUp(t *testing.T) {
	// 50 bars: the last 17 hold two order-5 pivots, the last 16 only one.
	bars := make([]model.OHLCV, 50)
	for i := range bars {
		bars[i] = model.OHLCV{Open: 1.0075, High: 1.0080, Low: 1.0070, Close: 1.0075}
	}
	bars[38].High, bars[38].Low = 1.0100, 1.0000
	bars[44].High, bars[44].Low = 1.0110, 1.0050

	if !Wedge(bars[33:]) {
		t.Fatal("expected a rising wedge over the last 17 bars")
	}
	if Wedge(bars[34:]) {
		t.Error("16 bars cannot hold both pivots")
	}
	if !Pennant(bars) {
		t.Error("expected pennant over the last ceil(50/3) bars")
	}
}

func TestCupAndHandle(t *testing.T) {
	// 24 bars: the cup spans the first 16, the handle the last 8.
	bars := pathBars(0.001, point{0, 1.05}, point{7, 1.00}, point{15, 1.05}, point{23, 1.0505})
	if !CupAndHandle(bars) {
		t.Error("expected cup and handle")
	}
}
