// Package chart recognizes multi-bar chart formations over a window of bars
// using local extrema.
package chart

import (
	"math"

	"FxSentinel/internal/model"
)

// Tunables for the formation predicates.
const (
	ExtremaOrder         = 5
	doubleTol            = 1e-3 // absolute, between the two tops/bottoms
	shoulderTol          = 0.03 // relative, between the shoulders
	flatTriangleTol      = 0.005
	symmetricTriangleTol = 0.01
	rectangleTol         = 0.002
	flagPoleMove         = 0.02
	flagGripTol          = 0.003
	cupRimTol            = 0.01
	cupDepth             = 0.98
	handleTol            = 0.005
)

// Formation is one entry of the priority-ordered detector table.
type Formation struct {
	Name      string
	Direction model.Direction // None for directionless formations
	Match     func(bars []model.OHLCV) bool
}

// Formations is evaluated top to bottom; earlier entries win when no
// direction preference is given.
var Formations = []Formation{
	{"Double Bottom", model.Buy, DoubleBottom},
	{"Double Top", model.Sell, DoubleTop},
	{"Head and Shoulders", model.Sell, HeadAndShoulders},
	{"Inverse Head and Shoulders", model.Buy, InverseHeadAndShoulders},
	{"Ascending Triangle", model.Buy, AscendingTriangle},
	{"Descending Triangle", model.Sell, DescendingTriangle},
	{"Symmetric Triangle", model.None, SymmetricTriangle},
	{"Wedge", model.None, Wedge},
	{"Flag", model.None, Flag},
	{"Pennant", model.None, Pennant},
	{"Cup and Handle", model.Buy, CupAndHandle},
	{"Rectangle", model.None, func(bars []model.OHLCV) bool { return Rectangle(bars, rectangleTol) }},
}

// Detect returns the best formation over bars. A match whose direction equals
// expected beats table priority; otherwise the first match in table order is
// returned. nil means nothing matched.
func Detect(bars []model.OHLCV, expected model.Direction) *model.PatternMatch {
	var fallback *model.PatternMatch
	for _, f := range Formations {
		if !f.Match(bars) {
			continue
		}
		if expected != model.None && f.Direction == expected {
			return &model.PatternMatch{Name: f.Name, Direction: f.Direction}
		}
		if fallback == nil {
			fallback = &model.PatternMatch{Name: f.Name, Direction: f.Direction}
		}
	}
	return fallback
}

// FindExtrema returns indices of local minima and maxima of values. A point is
// an extremum when it is <= (>=) every value within order positions on both
// sides, so the first and last order points are never extrema.
func FindExtrema(values []float64, order int) (mins, maxs []int) {
	n := len(values)
	for i := order; i < n-order; i++ {
		isMin, isMax := true, true
		for j := i - order; j <= i+order; j++ {
			if j == i {
				continue
			}
			if values[i] > values[j] {
				isMin = false
			}
			if values[i] < values[j] {
				isMax = false
			}
			if !isMin && !isMax {
				break
			}
		}
		if isMin {
			mins = append(mins, i)
		}
		if isMax {
			maxs = append(maxs, i)
		}
	}
	return mins, maxs
}

// pivots returns the trough values of lows and peak values of highs.
func pivots(bars []model.OHLCV) (troughs, peaks []float64) {
	lows, highs := model.Lows(bars), model.Highs(bars)
	minIdx, _ := FindExtrema(lows, ExtremaOrder)
	_, maxIdx := FindExtrema(highs, ExtremaOrder)
	for _, i := range minIdx {
		troughs = append(troughs, lows[i])
	}
	for _, i := range maxIdx {
		peaks = append(peaks, highs[i])
	}
	return troughs, peaks
}

func lastN(values []float64, n int) ([]float64, bool) {
	if len(values) < n {
		return nil, false
	}
	return values[len(values)-n:], true
}

// DoubleBottom: the two most recent troughs sit at the same price.
func DoubleBottom(bars []model.OHLCV) bool {
	troughs, _ := pivots(bars)
	t, ok := lastN(troughs, 2)
	return ok && math.Abs(t[1]-t[0]) < doubleTol
}

// DoubleTop: the two most recent peaks sit at the same price.
func DoubleTop(bars []model.OHLCV) bool {
	_, peaks := pivots(bars)
	p, ok := lastN(peaks, 2)
	return ok && math.Abs(p[1]-p[0]) < doubleTol
}

// HeadAndShoulders: three peaks with the highest in the middle, matching
// shoulders, and the two latest troughs under their shoulders.
func HeadAndShoulders(bars []model.OHLCV) bool {
	troughs, peaks := pivots(bars)
	p, okP := lastN(peaks, 3)
	v, okV := lastN(troughs, 2)
	if !okP || !okV {
		return false
	}
	left, head, right := p[0], p[1], p[2]
	return head > left && head > right &&
		math.Abs(left-right)/math.Max(left, right) < shoulderTol &&
		v[0] < left && v[1] < right
}

// InverseHeadAndShoulders mirrors HeadAndShoulders on troughs.
func InverseHeadAndShoulders(bars []model.OHLCV) bool {
	troughs, peaks := pivots(bars)
	v, okV := lastN(troughs, 3)
	p, okP := lastN(peaks, 2)
	if !okP || !okV {
		return false
	}
	left, head, right := v[0], v[1], v[2]
	return head < left && head < right &&
		math.Abs(left-right)/math.Max(left, right) < shoulderTol &&
		p[0] > head && p[1] > head
}

// lastTwo returns the two most recent trough and peak values.
func lastTwo(bars []model.OHLCV) (lows, highs []float64, ok bool) {
	troughs, peaks := pivots(bars)
	lows, okL := lastN(troughs, 2)
	highs, okH := lastN(peaks, 2)
	return lows, highs, okL && okH
}

// AscendingTriangle: rising troughs under a flat ceiling.
func AscendingTriangle(bars []model.OHLCV) bool {
	lows, highs, ok := lastTwo(bars)
	if !ok {
		return false
	}
	return lows[1] > lows[0] &&
		math.Abs(highs[1]-highs[0])/((highs[0]+highs[1])/2) < flatTriangleTol
}

// DescendingTriangle: falling peaks over a flat floor.
func DescendingTriangle(bars []model.OHLCV) bool {
	lows, highs, ok := lastTwo(bars)
	if !ok {
		return false
	}
	return math.Abs(lows[1]-lows[0])/((lows[0]+lows[1])/2) < flatTriangleTol &&
		highs[1] < highs[0]
}

// SymmetricTriangle: rising troughs, falling peaks, and a narrowing gap.
func SymmetricTriangle(bars []model.OHLCV) bool {
	lows, highs, ok := lastTwo(bars)
	if !ok {
		return false
	}
	gap1 := highs[0] - lows[0]
	gap2 := highs[1] - lows[1]
	return lows[1] > lows[0] && highs[1] < highs[0] && gap2 < gap1*(1-symmetricTriangleTol)
}

// Wedge: troughs and peaks slope the same way while the channel narrows.
func Wedge(bars []model.OHLCV) bool {
	lows, highs, ok := lastTwo(bars)
	if !ok {
		return false
	}
	deltaLow := lows[1] - lows[0]
	deltaHigh := highs[1] - highs[0]
	width1 := highs[0] - lows[0]
	width2 := highs[1] - lows[1]
	return deltaLow*deltaHigh > 0 && width2 < width1
}

// Rectangle: the whole window trades inside tol x mean close.
func Rectangle(bars []model.OHLCV, tol float64) bool {
	if len(bars) == 0 {
		return false
	}
	hi, lo, sum := math.Inf(-1), math.Inf(1), 0.0
	for _, b := range bars {
		hi = math.Max(hi, b.High)
		lo = math.Min(lo, b.Low)
		sum += b.Close
	}
	return hi-lo <= tol*(sum/float64(len(bars)))
}

// Flag: a pole of more than 2% in the first half, then a tight rectangle.
func Flag(bars []model.OHLCV) bool {
	n := len(bars)
	if n < 10 {
		return false
	}
	pole := bars[:n/2]
	first, last := pole[0].Close, pole[len(pole)-1].Close
	return math.Abs(last-first)/first > flagPoleMove && Rectangle(bars[n/2:], flagGripTol)
}

// Pennant: a wedge inside the last third of the window, rounded up.
func Pennant(bars []model.OHLCV) bool {
	n := len(bars)
	if n < 10 {
		return false
	}
	return Wedge(bars[n-(n+2)/3:])
}

// CupAndHandle: level rims around a rounded trough, followed by a tight handle.
func CupAndHandle(bars []model.OHLCV) bool {
	n := len(bars)
	if n < 12 {
		return false
	}
	third := n / 3
	cup, handle := bars[:2*third], bars[2*third:]

	rimSum, trough := 0.0, math.Inf(1)
	for _, b := range cup {
		rimSum += b.High
		trough = math.Min(trough, b.Low)
	}
	rimMean := rimSum / float64(len(cup))
	if math.Abs(cup[0].High-cup[len(cup)-1].High)/rimMean > cupRimTol {
		return false
	}
	if trough > rimMean*cupDepth {
		return false
	}
	return Rectangle(handle, handleTol)
}
