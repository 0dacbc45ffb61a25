package calculator

import (
	"math"

	"FxSentinel/internal/model"
)

// RecentRange scans the newest window bars and returns their lowest low and
// highest high. ok is false for an empty slice.
func RecentRange(bars []model.OHLCV, window int) (low, high float64, ok bool) {
	recent := model.Tail(bars, window)
	if len(recent) == 0 {
		return 0, 0, false
	}
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, b := range recent {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return low, high, true
}

// RollingExtreme returns the lowest low (or highest high when highs is true)
// of the window bars ending at index end (inclusive).
func RollingExtreme(bars []model.OHLCV, end, window int, highs bool) (float64, bool) {
	if end < 0 || end >= len(bars) || window <= 0 || end-window+1 < 0 {
		return 0, false
	}
	v := bars[end].Low
	if highs {
		v = bars[end].High
	}
	for i := end - window + 1; i <= end; i++ {
		if highs && bars[i].High > v {
			v = bars[i].High
		}
		if !highs && bars[i].Low < v {
			v = bars[i].Low
		}
	}
	return v, true
}
