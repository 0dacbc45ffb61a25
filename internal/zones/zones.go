// Package zones derives supply and demand zones from consolidation windows and
// runs the multi-timeframe fallback scan used by the zone gate.
package zones

import (
	"math"

	"FxSentinel/internal/calculator"
	"FxSentinel/internal/model"
)

// Params controls zone extraction on one timeframe.
type Params struct {
	Window       int     `yaml:"window"`
	RangeFactor  float64 `yaml:"range_factor"`
	BreakoutMult float64 `yaml:"breakout_mult"`
	MaxZones     int     `yaml:"max_zones"`
	// ATRFilter requires the window spread to stay under RangeFactor x ATR.
	ATRFilter bool `yaml:"atr_filter"`
	// BreakoutFilter requires the net close move to exceed BreakoutMult x ATR.
	BreakoutFilter bool `yaml:"breakout_filter"`
}

// Find slides a Window-wide window over bars and keeps every qualifying
// window as a candidate: demand when the window's close rose, supply
// otherwise. Candidates are merged per side and the newest MaxZones survive.
// When a filter is enabled and ATR is undefined, no window qualifies.
func Find(bars []model.OHLCV, tf model.Timeframe, p Params) (demand, supply []model.Zone) {
	n := len(bars)
	if p.Window <= 0 || n <= p.Window {
		return nil, nil
	}

	filtered := p.ATRFilter || p.BreakoutFilter
	atr, atrOK := 0.0, false
	if filtered {
		atr, atrOK = calculator.LastATR(bars, calculator.ATRPeriod)
		if !atrOK {
			return nil, nil
		}
	}

	for start := 0; start < n-p.Window; start++ {
		w := bars[start : start+p.Window]
		low, high := math.Inf(1), math.Inf(-1)
		for _, b := range w {
			low = math.Min(low, b.Low)
			high = math.Max(high, b.High)
		}
		first, last := w[0].Close, w[len(w)-1].Close

		if p.ATRFilter && !(high-low < p.RangeFactor*atr) {
			continue
		}
		if p.BreakoutFilter && !(math.Abs(last-first) > p.BreakoutMult*atr) {
			continue
		}
		if low == high {
			continue
		}
		if last > first {
			demand = append(demand, model.Zone{Low: low, High: high, Side: model.Demand, Timeframe: tf})
		} else {
			supply = append(supply, model.Zone{Low: low, High: high, Side: model.Supply, Timeframe: tf})
		}
	}
	return Merge(demand, p.MaxZones), Merge(supply, p.MaxZones)
}

// Merge normalizes each zone so Low <= High, drops degenerate zones, unions
// overlapping or touching zones until none overlap and keeps the last max
// zones in first-seen order. Merging an already merged set returns it unchanged.
func Merge(zones []model.Zone, max int) []model.Zone {
	out := make([]model.Zone, 0, len(zones))
	for _, z := range zones {
		if z.Low > z.High {
			z.Low, z.High = z.High, z.Low
		}
		if z.Low == z.High {
			continue
		}
		out = append(out, z)
	}

	for merged := true; merged; {
		merged = false
		for i := 0; i < len(out) && !merged; i++ {
			for j := i + 1; j < len(out); j++ {
				if overlaps(out[i], out[j]) {
					out[i].Low = math.Min(out[i].Low, out[j].Low)
					out[i].High = math.Max(out[i].High, out[j].High)
					out = append(out[:j], out[j+1:]...)
					merged = true
					break
				}
			}
		}
	}

	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func overlaps(a, b model.Zone) bool {
	return !(a.High < b.Low || a.Low > b.High)
}
