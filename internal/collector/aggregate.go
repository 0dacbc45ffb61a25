package collector

import (
	"time"

	"FxSentinel/internal/model"
)

// AggregateBars folds chronologically ordered bars into tf buckets aligned on
// time.Truncate(tf.Duration()). Each bucket opens with its first bar, closes
// with its last and sums volume.
func AggregateBars(bars []model.OHLCV, tf model.Timeframe) []model.OHLCV {
	d := tf.Duration()
	if len(bars) == 0 || d == 0 {
		return nil
	}
	var out []model.OHLCV
	var cur model.OHLCV
	var key time.Time
	for i, b := range bars {
		k := b.Time.UTC().Truncate(d)
		if i == 0 || !k.Equal(key) {
			if i > 0 {
				out = append(out, cur)
			}
			key = k
			cur = model.OHLCV{Time: k, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	return append(out, cur)
}

// composite maps timeframes that some sources cannot serve natively to the
// base timeframe they are built from.
var composite = map[model.Timeframe]model.Timeframe{
	model.H2: model.H1,
	model.H4: model.H1,
}

// baseCount is how many base bars cover count bars of tf, with one spare
// bucket for a partial first bucket.
func baseCount(tf, base model.Timeframe, count int) int {
	return (count + 1) * int(tf.Duration()/base.Duration())
}
