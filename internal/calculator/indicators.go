package calculator

import (
	"math"

	"github.com/markcheno/go-talib"

	"FxSentinel/internal/model"
)

// Standard periods used across the pipeline.
const (
	ShortSMA       = 20
	LongSMA        = 50
	ShortEMA       = 14
	LongEMA        = 50
	RSIPeriod      = 14
	ATRPeriod      = 14
	BollingerLen   = 20
	BollingerWidth = 2.0
)

// Compute builds the standard indicator set for a bar slice. Series that
// cannot be computed for lack of bars are present but entirely undefined.
func Compute(bars []model.OHLCV) model.IndicatorSet {
	closes := model.Closes(bars)
	upper, mid, lower := Bollinger(closes, BollingerLen, BollingerWidth)
	return model.IndicatorSet{
		model.SMA20:     SMA(closes, ShortSMA),
		model.SMA50:     SMA(closes, LongSMA),
		model.EMA14:     EMA(closes, ShortEMA),
		model.EMA50:     EMA(closes, LongEMA),
		model.RSI14:     RSI(closes, RSIPeriod),
		model.ATR14:     ATR(bars, ATRPeriod),
		model.BBUpper20: upper,
		model.BBMid20:   mid,
		model.BBLower20: lower,
	}
}

// undefined returns a series of n values with nothing defined.
func undefined(n int) model.IndicatorSeries {
	return model.IndicatorSeries{Values: make([]float64, n), WarmUp: n}
}

// SMA computes the simple moving average of closes over period.
func SMA(closes []float64, period int) model.IndicatorSeries {
	if period <= 0 || len(closes) < period {
		return undefined(len(closes))
	}
	return model.IndicatorSeries{Values: talib.Sma(closes, period), WarmUp: period - 1}
}

// EMA computes the exponential moving average of closes over period.
func EMA(closes []float64, period int) model.IndicatorSeries {
	if period <= 0 || len(closes) < period {
		return undefined(len(closes))
	}
	return model.IndicatorSeries{Values: talib.Ema(closes, period), WarmUp: period - 1}
}

// RSI computes the Wilder-smoothed relative strength index.
func RSI(closes []float64, period int) model.IndicatorSeries {
	if period < 2 || len(closes) <= period {
		return undefined(len(closes))
	}
	return model.IndicatorSeries{Values: talib.Rsi(closes, period), WarmUp: period}
}

// ATR computes the average true range.
func ATR(bars []model.OHLCV, period int) model.IndicatorSeries {
	if period <= 0 || len(bars) <= period {
		return undefined(len(bars))
	}
	return model.IndicatorSeries{
		Values: talib.Atr(model.Highs(bars), model.Lows(bars), model.Closes(bars), period),
		WarmUp: period,
	}
}

// Bollinger computes SMA-based bands k sample standard deviations wide.
func Bollinger(closes []float64, period int, k float64) (upper, mid, lower model.IndicatorSeries) {
	if period < 2 || len(closes) < period {
		u := undefined(len(closes))
		return u, u, u
	}
	// talib divides by period; rescale to the n-1 deviation.
	dev := k * math.Sqrt(float64(period)/float64(period-1))
	u, m, l := talib.BBands(closes, period, dev, dev, talib.SMA)
	warm := period - 1
	return model.IndicatorSeries{Values: u, WarmUp: warm},
		model.IndicatorSeries{Values: m, WarmUp: warm},
		model.IndicatorSeries{Values: l, WarmUp: warm}
}

// LastATR returns the newest ATR value when it is defined and positive.
func LastATR(bars []model.OHLCV, period int) (float64, bool) {
	v, ok := ATR(bars, period).Last()
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
