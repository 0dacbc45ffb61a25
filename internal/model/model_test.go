package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func series(bars ...OHLCV) *BarSeries {
	return &BarSeries{Symbol: "EURUSD", Timeframe: M15, Bars: bars}
}

func at(i int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 15 * time.Minute)
}

func TestBarSeriesValidate(t *testing.T) {
	good := OHLCV{Time: at(0), Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15}
	next := OHLCV{Time: at(1), Open: 1.15, High: 1.2, Low: 1.1, Close: 1.12}

	tests := []struct {
		name    string
		s       *BarSeries
		wantErr bool
	}{
		{"valid", series(good, next), false},
		{"empty", series(), false},
		{"nan close", series(OHLCV{Time: at(0), Open: 1, High: 1, Low: 1, Close: math.NaN()}), true},
		{"inf high", series(OHLCV{Time: at(0), Open: 1, High: math.Inf(1), Low: 1, Close: 1}), true},
		{"zero low", series(OHLCV{Time: at(0), Open: 1, High: 1, Low: 0, Close: 1}), true},
		{"inverted", series(OHLCV{Time: at(0), Open: 1.1, High: 1.0, Low: 1.2, Close: 1.1}), true},
		{"duplicate time", series(good, OHLCV{Time: at(0), Open: 1, High: 1, Low: 1, Close: 1}), true},
		{"out of order", series(next, good), true},
	}
	for _, tt := range tests {
		err := tt.s.Validate()
		if tt.wantErr != (err != nil) {
			t.Errorf("%s: expected error=%v, got %v", tt.name, tt.wantErr, err)
		}
		if err != nil && !errors.Is(err, ErrDataIntegrity) {
			t.Errorf("%s: expected ErrDataIntegrity, got %v", tt.name, err)
		}
	}
}

func TestTail(t *testing.T) {
	bars := []OHLCV{{Close: 1}, {Close: 2}, {Close: 3}}
	if got := Tail(bars, 2); len(got) != 2 || got[0].Close != 2 {
		t.Errorf("expected the newest two bars, got %v", got)
	}
	if got := Tail(bars, 5); len(got) != 3 {
		t.Errorf("expected all bars, got %d", len(got))
	}
	if Tail(bars, 0) != nil {
		t.Error("expected nil for n=0")
	}
	var nilSeries *BarSeries
	if nilSeries.Len() != 0 {
		t.Error("nil series has no bars")
	}
	if _, ok := nilSeries.Last(); ok {
		t.Error("nil series has no last bar")
	}
}

func TestParseTimeframeAndDirection(t *testing.T) {
	if tf, err := ParseTimeframe(" h4 "); err != nil || tf != H4 {
		t.Errorf("expected H4, got %q %v", tf, err)
	}
	if _, err := ParseTimeframe("H3"); err == nil {
		t.Error("expected an error for H3")
	}
	if d, err := ParseDirection("sell"); err != nil || d != Sell {
		t.Errorf("expected SELL, got %q %v", d, err)
	}
	if Buy.Opposite() != Sell || None.Opposite() != None {
		t.Error("unexpected Opposite")
	}
	if SideFor(Sell) != Supply || SideFor(Buy) != Demand {
		t.Error("unexpected SideFor")
	}
}

func TestZoneAndScanHelpers(t *testing.T) {
	z := Zone{Low: 1.10, High: 1.11, Side: Demand, Timeframe: H1}
	if !z.Contains(1.0996, 0.0005) || z.Contains(1.0990, 0.0005) {
		t.Error("Contains must honor the tolerance on both edges")
	}
	if got := z.String(); got != "H1 demand 1.10000 -> 1.11000" {
		t.Errorf("unexpected String %q", got)
	}

	var nilScan *ZoneScan
	if nilScan.Matched() || nilScan.SideZones() != nil {
		t.Error("nil scan never matches")
	}
	s := &ZoneScan{Direction: Sell, Supply: []Zone{z}, Timeframe: H4}
	if !s.Matched() || len(s.SideZones()) != 1 {
		t.Error("expected a matched SELL scan with supply zones")
	}

	c := &Consensus{Quorum: 4, Confirmed: 4}
	if !c.Passed() {
		t.Error("4 of quorum 4 passes")
	}
	var nilConsensus *Consensus
	if nilConsensus.Passed() {
		t.Error("nil consensus never passes")
	}
}
