package collector

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"FxSentinel/internal/model"
)

var t0 = time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)

func hourBar(h int, o, hi, lo, c float64) model.OHLCV {
	return model.OHLCV{Time: t0.Add(time.Duration(h) * time.Hour), Open: o, High: hi, Low: lo, Close: c, Volume: 1}
}

func TestAggregateBars(t *testing.T) {
	bars := []model.OHLCV{
		hourBar(0, 1.10, 1.12, 1.09, 1.11),
		hourBar(1, 1.11, 1.13, 1.10, 1.12),
		hourBar(2, 1.12, 1.12, 1.08, 1.09),
		hourBar(3, 1.09, 1.10, 1.07, 1.08),
		hourBar(4, 1.08, 1.09, 1.07, 1.085),
	}
	got := AggregateBars(bars, model.H2)
	if len(got) != 3 {
		t.Fatalf("expected 3 H2 bars, got %d", len(got))
	}
	first := got[0]
	if first.Open != 1.10 || first.High != 1.13 || first.Low != 1.09 || first.Close != 1.12 || first.Volume != 2 {
		t.Errorf("unexpected first bucket %+v", first)
	}
	if !got[1].Time.Equal(t0.Add(2*time.Hour)) || got[1].Low != 1.07 || got[1].Close != 1.08 {
		t.Errorf("unexpected second bucket %+v", got[1])
	}
	if AggregateBars(nil, model.H4) != nil {
		t.Error("expected nil for no bars")
	}
}

func TestCollectorBars(t *testing.T) {
	good := []model.OHLCV{hourBar(2, 1, 1.2, 0.9, 1.1), hourBar(0, 1, 1.2, 0.9, 1.1), hourBar(1, 1, 1.2, 0.9, 1.1)}
	dup := []model.OHLCV{hourBar(0, 1, 1.2, 0.9, 1.1), hourBar(0, 1, 1.2, 0.9, 1.1)}
	nan := []model.OHLCV{hourBar(0, 1, 1.2, 0.9, 1.1), hourBar(1, 1, math.NaN(), 0.9, 1.1)}
	inverted := []model.OHLCV{hourBar(0, 1, 0.9, 1.2, 1.1)}

	c := NewCollector(&MockFetcher{Bars: map[model.Timeframe][]model.OHLCV{
		model.H1: good, model.H2: dup, model.H4: nan, model.D1: inverted, model.M1: {},
	}}, zerolog.Nop())
	ctx := context.Background()

	s, err := c.Bars(ctx, "EURUSD", model.H1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Bars) != 2 || !s.Bars[1].Time.Equal(t0.Add(2*time.Hour)) {
		t.Errorf("expected the newest two bars in order, got %+v", s.Bars)
	}
	if s.Symbol != "EURUSD" || s.Timeframe != model.H1 {
		t.Errorf("unexpected series tags %s %s", s.Symbol, s.Timeframe)
	}

	for _, tf := range []model.Timeframe{model.H2, model.H4, model.D1} {
		if _, err := c.Bars(ctx, "EURUSD", tf, 10); !errors.Is(err, model.ErrDataIntegrity) {
			t.Errorf("%s: expected an integrity error, got %v", tf, err)
		}
	}
	if _, err := c.Bars(ctx, "EURUSD", model.M1, 10); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected insufficient data for an empty response, got %v", err)
	}
}

func TestMockFetcher(t *testing.T) {
	end := time.Date(2024, 8, 5, 12, 7, 0, 0, time.UTC)
	m := &MockFetcher{Price: 1.1, End: end}
	bars, err := m.FetchBars(context.Background(), "EURUSD", model.M15, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 200 {
		t.Fatalf("expected 200 bars, got %d", len(bars))
	}
	if !bars[199].Time.Equal(end.Truncate(15*time.Minute)) || bars[1].Time.Sub(bars[0].Time) != 15*time.Minute {
		t.Errorf("unexpected bar spacing: %v .. %v", bars[0].Time, bars[199].Time)
	}
	s := &model.BarSeries{Symbol: "EURUSD", Timeframe: model.M15, Bars: bars}
	if err := s.Validate(); err != nil {
		t.Errorf("mock bars must validate: %v", err)
	}
}

func TestVsTraderFetcher(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/v1/bars" || r.URL.Query().Get("symbol") != "EURUSD" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("timeframe") {
		case "H4":
			http.Error(w, "unsupported timeframe", http.StatusBadRequest)
		case "H1":
			var out []vsBar
			for h := 7; h >= 0; h-- { // newest first
				c := 1.10 + 0.001*float64(h)
				out = append(out, vsBar{Timestamp: t0.Add(time.Duration(h) * time.Hour).Unix(), Open: c, High: c + 0.0005, Low: c - 0.0005, Close: c})
			}
			_ = json.NewEncoder(w).Encode(out)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "secret", "")
	bars, err := f.FetchBars(context.Background(), "EURUSD", model.H1, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if len(bars) != 8 || !bars[0].Time.Before(bars[7].Time) {
		t.Errorf("expected 8 chronological bars, got %d", len(bars))
	}

	h4, err := f.FetchBars(context.Background(), "EURUSD", model.H4, 2)
	if err != nil {
		t.Fatalf("expected the H1 fallback to serve H4, got %v", err)
	}
	if len(h4) != 2 || math.Abs(h4[1].Close-1.107) > 1e-9 || math.Abs(h4[1].Open-1.104) > 1e-9 {
		t.Errorf("unexpected aggregated H4 bars %+v", h4)
	}

	if _, err := f.FetchBars(context.Background(), "EURUSD", model.M5, 10); err == nil {
		t.Error("expected an error for a timeframe without fallback")
	}
}

func TestYahooFetcher(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.URL.Query().Get("interval") != "15m" {
			http.Error(w, "bad interval", http.StatusBadRequest)
			return
		}
		ts := func(m int) int64 { return t0.Add(time.Duration(m) * time.Minute).Unix() }
		body := `{"chart":{"result":[{"timestamp":[` +
			strings.Join([]string{itoa(ts(0)), itoa(ts(15)), itoa(ts(30))}, ",") +
			`],"indicators":{"quote":[{"open":[1.1,null,1.2],"high":[1.2,null,1.3],"low":[1.0,null,1.1],"close":[1.15,null,1.25],"volume":[0,null,0]}]}}],"error":null}}`
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "EURUSD", model.M15, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/v8/finance/chart/EURUSD=X" {
		t.Errorf("expected the FX ticker suffix, got %q", path)
	}
	if len(bars) != 2 || bars[1].Close != 1.25 {
		t.Errorf("expected the null sample to be dropped, got %+v", bars)
	}
	if got := f.yahooSymbol("XAUUSD"); got != "GC=F" {
		t.Errorf("expected GC=F for gold, got %q", got)
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
