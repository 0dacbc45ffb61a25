package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"FxSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"XAUUSD": "GC=F",
			"XAGUSD": "SI=F",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps a symbol to its ticker; six-letter FX pairs get the =X suffix.
func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	if len(symbol) == 6 {
		return symbol + "=X"
	}
	return symbol
}

// yahooInterval is the chart interval and range that can cover a timeframe.
var yahooInterval = map[model.Timeframe]struct{ interval, rng string }{
	model.M1:  {"1m", "7d"},
	model.M5:  {"5m", "60d"},
	model.M15: {"15m", "60d"},
	model.M30: {"30m", "60d"},
	model.H1:  {"60m", "730d"},
	model.D1:  {"1d", "10y"},
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(v []*float64, i int) (float64, bool) {
	if i >= len(v) || v[i] == nil {
		return 0, false
	}
	return *v[i], true
}

// FetchBars returns the newest count bars of tf. H2 and H4 are aggregated
// from 60m bars.
func (f *YahooFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	if base, ok := composite[tf]; ok {
		bars, err := f.FetchBars(ctx, symbol, base, baseCount(tf, base, count))
		if err != nil {
			return nil, err
		}
		return model.Tail(AggregateBars(bars, tf), count), nil
	}
	iv, ok := yahooInterval[tf]
	if !ok {
		return nil, fmt.Errorf("yahoo: unsupported timeframe %s", tf)
	}
	bars, err := f.fetchChart(ctx, symbol, iv.interval, iv.rng)
	if err != nil {
		return nil, err
	}
	return model.Tail(bars, count), nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, okO := at(quote.Open, i)
		h, okH := at(quote.High, i)
		l, okL := at(quote.Low, i)
		c, okC := at(quote.Close, i)
		if !okO || !okH || !okL || !okC {
			continue // null samples (market closed)
		}
		v, _ := at(quote.Volume, i)
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
