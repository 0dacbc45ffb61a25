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

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string) *VsTraderFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &VsTraderFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FetchBars requests count bars of tf. When a composite timeframe (H2, H4)
// is not served, H1 bars are fetched and aggregated instead.
func (f *VsTraderFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	bars, err := f.fetchBars(ctx, symbol, tf, count)
	if err == nil {
		return bars, nil
	}
	base, ok := composite[tf]
	if !ok || ctx.Err() != nil {
		return nil, err
	}
	baseBars, baseErr := f.fetchBars(ctx, symbol, base, baseCount(tf, base, count))
	if baseErr != nil {
		return nil, fmt.Errorf("%s fetch failed: %w; %s fallback also failed: %w", tf, err, base, baseErr)
	}
	return model.Tail(AggregateBars(baseBars, tf), count), nil
}

func (f *VsTraderFetcher) fetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	q.Set("limit", fmt.Sprint(count))
	endpoint := fmt.Sprintf("%s/api/v1/bars?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var vsBars []vsBar
	if err := json.NewDecoder(resp.Body).Decode(&vsBars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.OHLCV, len(vsBars))
	for i, vb := range vsBars {
		bars[i] = model.OHLCV{
			Time:   time.Unix(vb.Timestamp, 0).UTC(),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: vb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
