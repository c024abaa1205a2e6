package finance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"kellyBotTrade/internal/kelly"
)

// ErrNoData is returned when Yahoo answers but has no usable bars.
var ErrNoData = errors.New("no data")

// ErrUnknownSymbol is returned when Yahoo does not know the symbol. It is not retried.
var ErrUnknownSymbol = errors.New("yahoo: unknown symbol")

// HistorySource provides close-price history for one symbol.
type HistorySource interface {
	FetchHistory(ctx context.Context, symbol, interval, rangeParam string) ([]kelly.Observation, error)
}

// YahooClient fetches bars from the Yahoo Finance chart API, rotating hosts and
// falling back to the spark endpoint when the chart endpoint keeps failing.
type YahooClient struct {
	HTTP     *http.Client
	Hosts    []string
	Backoffs []time.Duration
	// OutlierIQR enables the IQR price filter with this multiplier. Zero
	// keeps every positive bar.
	OutlierIQR float64
}

// NewYahooClient returns a client for the public query1/query2 hosts.
func NewYahooClient(timeout time.Duration) *YahooClient {
	return &YahooClient{
		HTTP:     &http.Client{Timeout: timeout},
		Hosts:    []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"},
		Backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
	}
}

// FetchHistory fetches close prices for symbol and returns them cleaned:
// non-positive closes are dropped, bars are ordered by time and, when
// OutlierIQR is set, IQR outliers are removed.
func (c *YahooClient) FetchHistory(ctx context.Context, symbol, interval, rangeParam string) ([]kelly.Observation, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var yc yahooChartResp
	err := c.retry(ctx, func(host string) error {
		url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s&includePrePost=false&events=div,splits", host, symbol, rangeParam, interval)
		return c.getJSON(ctx, url, symbol, &yc)
	})
	if err == nil {
		if yc.Chart.Error != nil {
			return nil, fmt.Errorf("yahoo: %s", yc.Chart.Error.Description)
		}
		if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
			return nil, ErrNoData
		}
		r := yc.Chart.Result[0]
		return cleanObservations(zipBars(r.Timestamp, r.Indicators.Quote[0].Close), c.OutlierIQR), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, ErrUnknownSymbol) {
		return nil, err
	}

	log.Warn().Err(err).Str("symbol", symbol).Msg("yahoo chart failed, trying spark")
	var sp yahooSparkResp
	sparkErr := c.retry(ctx, func(host string) error {
		url := fmt.Sprintf("%s/v7/finance/spark?symbols=%s&range=%s&interval=%s", host, symbol, rangeParam, interval)
		return c.getJSON(ctx, url, symbol, &sp)
	})
	if sparkErr != nil {
		return nil, fmt.Errorf("%w (spark: %v)", err, sparkErr)
	}
	if len(sp.Spark.Result) == 0 || len(sp.Spark.Result[0].Response) == 0 {
		return nil, ErrNoData
	}
	r := sp.Spark.Result[0].Response[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	return cleanObservations(zipBars(r.Timestamp, r.Indicators.Quote[0].Close), c.OutlierIQR), nil
}

// retry calls fn against every host until one succeeds or the symbol is
// unknown, sleeping between rounds.
func (c *YahooClient) retry(ctx context.Context, fn func(host string) error) error {
	var lastErr error
	for attempt := 0; attempt < len(c.Backoffs)+1; attempt++ {
		for _, host := range c.Hosts {
			if err := ctx.Err(); err != nil {
				return err
			}
			lastErr = fn(host)
			if lastErr == nil || errors.Is(lastErr, ErrUnknownSymbol) {
				return lastErr
			}
			log.Debug().Err(lastErr).Str("host", host).Int("attempt", attempt).Msg("yahoo request failed")
		}
		if attempt < len(c.Backoffs) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.Backoffs[attempt]):
			}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("yahoo: no hosts configured")
	}
	return lastErr
}

func (c *YahooClient) getJSON(ctx context.Context, url, symbol string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", symbol))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read yahoo response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return fmt.Errorf("yahoo returned 429: Edge: Too Many Requests")
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w %s", ErrUnknownSymbol, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	return nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// zipBars pairs timestamps with closes; Yahoo reports missing bars as null.
func zipBars(ts []int64, closes []*float64) []kelly.Observation {
	n := len(ts)
	if len(closes) < n {
		n = len(closes)
	}
	out := make([]kelly.Observation, 0, n)
	for i := 0; i < n; i++ {
		if closes[i] == nil {
			continue
		}
		out = append(out, kelly.Observation{Timestamp: ts[i], Price: *closes[i]})
	}
	return out
}
