package finance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kellyBotTrade/internal/kelly"
)

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"SPY","currency":"USD"},
"timestamp":[300,100,200,400],
"indicators":{"quote":[{"close":[103.5,100.0,null,-1]}]}}],"error":null}}`

const sparkBody = `{"spark":{"result":[{"symbol":"SPY","response":[{"timestamp":[1,2,3],
"indicators":{"quote":[{"close":[10,11,12]}]}}]}],"error":null}}`

func testClient(srv *httptest.Server) *YahooClient {
	return &YahooClient{HTTP: srv.Client(), Hosts: []string{srv.URL}, Backoffs: []time.Duration{time.Millisecond}}
}

func TestYahooFetchHistory(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	obs, err := testClient(srv).FetchHistory(context.Background(), "spy", "1d", "1y")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/SPY", gotPath)
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Contains(t, gotQuery, "range=1y")
	// nulls and non-positive closes are dropped, bars come back ordered
	assert.Equal(t, []kelly.Observation{{Timestamp: 100, Price: 100}, {Timestamp: 300, Price: 103.5}}, obs)
}

func TestYahooFetchHistoryRetriesThenFallsBackToSpark(t *testing.T) {
	var chartCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v8/") {
			atomic.AddInt32(&chartCalls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Edge: Too Many Requests"))
			return
		}
		w.Write([]byte(sparkBody))
	}))
	defer srv.Close()

	obs, err := testClient(srv).FetchHistory(context.Background(), "SPY", "1d", "5d")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&chartCalls))
	assert.Len(t, obs, 3)
	assert.Equal(t, 12.0, obs[2].Price)
}

func TestYahooFetchHistoryErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "html body", status: http.StatusOK, body: "<html>nope</html>", wantErr: "non-json"},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: "returned 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(srv).FetchHistory(context.Background(), "XYZ", "1d", "1y")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestYahooFetchHistoryEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).FetchHistory(context.Background(), "XYZ", "1d", "1y")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYahooFetchHistoryCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient(srv).FetchHistory(ctx, "SPY", "1d", "1y")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestYahooFetchHistoryUnknownSymbolFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := testClient(srv)
	c.Hosts = []string{srv.URL, srv.URL}
	_, err := c.FetchHistory(context.Background(), "badticker", "1d", "1y")
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Contains(t, err.Error(), "BADTICKER")
	// one chart request, no further hosts, backoffs or spark fallback
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestYahooFetchHistoryKeepsLateRally(t *testing.T) {
	prices := rally()
	ts := make([]string, len(prices))
	closes := make([]string, len(prices))
	for i, o := range prices {
		ts[i] = fmt.Sprint(1700000000 + 86400*o.Timestamp)
		closes[i] = fmt.Sprint(o.Price)
	}
	body := fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
		strings.Join(ts, ","), strings.Join(closes, ","))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	obs, err := testClient(srv).FetchHistory(context.Background(), "SPY", "1d", "2y")
	require.NoError(t, err)
	require.Len(t, obs, len(prices))

	res, err := kelly.Compute(obs, kelly.Config{Bins: 4, Lookup: kelly.LookupNormalized, MaxFraction: 1})
	require.NoError(t, err)
	assert.Equal(t, 185.0, res.AllIn.Final())
	for i := range obs {
		assert.Equal(t, obs[i].Price, res.AllIn[i].Value)
	}
}

func TestYahooFetchHistoryOutlierFilterIsOptIn(t *testing.T) {
	prices := rally()
	ts := make([]string, len(prices))
	closes := make([]string, len(prices))
	for i, o := range prices {
		ts[i] = fmt.Sprint(o.Timestamp)
		closes[i] = fmt.Sprint(o.Price)
	}
	body := fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
		strings.Join(ts, ","), strings.Join(closes, ","))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := testClient(srv)
	c.OutlierIQR = 1.5
	obs, err := c.FetchHistory(context.Background(), "SPY", "1d", "2y")
	require.NoError(t, err)
	assert.Less(t, len(obs), len(prices))
}
