package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kellyBotTrade/internal/finance"
	"kellyBotTrade/internal/kelly"
)

type fakeSource struct {
	obs []kelly.Observation
	err error
}

func (f fakeSource) FetchHistory(_ context.Context, _, _, _ string) ([]kelly.Observation, error) {
	return f.obs, f.err
}

func bars(n int) []kelly.Observation {
	out := make([]kelly.Observation, n)
	start := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC).Unix()
	for i := range out {
		wiggle := []float64{0, 1.5, -0.8, 2.1, -1.7, 0.6}[i%6]
		out[i] = kelly.Observation{Timestamp: start + int64(i)*86400, Price: 100 + 0.2*float64(i) + wiggle}
	}
	return out
}

func newTestMux(src finance.HistorySource) *http.ServeMux {
	defaults := kelly.Config{Bins: 10, Lookup: kelly.LookupNormalized, MaxFraction: 1}
	return NewHTTPMux(nil, finance.NewAnalyzer(src, defaults, 0), 5*time.Second)
}

func do(mux http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(newTestMux(fakeSource{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestKellyJSON(t *testing.T) {
	rec := do(newTestMux(fakeSource{obs: bars(120)}), "/api/kelly?symbol=spy")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var report finance.KellyReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "SPY", report.Symbol)
	assert.Equal(t, "1d", report.Interval)
	assert.Equal(t, 10, report.Config.Bins)
	require.NotNil(t, report.Result)
	assert.Len(t, report.Result.AllIn, 120)
	assert.Len(t, report.Result.Kelly, 120)
	assert.Len(t, report.Result.Table.Bins, 10)
	assert.NotNil(t, report.AllInStats)
}

func TestKellyJSONKeepsRequestID(t *testing.T) {
	mux := newTestMux(fakeSource{obs: bars(120)})
	req := httptest.NewRequest(http.MethodGet, "/api/kelly?symbol=SPY", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestKellyPNG(t *testing.T) {
	rec := do(newTestMux(fakeSource{obs: bars(120)}), "/api/kelly.png?symbol=SPY&bins=10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
}

func TestKellyCSV(t *testing.T) {
	rec := do(newTestMux(fakeSource{obs: bars(120)}), "/api/kelly.csv?symbol=SPY")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, "timestamp,all_in,kelly,rank,edge,fraction,realized", lines[0])
	assert.Len(t, lines, 121)
}

func TestKellyErrors(t *testing.T) {
	flat := make([]kelly.Observation, 30)
	for i := range flat {
		flat[i] = kelly.Observation{Timestamp: int64(i), Price: 50}
	}
	tests := []struct {
		name   string
		src    fakeSource
		target string
		status int
	}{
		{name: "bad bins", src: fakeSource{obs: bars(120)}, target: "/api/kelly?symbol=SPY&bins=abc", status: http.StatusBadRequest},
		{name: "bad fraction", src: fakeSource{obs: bars(120)}, target: "/api/kelly?symbol=SPY&max_fraction=x", status: http.StatusBadRequest},
		{name: "missing symbol", src: fakeSource{obs: bars(120)}, target: "/api/kelly", status: http.StatusBadRequest},
		{name: "bad interval", src: fakeSource{obs: bars(120)}, target: "/api/kelly?symbol=SPY&interval=2h", status: http.StatusBadRequest},
		{name: "fetch failure", src: fakeSource{err: errors.New("yahoo down")}, target: "/api/kelly?symbol=SPY", status: http.StatusBadGateway},
		{name: "flat series", src: fakeSource{obs: flat}, target: "/api/kelly?symbol=SPY", status: http.StatusUnprocessableEntity},
		{name: "single bar", src: fakeSource{obs: bars(1)}, target: "/api/kelly.csv?symbol=SPY", status: http.StatusUnprocessableEntity},
		{name: "unknown symbol", src: fakeSource{err: fmt.Errorf("%w NOPE", finance.ErrUnknownSymbol)}, target: "/api/kelly?symbol=NOPE", status: http.StatusNotFound},
		{name: "png fetch failure", src: fakeSource{err: finance.ErrNoData}, target: "/api/kelly.png?symbol=SPY", status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestMux(tt.src), tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, rec.Header().Get(requestIDHeader), body.RequestID)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(fakeSource{obs: bars(120)})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/kelly?symbol=SPY", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&kelly.BinError{Bin: 3, Step: 4}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(kelly.ErrDegenerateRange))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.New("boom")))
}
