package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kellyBotTrade/internal/finance"
	"kellyBotTrade/internal/kelly"
)

// KellyService is the part of finance.Analyzer the API needs.
type KellyService interface {
	Run(ctx context.Context, req finance.KellyRequest) (*finance.KellyReport, error)
	Chart(ctx context.Context, req finance.KellyRequest) ([]byte, *finance.KellyReport, error)
}

const requestIDHeader = "X-Request-ID"

// NewHTTPMux registers the webhook (when set), the health check and the
// backtest API.
func NewHTTPMux(webhook http.HandlerFunc, svc KellyService, timeout time.Duration) *http.ServeMux {
	mux := http.NewServeMux()
	if webhook != nil {
		mux.HandleFunc("POST /telegram/webhook", webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })

	api := &api{svc: svc, timeout: timeout}
	mux.HandleFunc("GET /api/kelly", api.handleJSON)
	mux.HandleFunc("GET /api/kelly.png", api.handlePNG)
	mux.HandleFunc("GET /api/kelly.csv", api.handleCSV)
	return mux
}

func ListenAndServe(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

type api struct {
	svc     KellyService
	timeout time.Duration
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (a *api) handleJSON(w http.ResponseWriter, r *http.Request) {
	id, req, ctx, cancel, ok := a.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	report, err := a.svc.Run(ctx, req)
	if err != nil {
		writeError(w, id, req, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *api) handlePNG(w http.ResponseWriter, r *http.Request) {
	id, req, ctx, cancel, ok := a.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	img, _, err := a.svc.Chart(ctx, req)
	if err != nil {
		writeError(w, id, req, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	_, _ = w.Write(img)
}

func (a *api) handleCSV(w http.ResponseWriter, r *http.Request) {
	id, req, ctx, cancel, ok := a.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	report, err := a.svc.Run(ctx, req)
	if err != nil {
		writeError(w, id, req, err)
		return
	}
	var buf bytes.Buffer
	if err := finance.WriteTrajectoryCSV(&buf, report.Result); err != nil {
		writeError(w, id, req, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Symbol+`_kelly.csv"`)
	_, _ = w.Write(buf.Bytes())
}

// begin assigns a request id, parses the query and derives the request context.
func (a *api) begin(w http.ResponseWriter, r *http.Request) (string, finance.KellyRequest, context.Context, context.CancelFunc, bool) {
	id := r.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, id)

	req, err := parseKellyRequest(r)
	if err != nil {
		log.Warn().Err(err).Str("request_id", id).Str("path", r.URL.Path).Msg("api: bad query")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), RequestID: id})
		return id, req, nil, nil, false
	}
	log.Info().Str("request_id", id).Str("path", r.URL.Path).Str("symbol", req.Symbol).Msg("api: request")

	ctx, cancel := r.Context(), context.CancelFunc(func() {})
	if a.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
	}
	return id, req, ctx, cancel, true
}

func parseKellyRequest(r *http.Request) (finance.KellyRequest, error) {
	q := r.URL.Query()
	req := finance.KellyRequest{
		Symbol:   q.Get("symbol"),
		Interval: q.Get("interval"),
		Window:   q.Get("window"),
		Lookup:   q.Get("lookup"),
	}
	if v := q.Get("bins"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("bins must be an integer")
		}
		req.Bins = n
	}
	if v := q.Get("max_fraction"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, errors.New("max_fraction must be a number")
		}
		req.MaxFraction = f
	}
	return req, nil
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, finance.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, finance.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, kelly.ErrEmptyInput),
		errors.Is(err, kelly.ErrInvalidPrice),
		errors.Is(err, kelly.ErrUndefinedBin),
		errors.Is(err, kelly.ErrInvalidRank),
		errors.Is(err, kelly.ErrInvalidBinCount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, id string, req finance.KellyRequest, err error) {
	status := statusFor(err)
	log.Error().Err(err).Str("request_id", id).Str("symbol", req.Symbol).Int("status", status).Msg("api: request failed")
	writeJSON(w, status, errorBody{Error: err.Error(), RequestID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("api: encode response")
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
