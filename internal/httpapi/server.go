package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"alphasim/internal/backtest"
	"alphasim/internal/engine"
	"alphasim/internal/store"
	"alphasim/internal/util"
)

// Server serves the alphasim HTTP API: synchronous backtest runs plus
// read access to the stored signal history and instrument universe.
type Server struct {
	engine  *engine.Engine
	signals store.SignalStore
	bars    store.BarStore
	log     *slog.Logger
}

// NewServer creates a Server wired with the given engine and stores.
func NewServer(eng *engine.Engine, signals store.SignalStore, bars store.BarStore, log *slog.Logger) *Server {
	return &Server{
		engine:  eng,
		signals: signals,
		bars:    bars,
		log:     log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/signals", s.handleSignalNames)
	mux.HandleFunc("GET /api/signals/{name}", s.handleSignals)
	mux.HandleFunc("GET /api/symbols", s.handleSymbols)
	mux.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns an http.Handler with request logging and CORS
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(s.logMiddleware(mux))
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleBacktest runs one backtest synchronously and returns the full
// result. Configuration problems map to 400, missing signal history to
// 422 with a remediation hint.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decoding request: "+err.Error(), "")
		return
	}

	cfg, err := req.ToConfig()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := s.engine.Run(r.Context(), cfg)
	if err != nil {
		var cfgErr *backtest.ConfigError
		var dataErr *backtest.DataUnavailableError
		switch {
		case errors.As(err, &cfgErr):
			writeError(w, http.StatusBadRequest, cfgErr.Error(), "")
		case errors.As(err, &dataErr):
			writeError(w, http.StatusUnprocessableEntity, dataErr.Error(), dataErr.Hint)
		default:
			s.log.Error("backtest failed", "signal", cfg.SignalName, "err", err)
			writeError(w, http.StatusInternalServerError, "backtest failed", "")
		}
		return
	}

	writeJSON(w, result)
}

// handleSignalNames lists all signal names present in storage.
func (s *Server) handleSignalNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.signals.ListSignalNames(r.Context())
	if err != nil {
		s.log.Error("listing signal names", "err", err)
		writeError(w, http.StatusInternalServerError, "listing signals", "")
		return
	}
	writeJSON(w, map[string][]string{"names": names})
}

// handleSignals returns the stored raw rows for one signal over a range.
// Query params: start, end (YYYY-MM-DD, both required).
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	start, err := util.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date", "")
		return
	}
	end, err := util.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date", "")
		return
	}

	raws, err := s.signals.ReadSignalValues(r.Context(), name, start, end)
	if err != nil {
		s.log.Error("reading signal values", "signal", name, "err", err)
		writeError(w, http.StatusInternalServerError, "reading signal values", "")
		return
	}

	resp := SignalsResponse{Name: name, Rows: make([]SignalRowJSON, 0, len(raws))}
	for _, raw := range raws {
		resp.Rows = append(resp.Rows, SignalRowJSON{
			Scope:  string(raw.Scope),
			Date:   util.FormatDate(raw.Date),
			Ticker: raw.Ticker,
			Value:  raw.Value,
		})
	}
	writeJSON(w, resp)
}

// handleSymbols lists the instrument universe known to the bar store.
func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.bars.ListSymbols(r.Context(), "us")
	if err != nil {
		s.log.Error("listing symbols", "err", err)
		writeError(w, http.StatusInternalServerError, "listing symbols", "")
		return
	}
	writeJSON(w, SymbolsResponse{Symbols: symbols})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, hint string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Hint: hint})
}
