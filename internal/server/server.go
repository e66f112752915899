// Package server exposes observations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/owlpinetech/skyview"
	"github.com/owlpinetech/skyview/internal/logging"
	"github.com/owlpinetech/skyview/internal/observability"
	"github.com/owlpinetech/skyview/internal/observe"
)

// Observer computes one report. *observe.Observer satisfies it.
type Observer interface {
	Observe(ctx context.Context, resolution int, dir skyview.Direction) (observe.Report, error)
}

// Handlers holds the dependencies of the HTTP endpoints.
type Handlers struct {
	observer Observer
	metrics  *observability.Collector
	log      logging.Logger
}

func NewHandlers(observer Observer, metrics *observability.Collector, log logging.Logger) *Handlers {
	return &Handlers{
		observer: observer,
		metrics:  metrics,
		log:      logging.OrNoop(log),
	}
}

// NewRouter wires the endpoints. /metrics is only mounted when a collector is present.
func NewRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/visibility", h.Visibility).Methods(http.MethodGet)
	if h.metrics != nil {
		router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}
	router.Use(h.requestLogging)
	return router
}

// Visibility handles GET /visibility?resolution=&lon=&lat=.
func (h *Handlers) Visibility(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resolution, err := strconv.Atoi(query.Get("resolution"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("resolution must be an integer: %q", query.Get("resolution")))
		return
	}
	lon, err := parseCoordinate(query.Get("lon"), "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lat, err := parseCoordinate(query.Get("lat"), "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := h.observer.Observe(r.Context(), resolution, skyview.NewDirection(lon, lat))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, log := logging.WithRequestLogger(r.Context(), h.log)
		w.Header().Set("X-Request-ID", logging.RequestIDFromContext(ctx))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		h.metrics.ObserveHTTP(route, r.Method, rec.status, elapsed)
		log.Info(ctx, "request handled",
			logging.String("method", r.Method),
			logging.String("route", route),
			logging.Int("status", rec.status),
			logging.Any("duration", elapsed),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func parseCoordinate(raw string, name string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %q", name, raw)
	}
	return v, nil
}

func statusOf(err error) int {
	switch {
	case observe.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, skyview.ErrNumericDomain):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
