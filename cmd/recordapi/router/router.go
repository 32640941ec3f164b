// Package router configures HTTP routes for the record API.
//
// Routes configured:
//   - POST   /data       - Create a record, rejected if the id was seen in the lookback window
//   - GET    /data       - List every raw point in the trailing window
//   - PUT    /data/{id}  - Overwrite-by-append (upsert); the path id is authoritative
//   - DELETE /data/{id}  - Purge all history for an id seen in the lookback window
//   - GET    /healthz    - Health check endpoint (returns 200 OK)
//   - GET    /health     - Alias kept for load balancer health checks
//   - GET    /metrics    - Prometheus metrics endpoint
//
// Client errors (bad payload, duplicate id, unknown id) map to 400 with
// a message naming the offending id; store failures map to 500 with the
// underlying error exposed. This service runs behind a private load
// balancer, so surfacing store errors verbatim is acceptable.
package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/athenakad/crud-service-update/cmd/recordapi/metrics"
	"github.com/athenakad/crud-service-update/pkg/httpx"
	"github.com/athenakad/crud-service-update/pkg/records"
)

// dataPoint is the request body for POST /data and PUT /data/{id}.
type dataPoint struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// resultPoint is one entry of the GET /data response.
type resultPoint struct {
	Time  time.Time `json:"time"`
	ID    string    `json:"id"`
	Value float64   `json:"value"`
}

// SetupRoutes configures HTTP endpoints for the record API.
func SetupRoutes(svc *records.Service, m *metrics.Metrics, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.Handle("/healthz", httpx.HealthHandler())
	mux.Handle("/health", httpx.HealthHandler())

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Record endpoints
	mux.HandleFunc("POST /data", handleCreate(svc, m, logger))
	mux.HandleFunc("GET /data", handleList(svc, m, logger))
	mux.HandleFunc("PUT /data/{id}", handleUpdate(svc, m, logger))
	mux.HandleFunc("DELETE /data/{id}", handleDelete(svc, m, logger))

	return mux
}

// handleCreate returns a handler for POST /data.
func handleCreate(svc *records.Service, m *metrics.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// Failed requests count toward the duration histogram too.
		defer func() {
			m.ObserveRequestDuration("/data", time.Since(start).Seconds())
		}()

		var body dataPoint
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			m.RecordRequest(r.Method, "/data", http.StatusBadRequest)
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		_, err := svc.Create(r.Context(), body.ID, body.Value)
		if err != nil {
			status := writeServiceError(w, logger, m, "create", err)
			m.RecordRequest(r.Method, "/data", status)
			return
		}

		m.RecordRequest(r.Method, "/data", http.StatusOK)
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "Data created successfully"})
	}
}

// handleList returns a handler for GET /data.
func handleList(svc *records.Service, m *metrics.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			m.ObserveRequestDuration("/data", time.Since(start).Seconds())
		}()

		recs, err := svc.ListRecent(r.Context())
		if err != nil {
			status := writeServiceError(w, logger, m, "list", err)
			m.RecordRequest(r.Method, "/data", status)
			return
		}

		results := make([]resultPoint, 0, len(recs))
		for _, rec := range recs {
			results = append(results, resultPoint{
				Time:  rec.ObservedAt,
				ID:    rec.Key,
				Value: rec.Value,
			})
		}

		m.RecordRequest(r.Method, "/data", http.StatusOK)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

// handleUpdate returns a handler for PUT /data/{id}. The path id wins
// over any id in the body.
func handleUpdate(svc *records.Service, m *metrics.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			m.ObserveRequestDuration("/data/{id}", time.Since(start).Seconds())
		}()
		id := r.PathValue("id")

		var body dataPoint
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			m.RecordRequest(r.Method, "/data/{id}", http.StatusBadRequest)
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		_, err := svc.Update(r.Context(), id, body.Value)
		if err != nil {
			status := writeServiceError(w, logger, m, "update", err)
			m.RecordRequest(r.Method, "/data/{id}", status)
			return
		}

		m.RecordRequest(r.Method, "/data/{id}", http.StatusOK)
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

// handleDelete returns a handler for DELETE /data/{id}.
func handleDelete(svc *records.Service, m *metrics.Metrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			m.ObserveRequestDuration("/data/{id}", time.Since(start).Seconds())
		}()
		id := r.PathValue("id")

		if err := svc.Delete(r.Context(), id); err != nil {
			status := writeServiceError(w, logger, m, "delete", err)
			m.RecordRequest(r.Method, "/data/{id}", status)
			return
		}

		m.RecordRequest(r.Method, "/data/{id}", http.StatusOK)
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "Data " + id + " deleted successfully"})
	}
}

// writeServiceError maps a record service error to an HTTP response and
// returns the status code written.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, m *metrics.Metrics, op string, err error) int {
	var invalid *records.InvalidInputError
	var duplicate *records.DuplicateKeyError
	var notFound *records.NotFoundError

	switch {
	case errors.As(err, &invalid):
		m.RecordError(op, "invalid_input")
		httpx.WriteError(w, http.StatusBadRequest, err)
		return http.StatusBadRequest

	case errors.As(err, &duplicate):
		m.RecordError(op, "duplicate")
		httpx.WriteError(w, http.StatusBadRequest, err)
		return http.StatusBadRequest

	case errors.As(err, &notFound):
		m.RecordError(op, "not_found")
		httpx.WriteError(w, http.StatusBadRequest, err)
		return http.StatusBadRequest

	default:
		m.RecordError(op, "store")
		logger.Error("store request failed", "op", op, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, err)
		return http.StatusInternalServerError
	}
}
