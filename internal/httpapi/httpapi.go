// Package httpapi exposes a read-only JSON view of a pack over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alucardeht/spfpack/internal/index"
	"github.com/alucardeht/spfpack/internal/logger"
	"github.com/alucardeht/spfpack/internal/service"
)

var log = logger.ForComponent("http")

const requestTimeout = 30 * time.Second

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// NewServer builds an HTTP server with the project's timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", h.svc.Metrics().Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/entities", h.handleEntities)
		r.Get("/entities/{id}", h.handleEntity)
		r.Get("/search", h.handleSearch)
		r.Get("/map", h.handleMap)
		r.Get("/lint", h.handleLint)

		r.Route("/index", func(r chi.Router) {
			r.Get("/entities", h.handleIndexedEntities)
			r.Get("/entities/{id}", h.handleIndexedEntity)
			r.Get("/stats", h.handleIndexStats)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":   "ok",
		"pack_dir": h.svc.Dir(),
	}
	if snap := h.svc.Snapshot(); snap != nil {
		body["domain"] = snap.Pack.Domain
		body["entities"] = len(snap.Pack.Entities)
		body["refreshed_at"] = snap.RefreshedAt
	}
	if stats, err := h.svc.Stats(r.Context()); err != nil {
		log.Warn("index stats unavailable", "error", err)
	} else if stats != nil {
		body["index"] = stats
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleEntities(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("kind")))

	entities, err := h.svc.Entities(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(entities),
		"entities": entities,
	})
}

func (h *Handler) handleEntity(w http.ResponseWriter, r *http.Request) {
	entity, err := h.svc.Entity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeErrorMessage(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorMessage(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	results, err := h.svc.Search(r.Context(), query, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GenerateMap(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result.Content))
}

func (h *Handler) handleLint(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Lint)
}

// handleIndexedEntities serves the SQLite index rather than the in-memory
// snapshot, so records carry their scan ID and content hash.
func (h *Handler) handleIndexedEntities(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("kind")))

	records, err := h.svc.IndexedEntities(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(records),
		"entities": records,
	})
}

func (h *Handler) handleIndexedEntity(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.IndexedEntity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if stats == nil {
		writeError(w, service.ErrIndexDisabled)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, index.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrIndexDisabled):
		writeErrorMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error("request failed", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}
