// Package api contains the thin I/O shells around the facade: a chi
// HTTP server and an MCP stdio server. No core logic lives here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/engramdev/engram/pkg/engram"
	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/log"
	"github.com/engramdev/engram/pkg/retrieval"
)

// Server is the engram HTTP API server.
type Server struct {
	engram  *engram.Engram
	router  chi.Router
	version string
	started time.Time
}

// NewServer creates a Server over the given facade.
func NewServer(e *engram.Engram, version string) *Server {
	s := &Server{
		engram:  e,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/memories", s.handleIngest)
		r.Get("/memories/{id}", s.handleGet)
		r.Delete("/memories/{id}", s.handleDelete)
		r.Get("/memories/{id}/related", s.handleRelated)
		r.Post("/search", s.handleSearch)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := s.engram.Ingest(r.Context(), req.Content)
	if err != nil {
		s.writeEngramError(w, r, err)
		return
	}

	if !result.Stored {
		writeJSON(w, http.StatusOK, map[string]any{
			"stored":    false,
			"detection": result.Detection,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"stored": true,
		"record": result.Record,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := s.engram.Recall(r.Context(), id)
	if err != nil {
		s.writeEngramError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.engram.Forget(r.Context(), id); err != nil {
		s.writeEngramError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query             string   `json:"query"`
		Limit             int      `json:"limit"`
		Category          string   `json:"category"`
		MinImportance     float64  `json:"min_importance"`
		Entities          []string `json:"entities"`
		UseSemanticSearch bool     `json:"use_semantic_search"`
		MinSimilarity     float64  `json:"min_similarity"`
		Start             string   `json:"start"`
		End               string   `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	opts := retrieval.Options{
		Limit:             req.Limit,
		Category:          req.Category,
		MinImportance:     req.MinImportance,
		Entities:          req.Entities,
		UseSemanticSearch: req.UseSemanticSearch,
		MinSimilarity:     req.MinSimilarity,
	}

	if req.Start != "" || req.End != "" {
		dr, err := parseDateRange(req.Start, req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.DateRange = dr
	}

	results, err := s.engram.Search(r.Context(), req.Query, opts)
	if err != nil {
		s.writeEngramError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opts := retrieval.Options{}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}

	results, err := s.engram.Related(r.Context(), id, opts)
	if err != nil {
		s.writeEngramError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

// writeEngramError maps facade errors onto HTTP status codes.
func (s *Server) writeEngramError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		writeError(w, http.StatusNotFound, "memory not found")
	case errors.Is(err, errors.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseDateRange(start, end string) (*retrieval.DateRange, error) {
	dr := &retrieval.DateRange{End: time.Now()}
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, errors.Wrap(errors.ErrValidation, "invalid start time: %v", err)
		}
		dr.Start = t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return nil, errors.Wrap(errors.ErrValidation, "invalid end time: %v", err)
		}
		dr.End = t
	}
	return dr, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
