package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/headlines/internal/headlines"
	"github.com/JakeFAU/headlines/internal/metrics"
)

const maxBodyBytes = 1 << 20

// Service is the application facade the handlers call.
type Service interface {
	TriggerScrape(ctx context.Context) (headlines.BatchResult, error)
	ListArticles(ctx context.Context) ([]headlines.Article, error)
	ListNotes(ctx context.Context) ([]headlines.Note, error)
	GetArticle(ctx context.Context, id string, populate bool) (headlines.PopulatedArticle, error)
	AttachNote(ctx context.Context, articleID string, fields headlines.NoteFields) (headlines.Article, error)
	DetachNote(ctx context.Context, noteID, articleID string) (headlines.DetachResult, error)
	SoftDeleteArticle(ctx context.Context, articleID string) (headlines.Article, error)
}

// ReadinessCheck reports whether a downstream dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Options tune the server.
type Options struct {
	// RequestTimeout bounds every request except /scrape. Zero disables it.
	RequestTimeout time.Duration
	Checks         map[string]ReadinessCheck
}

// Server wires HTTP handlers to the service.
type Server struct {
	router chi.Router
	svc    Service
	checks map[string]ReadinessCheck
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc Service, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		checks: opts.Checks,
		logger: logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	// A scrape runs to completion regardless of the client, so it is exempt
	// from the request timeout.
	r.Get("/scrape", s.scrape)

	r.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(opts.RequestTimeout))
		}
		r.Get("/articles", s.listArticles)
		r.Get("/notes", s.listNotes)
		r.Get("/Note", s.listNotes)
		r.Get("/articles/{id}", s.getArticle)
		r.Post("/articles/{id}", s.attachNote)
		r.Post("/articles/delete/{id}", s.softDeleteArticle)
		r.Delete("/notes/delete/{note_id}/{article_id}", s.detachNote)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	failures := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.logger.Warn("readiness check failed", zap.Any("failures", failures))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failures": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.TriggerScrape(context.WithoutCancel(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.svc.ListArticles(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.svc.ListNotes(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	populate := true
	if raw := r.URL.Query().Get("populate"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "populate must be a boolean")
			return
		}
		populate = v
	}
	article, err := s.svc.GetArticle(r.Context(), chi.URLParam(r, "id"), populate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) attachNote(w http.ResponseWriter, r *http.Request) {
	var fields headlines.NoteFields
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "body must contain a single JSON object")
		return
	}
	if err := fields.NormalizeNumbers(); err != nil {
		s.fail(w, r, err)
		return
	}
	article, err := s.svc.AttachNote(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) detachNote(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DetachNote(r.Context(), chi.URLParam(r, "note_id"), chi.URLParam(r, "article_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) softDeleteArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.svc.SoftDeleteArticle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// fail maps domain errors to status codes. Server-side failures are logged
// and reported without internal detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *headlines.ValidationError
		ferr *headlines.FetchError
	)
	switch {
	case errors.Is(err, headlines.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &ferr):
		s.logger.Warn("upstream fetch failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadGateway, ferr.Error())
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
