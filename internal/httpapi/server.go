// Package httpapi exposes the orchestrator over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"profilegate/internal/model"
	"profilegate/internal/orchestrator"
)

// Service is the part of *orchestrator.Orchestrator the routes use.
type Service interface {
	Handle(ctx context.Context, key string) (*model.Envelope, error)
	HandleFallback(ctx context.Context, key string) *model.Envelope
	Profile(ctx context.Context, key string) (*model.Envelope, error)
	Report(ctx context.Context, key string, useCache bool) (*orchestrator.ReportResult, error)
	Status() orchestrator.StatusReport
}

type Server struct {
	svc      Service
	origins  []string
	timeout  time.Duration
	validate *validator.Validate
}

type keyParam struct {
	Key string `validate:"required,max=30,resourcekey"`
}

func New(svc Service, allowedOrigins []string, requestTimeout time.Duration) *Server {
	v := validator.New()
	_ = v.RegisterValidation("resourcekey", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "/\\ \t\r\n?#")
	})
	return &Server{svc: svc, origins: allowedOrigins, timeout: requestTimeout, validate: v}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.cors)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "profilegate",
			"status":  "ok",
			"endpoints": map[string]string{
				"analyze":      "/analyze/{key}",
				"profile":      "/profile/{key}",
				"analyze_mock": "/analyze-mock/{key}",
				"report":       "/report/{key}",
				"status":       "/status",
			},
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.svc.Status())
	})

	r.Get("/analyze/{key}", s.analyze)
	r.Get("/profile/{key}", s.profile)
	r.Get("/analyze-mock/{key}", s.analyzeMock)
	r.Get("/report/{key}", s.report)
	return r
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, r)
	if !ok {
		return
	}
	if boolQuery(r, "force_mock", false) {
		writeJSON(w, http.StatusOK, s.svc.HandleFallback(r.Context(), key))
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	env, err := s.svc.Handle(ctx, key)
	if err != nil {
		s.writeError(w, key, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	env, err := s.svc.Profile(ctx, key)
	if err != nil {
		s.writeError(w, key, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) analyzeMock(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.HandleFallback(r.Context(), key))
}

// report streams the rendered document back as an attachment.
func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	key, ok := s.key(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	res, err := s.svc.Report(ctx, key, boolQuery(r, "use_cache", true))
	if err != nil {
		s.writeError(w, key, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(res.Path)))
	h.Set("X-Data-Source", string(res.Envelope.DataSource))
	if res.Envelope.Reason != "" {
		h.Set("X-Fallback-Reason", res.Envelope.Reason)
	}
	http.ServeFile(w, r, res.Path)
}

func (s *Server) key(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "key")
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	key := strings.TrimPrefix(strings.TrimSpace(raw), "@")

	if err := s.validate.Struct(keyParam{Key: key}); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "invalid_key",
			"message": "key must be 1-30 characters without slashes or spaces",
		})
		return "", false
	}
	return key, true
}

func (s *Server) writeError(w http.ResponseWriter, key string, err error) {
	var rl *orchestrator.RateLimitedError
	switch {
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       "rate_limited",
			"message":     fmt.Sprintf("Too many requests. Wait %d seconds before trying again.", rl.RetryAfter),
			"retry_after": rl.RetryAfter,
			"suggestion":  "Use /analyze-mock/" + key + " for sample data.",
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": "timeout"})
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		log.Printf("httpapi: %s: %v", key, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "internal",
			"message": err.Error(),
		})
	}
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", "Retry-After, X-Data-Source, X-Fallback-Reason")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func boolQuery(r *http.Request, name string, def bool) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
