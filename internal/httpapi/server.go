// Package httpapi is the local HTTP bridge a UI process uses to build
// prompts, run analyses and browse history.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"promptstock/internal/controller"
	"promptstock/internal/history"
	"promptstock/internal/prompt"
	"promptstock/pkg/types"
)

// Executor runs analyses one at a time.
type Executor interface {
	Execute(ctx context.Context, prompt string, images []string) (types.GenerationResult, error)
	Cancel()
	State() controller.State
	SetAppState(controller.AppState)
}

// AnalysisStore is the history the bridge reads and writes.
type AnalysisStore interface {
	Save(ctx context.Context, a types.Analysis) (types.Analysis, error)
	Get(ctx context.Context, id string) (types.Analysis, error)
	Update(ctx context.Context, id string, fn func(*types.Analysis)) (types.Analysis, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, f history.Filter) ([]types.Analysis, error)
	AllTags(ctx context.Context) ([]string, error)
}

// SettingsStore persists the user's settings.
type SettingsStore interface {
	Load(ctx context.Context) (types.AppSettings, error)
	Save(ctx context.Context, s types.AppSettings) error
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Exec      Executor
	Analyses  AnalysisStore
	Templates prompt.CustomSource
	Settings  SettingsStore
	// ModelsDir is scanned for installed models on GET /v1/models.
	ModelsDir string
	// Mode reports the configured execution mode for GET /v1/status.
	Mode func() types.Mode
	// BaseContext is canceled on shutdown; running analyses are aborted with it.
	BaseContext context.Context
}

type server struct {
	Deps
}

func NewMux(d Deps) http.Handler {
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	s := &server{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/templates", s.listTemplates)
		r.Post("/templates", s.createTemplate)
		r.Delete("/templates/{id}", s.deleteTemplate)
		r.Post("/prompt", s.buildPrompt)
		r.Get("/models", s.listModels)
		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.putSettings)

		r.Post("/analyze", s.analyze)
		r.Post("/cancel", s.cancel)
		r.Get("/status", s.status)
		r.Post("/lifecycle", s.lifecycle)

		r.Route("/analyses", func(r chi.Router) {
			r.Get("/", s.listAnalyses)
			r.Post("/", s.saveAnalysis)
			r.Get("/{id}", s.getAnalysis)
			r.Patch("/{id}", s.patchAnalysis)
			r.Delete("/{id}", s.deleteAnalysis)
		})
	})
	return r
}

// decodeJSON enforces content type and body size, then decodes into v.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", "")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body", "")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("event=http_encode_error")
	}
}
