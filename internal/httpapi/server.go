// Package httpapi exposes the gateway over HTTP: inference endpoints per
// capability, admin key management, and the usual operational endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aigated/internal/gateway"
	"aigated/pkg/types"
)

// apiKeyHeader carries the raw API key on every authenticated request.
const apiKeyHeader = "X-API-Key"

// Server holds the request pipeline behind the HTTP handlers.
type Server struct {
	d *gateway.Dispatcher
}

// NewMux builds the router with all endpoints mounted.
func NewMux(d *gateway.Dispatcher) http.Handler {
	s := &Server{d: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/generate", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/completion", s.handleCompletion)
	})
	r.Post("/transcribe/", s.handleTranscribe)
	r.Post("/embeddings/", s.handleEmbeddings)
	r.Post("/ocr/recognize", s.handleOCR)

	r.Route("/business", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Post("/sentiment", s.handleSentiment)
		r.Post("/entities", s.handleEntities)
		r.Post("/summarize", s.handleSummarize)
		r.Post("/translate", s.handleTranslate)
		r.Post("/analyze/comprehensive", s.handleComprehensive)
		r.Get("/health", s.handleBusinessHealth)
	})

	r.Route("/admin/keys", func(r chi.Router) {
		r.Post("/", s.handleCreateKey)
		r.Get("/", s.handleListKeys)
		r.Post("/{id}/revoke", s.handleRevokeKey)
		r.Post("/{id}/activate", s.handleActivateKey)
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: s.d.Manager().ListModels()})
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.d.Manager().Status())
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.d.Manager().Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// dispatch runs the gateway pipeline for one request and maps any failure
// to a status code. Returns false when an error response was written.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, c types.Capability, modelID string, invoke gateway.Invoke) bool {
	// Join the server base context so shutdown cancels in-flight work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	err := s.d.Dispatch(ctx, r.Header.Get(apiKeyHeader), c, modelID, invoke)
	if err == nil {
		return true
	}
	// Client gone or server stopping; nothing useful to write.
	if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
		return false
	}
	writeError(w, err)
	return false
}

// decodeJSON enforces content type and body size, then decodes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// authorized authenticates the caller for non-dispatch endpoints.
func (s *Server) authorized(w http.ResponseWriter, r *http.Request, c types.Capability) bool {
	if _, err := s.d.Authorized(r.Context(), r.Header.Get(apiKeyHeader), c); err != nil {
		writeError(w, err)
		return false
	}
	return true
}
