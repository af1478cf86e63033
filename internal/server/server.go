// Package server exposes the reply store over a chi REST API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/metaformlabs/metaform-server/internal/db/service"
	"github.com/metaformlabs/metaform-server/internal/schema"
)

// Server wires the schema store and reply stores behind HTTP handlers.
type Server struct {
	logger  *slog.Logger
	schemas *schema.Store
	replies *service.ReplyStore
	fields  *service.FieldStore
	query   *service.ReplyQuery
}

// New creates a server over the given database and schema store.
func New(db *gorm.DB, schemas *schema.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger,
		schemas: schemas,
		replies: service.NewReplyStore(db, logger),
		fields:  service.NewFieldStore(db, logger),
		query:   service.NewReplyQuery(db),
	}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-Id"},
	}))

	r.Route("/v1/metaforms", func(r chi.Router) {
		r.Get("/", s.listMetaformsHandler)
		r.Route("/{metaformId}", func(r chi.Router) {
			r.Get("/", s.getMetaformHandler)
			r.Route("/replies", func(r chi.Router) {
				r.Post("/", s.createReplyHandler)
				r.Get("/", s.listRepliesHandler)
				r.Route("/{replyId}", func(r chi.Router) {
					r.Get("/", s.getReplyHandler)
					r.Put("/", s.updateReplyHandler)
					r.Delete("/", s.deleteReplyHandler)
				})
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// userID extracts the submitter identity. Authentication itself is handled
// upstream; an absent header maps to the anonymous user.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	return "anonymous"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
