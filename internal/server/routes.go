package server

import (
	"log/slog"
	"net/http"

	"github.com/Eugene7997/Vidrpy/internal/storage"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// JWTSecret verifies bearer tokens on /api/v1 routes.
	JWTSecret []byte
	// Files serves stored objects when the local object store is used.
	Files http.Handler
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()
	auth := AuthMiddleware(cfg.JWTSecret, logger)
	api := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, auth(fn))
	}

	mux.HandleFunc("GET /health", h.Health)

	api("GET /api/v1/videos", h.ListVideos)
	api("GET /api/v1/videos/{$}", h.ListVideos)
	api("POST /api/v1/videos", h.CreateVideo)
	api("POST /api/v1/videos/{$}", h.CreateVideo)
	api("GET /api/v1/videos/{id}", h.GetVideo)
	api("PATCH /api/v1/videos/{id}", h.UpdateVideo)
	api("DELETE /api/v1/videos/{id}", h.DeleteVideo)
	api("PUT /api/v1/videos/{id}/tracks/{track}", h.SetTrackStatus)
	api("POST /api/v1/videos/{id}/upload", h.UploadVideo)

	if cfg.Files != nil {
		mux.Handle("GET "+storage.PublicPathPrefix+storage.Bucket+"/", cfg.Files)
	}

	// Apply middleware chain
	chain := ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
