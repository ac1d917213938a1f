package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

func New(deps Dependencies) *Server {
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = defaultCacheTTL
	}
	if deps.Started.IsZero() {
		deps.Started = time.Now()
	}

	return &Server{
		deps:  deps,
		cache: cache.New(deps.CacheTTL, 2*deps.CacheTTL),
	}
}

func (server *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/rss/articles", server.getArticles)
	mux.HandleFunc("GET /api/rss/articles/supabase", server.getStoredArticles)
	mux.HandleFunc("GET /api/rss/articles/stats", server.getStoredStats)
	mux.HandleFunc("GET /api/rss/push", server.push)
	mux.HandleFunc("POST /api/rss/push", server.push)
	mux.HandleFunc("POST /api/rss/trigger", server.trigger)
	mux.HandleFunc("GET /api/rss/health", server.getSourcesHealth)
	mux.HandleFunc("GET /api/rss/cache", server.getCacheReport)
	mux.HandleFunc("DELETE /api/rss/cache", server.clearCache)
	mux.HandleFunc("GET /api/rss/status", server.getStatus)
	mux.HandleFunc("GET /health", server.getLiveness)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, messageNotFound, nil)
	})

	return withLogging(withRecovery(mux))
}

// Run blocks until the server stops. A graceful shutdown is not an error.
func (server *Server) Run(addr string) error {
	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Info().Str("addr", addr).Msg("HTTP server listening")
	if err := server.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (server *Server) Shutdown() {
	if server.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := envelope{"success": false, "message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, status, body)
}
