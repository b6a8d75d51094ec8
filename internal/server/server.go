package server // import "github.com/Xunop/e-oasis-mcp/internal/server"

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	v1 "github.com/Xunop/e-oasis-mcp/internal/api/v1"
	"github.com/Xunop/e-oasis-mcp/internal/config"
	"github.com/Xunop/e-oasis-mcp/internal/http/request"
	"github.com/Xunop/e-oasis-mcp/internal/library"
	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/rss"
	"github.com/Xunop/e-oasis-mcp/internal/store"
	"github.com/Xunop/e-oasis-mcp/internal/version"
)

// StartServer starts the HTTP server in the background. It stops when ctx is done.
func StartServer(ctx context.Context, s *store.Store, lib *library.Service, images *rss.ImageProxy) *http.Server {
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Opts.Host, config.Opts.Port),
		Handler:           setupHandler(s, lib, images),
		ReadHeaderTimeout: 10 * time.Second,
	}

	startHTTPServer(server)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown", zap.Error(err))
		}
	}()
	return server
}

func startHTTPServer(server *http.Server) {
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()
}

func setupHandler(s *store.Store, lib *library.Service, images *rss.ImageProxy) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware)

	v1.Server(router, v1.NewHandler(lib, images))

	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ping(); err != nil {
			log.Error("Database ping failed", zap.Error(err))
			http.Error(w, "Database Connection Error", http.StatusInternalServerError)
			return
		}

		w.Write([]byte("OK"))
	}).Name("healthcheck")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(version.GetCurrentVersion()))
	}).Name("version")

	return router
}

func middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := request.FindClientIP(r)
		ctx := context.WithValue(r.Context(), request.ClientIPContextKey, clientIP)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
