package v1

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/http/request"
	"github.com/Xunop/e-oasis-mcp/internal/log"
)

func HandleCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "7200")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func LoggingRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			log.Debug("[API] Incoming request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("client_ip", request.ClientIP(r)),
				zap.Duration("duration", time.Since(start)))
		}()
		next.ServeHTTP(w, r)
	})
}
