package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/yairfalse/driftwatch/internal/logger"
)

// Logger logs one line per request with method, path, status and duration
func Logger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)

			next.ServeHTTP(ww, req)

			log.WithFields(map[string]interface{}{
				"method":      req.Method,
				"path":        req.URL.Path,
				"remote_ip":   req.RemoteAddr,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  chimiddleware.GetReqID(req.Context()),
			}).Info("request")
		})
	}
}
