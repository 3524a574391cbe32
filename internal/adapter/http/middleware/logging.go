package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bnema/clipforge/internal/infrastructure/logger"
)

// AccessLog writes one DEBUG line per request. Status polling is chatty, so
// request logs stay below the default level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Debug.Printf("%s %s -> %d (%d bytes, %s) from %s",
			r.Method, logger.SanitizeForLog(r.URL.Path), ww.Status(), ww.BytesWritten(),
			time.Since(start).Round(time.Millisecond), logger.SanitizeForLog(r.RemoteAddr))
	})
}
