// internal/middleware/requestlog.go
//
// Structured access log.
//
// One INFO line per request with method, path, status, bytes, latency, and
// the request id assigned by chi's RequestID middleware.  When the
// requestinfo.Enrich wrapper ran earlier in the chain, client IP, country,
// browser, device, and bot flag are added too.  5xx responses log at ERROR.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/docschema/internal/requestinfo"
)

// RequestLog returns a middleware that writes access lines to log.
func RequestLog(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimw.GetReqID(r.Context()),
			}
			if info := requestinfo.FromContext(r.Context()); info != nil {
				kv = append(kv,
					"ip", info.Geo.IP.String(),
					"country", info.Geo.CountryISO,
					"browser", info.UA.Browser,
					"device", info.UA.Device,
					"bot", info.UA.IsBot,
				)
			}

			if status >= http.StatusInternalServerError {
				log.Errorw("request", kv...)
				return
			}
			log.Infow("request", kv...)
		})
	}
}
