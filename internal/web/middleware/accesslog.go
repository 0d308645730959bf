package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attendance/internal/logger"
)

// slowRequest marks requests at warn level; image uploads usually finish well below it.
const slowRequest = 5 * time.Second

// AccessLog logs one line per request with status, size and duration.
func AccessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			evt := log.Info()
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				evt = log.Error()
			case elapsed >= slowRequest:
				evt = log.Warn()
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt.Str("request_id", chiMiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", elapsed).
				Msg("request done")
		})
	}
}
