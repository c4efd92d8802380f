package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// quietPaths are polled by infrastructure and only logged at debug level
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

const requestLogKey contextKey = "request_log"

// requestLog collects fields set by inner middleware for the completion line
type requestLog struct {
	userID int64
}

// noteUser records the authenticated caller for the request log line, if any
func noteUser(ctx context.Context, userID int64) {
	if entry, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		entry.userID = userID
	}
}

// LoggingMiddleware logs one line per request. Server errors are logged at
// error level and client errors at warn.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			entry := &requestLog{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestLogKey, entry)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}
			if entry.userID != 0 {
				fields = append(fields, zap.Int64("user_id", entry.userID))
			}

			if ce := logger.Check(requestLevel(r.URL.Path, status), "Request completed"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}

func requestLevel(path string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case quietPaths[path]:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
