package handlers

import (
	"context"
	"net/http"
	"runtime"

	"go.uber.org/zap"

	"shipmentledger/logger"
)

type requestIDKey struct{}

// WithRequestID stores the request id used in logs and the X-Request-ID header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RecoverWrapper wraps an http.HandlerFunc with panic recovery
func RecoverWrapper(log *zap.Logger, handler http.HandlerFunc) http.HandlerFunc {
	log = logger.OrNop(log)
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := make([]byte, 8*1024)
				stack = stack[:runtime.Stack(stack, false)]
				log.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("request_id", RequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", stack),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		handler(w, r)
	}
}
