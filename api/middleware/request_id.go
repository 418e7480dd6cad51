package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/outbox"
)

const (
	requestIDHeader   = "X-Request-Id"
	maxRequestIDBytes = 64
)

// RequestID echoes a caller-supplied id when it is short and printable, so
// importer runs can correlate their lines with server logs. Anything else is
// replaced by a fresh uuid.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !usableRequestID(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)
			ctx := outbox.WithCorrelationID(r.Context(), reqID)
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(ctx, reqID)))
		})
	}
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDBytes {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}
