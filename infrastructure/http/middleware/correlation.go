package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

const CorrelationIDHeader = "X-Correlation-ID"

// longest inbound ID we keep; anything longer is replaced
const maxCorrelationIDLength = 128

// CorrelationID ensures every request and response carries a correlation ID
// under header and puts it in the request context for the logger.
func CorrelationID(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = CorrelationIDHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := r.Header.Get(header)
			if cid == "" || len(cid) > maxCorrelationIDLength {
				cid = uuid.NewString()
			}
			w.Header().Set(header, cid)

			ctx := logger.WithCorrelationID(r.Context(), cid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
