// Package requestid assigns each request a correlation ID. Incoming
// X-Request-ID headers are trusted so IDs survive proxy hops; otherwise a
// fresh UUID is generated. The ID is echoed back on the response.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"visado/pkg/requestcontext"
)

const headerName = "X-Request-ID"

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerName)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerName, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
