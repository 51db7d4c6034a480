package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// clientRequestID admits non-uuid client ids (ulid, nanoid) that are short and header-safe.
var clientRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID tags the request, its log context and the response with one correlation id.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := requestIDFrom(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestIDFrom(r *http.Request) string {
	incoming := r.Header.Get(requestIDHeader)
	if _, err := uuid.Parse(incoming); err == nil || clientRequestID.MatchString(incoming) {
		return incoming
	}
	return uuid.NewString()
}
