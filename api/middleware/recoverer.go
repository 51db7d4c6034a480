package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Recoverer turns a panic into a logged INTERNAL_ERROR response. A cart used without a
// store context panics with cart.ErrContextUnavailable; that case is logged under its own
// event so handler wiring mistakes stand out from ordinary crashes.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				responses.WriteError(r.Context(), logg, w, recoveredError(r, logg, rec))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func recoveredError(r *http.Request, logg *logger.Logger, rec any) error {
	err, ok := rec.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", rec)
	}

	event, message := "panic.recovered", "panic"
	if errors.Is(err, cart.ErrContextUnavailable) {
		event, message = "cart.context_unavailable", "store context unavailable"
	}
	if logg != nil {
		ctx := logg.WithFields(r.Context(), map[string]any{
			"panic":  fmt.Sprint(rec),
			"method": r.Method,
			"path":   r.URL.Path,
		})
		logg.Error(ctx, event, err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
