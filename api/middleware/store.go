package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,79}$`)

// StoreSlug binds the {slug} route parameter as the store context of the request.
func StoreSlug(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slug")))
			if !slugPattern.MatchString(slug) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid store slug"))
				return
			}
			ctx := WithStoreSlug(r.Context(), slug)
			if logg != nil {
				ctx = logg.WithStoreSlug(ctx, slug)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
