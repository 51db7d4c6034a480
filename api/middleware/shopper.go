package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/session"
)

// ShopperTokenHeader carries the shopper token for clients that do not keep cookies.
const ShopperTokenHeader = "X-Shopper-Token"

// Shopper identifies the anonymous shopper from the session cookie, the Authorization
// header or ShopperTokenHeader, minting a new identity when none is valid. Each shopper owns one storage
// partition, the server-side equivalent of a browser profile.
func Shopper(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			shopperID := ""
			if raw := shopperToken(r, cfg.CookieName); raw != "" {
				claims, err := session.ParseShopperToken(cfg, raw)
				if err == nil {
					shopperID = claims.ShopperID.String()
				} else if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "shopper.token_rejected")
				}
			}

			if shopperID == "" {
				id := uuid.New()
				token, err := session.MintShopperToken(cfg, time.Now(), id)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "shopper session unavailable"))
					return
				}
				shopperID = id.String()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				w.Header().Set(ShopperTokenHeader, token)
			}

			ctx = WithShopperID(ctx, shopperID)
			if logg != nil {
				ctx = logg.WithShopperID(ctx, shopperID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func shopperToken(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, err := validators.BearerToken(r.Header.Get("Authorization")); err == nil {
		return token
	}
	return strings.TrimSpace(r.Header.Get(ShopperTokenHeader))
}
