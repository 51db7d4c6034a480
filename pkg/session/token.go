// Package session mints the signed token that identifies an anonymous shopper.
package session

import (
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ShopperClaims binds a shopper id to the standard registered claims.
type ShopperClaims struct {
	ShopperID uuid.UUID `json:"shopper_id"`
	jwt.RegisteredClaims
}

// MintShopperToken issues a signed JWT for shopperID using the configured TTL.
func MintShopperToken(cfg config.SessionConfig, now time.Time, shopperID uuid.UUID) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("session secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("session issuer is required")
	}
	if cfg.TTL <= 0 {
		return "", fmt.Errorf("session ttl must be positive")
	}
	if shopperID == uuid.Nil {
		return "", fmt.Errorf("shopper id is required")
	}

	claims := ShopperClaims{
		ShopperID: shopperID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   shopperID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseShopperToken validates the JWT string and returns typed claims.
func ParseShopperToken(cfg config.SessionConfig, tokenString string) (*ShopperClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	claims := &ShopperClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if claims.ShopperID == uuid.Nil {
		return nil, fmt.Errorf("token carries no shopper id")
	}
	return claims, nil
}
