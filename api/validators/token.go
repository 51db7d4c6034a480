package validators

import (
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid shopper token")

// BearerToken extracts the token from an Authorization header value.
func BearerToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" || strings.EqualFold(token, "bearer") {
		return "", ErrInvalidToken
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrInvalidToken
	}
	return token, nil
}
