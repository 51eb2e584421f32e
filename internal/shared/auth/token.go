package auth

import (
	"net/http"
	"strings"
)

const bearerScheme = "bearer"

// ParseBearer extracts the token from an Authorization header value.
//
// An empty header yields ErrMissingCredential; anything that is not
// "Bearer <token>" yields ErrMalformedCredential.
//
// Example:
//
//	token, err := ParseBearer("Bearer eyJhbGciOiJIUzUxMiIs...")
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredential
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrMalformedCredential
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedCredential
	}
	return token, nil
}

// AuthorizationHeader returns the raw Authorization header of the request.
func AuthorizationHeader(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get("Authorization")
}
