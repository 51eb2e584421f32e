package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMissingCredential   = fmt.Errorf("%w: missing credential", ErrUnauthorized)
	ErrMalformedCredential = fmt.Errorf("%w: malformed credential", ErrUnauthorized)
	ErrInvalidToken        = fmt.Errorf("%w: invalid token", ErrUnauthorized)
)

// TableClaims are the claims carried by tokens issued to a restaurant table.
type TableClaims struct {
	RestaurantName string  `json:"restaurantName"`
	TableNumber    *uint16 `json:"tableNumber"`
	TableCount     *uint16 `json:"tableCount"`
	jwt.RegisteredClaims
}

// Validate is invoked by the jwt parser after the registered claims are checked.
func (c *TableClaims) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return errors.New("missing subject")
	}
	if c.TableNumber == nil {
		return errors.New("missing tableNumber")
	}
	if c.TableCount == nil {
		return errors.New("missing tableCount")
	}
	return nil
}

type TokenValidator interface {
	Validate(token string) (*TableClaims, error)
}

// JWTValidator verifies HS512 tokens signed with a shared secret.
type JWTValidator struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

func NewJWTValidator(secret string, leeway time.Duration) *JWTValidator {
	if leeway < 0 {
		leeway = 0
	}
	return &JWTValidator{secret: []byte(strings.TrimSpace(secret)), leeway: leeway, now: time.Now}
}

func (v *JWTValidator) Validate(token string) (*TableClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredential
	}
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret not configured", ErrInvalidToken)
	}

	claims := &TableClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
