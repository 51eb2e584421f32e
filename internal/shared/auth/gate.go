package auth

import (
	"errors"
	"log/slog"
	"strings"
)

// ErrMissingGroup is returned when the join request does not name a group.
var ErrMissingGroup = errors.New("invalid query params: missing group_id")

// AuthData is the verified identity of one authenticated connection.
type AuthData struct {
	Claims  *TableClaims
	GroupID string
}

func (a *AuthData) Subject() string { return a.Claims.Subject }

func (a *AuthData) RestaurantName() string { return a.Claims.RestaurantName }

func (a *AuthData) TableNumber() uint16 { return *a.Claims.TableNumber }

func (a *AuthData) TableCount() uint16 { return *a.Claims.TableCount }

// Gate turns a join request's group id and Authorization header into AuthData.
type Gate struct {
	validator TokenValidator
	insecure  bool
}

// NewGate builds a gate around validator. insecure marks a validator running on
// the development fallback secret; every authentication is then logged loudly.
func NewGate(validator TokenValidator, insecure bool) *Gate {
	if insecure {
		slog.Warn("auth gate using development JWT secret; tokens are NOT secure, set JWT_SECRET")
	}
	return &Gate{validator: validator, insecure: insecure}
}

// Authenticate validates the join parameters in order: group id, credential
// presence, bearer scheme, then token signature and expiry.
func (g *Gate) Authenticate(authorization, groupID string) (*AuthData, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, ErrMissingGroup
	}
	token, err := ParseBearer(authorization)
	if err != nil {
		return nil, err
	}
	if g.insecure {
		slog.Warn("verifying token with development JWT secret", slog.String("groupId", groupID))
	}
	claims, err := g.validator.Validate(token)
	if err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			return nil, errors.Join(ErrInvalidToken, err)
		}
		return nil, err
	}
	return &AuthData{Claims: claims, GroupID: groupID}, nil
}
