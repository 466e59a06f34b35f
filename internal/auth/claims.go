package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrTokenType    = errors.New("auth: token_type mismatch")
	ErrMissingClaim = errors.New("auth: required claim missing")
)

// Claims are the only supported JWT claims shape for this service.
// Multi-tenant invariant: WorkspaceID must be present for all activity.
// Extension is the counsellor's dialer number; it is only carried on access tokens.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string    `json:"user_id"`
	WorkspaceID string    `json:"workspace_id"`
	Role        string    `json:"role"`
	Extension   string    `json:"extension,omitempty"`
	TokenType   TokenType `json:"token_type"`
}

// check enforces the custom claims the registered-claims validator knows nothing about.
func (c Claims) check(expected TokenType) error {
	if c.TokenType != expected {
		return fmt.Errorf("%w: got %q, want %q", ErrTokenType, c.TokenType, expected)
	}
	switch {
	case c.UserID == "":
		return fmt.Errorf("%w: user_id", ErrMissingClaim)
	case c.WorkspaceID == "":
		return fmt.Errorf("%w: workspace_id", ErrMissingClaim)
	case expected == TokenTypeAccess && c.Role == "":
		return fmt.Errorf("%w: role", ErrMissingClaim)
	}
	return nil
}

// Identity is the subject a token pair is issued for.
type Identity struct {
	UserID      string
	WorkspaceID string
	Role        string
	Extension   string
}
