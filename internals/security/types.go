package security

import (
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ScopeRead      = "status:read"
	ScopeRunChecks = "checks:run"
)

// RequestClaims identifies an API client. Scope is a space separated list.
type RequestClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

func (c *RequestClaims) HasScope(scope string) bool {
	return slices.Contains(strings.Fields(c.Scope), scope)
}
