package websocket

import (
	"context"
	"errors"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrWorkspaceNotFound is returned when workspace lookup fails
var ErrWorkspaceNotFound = errors.New("workspace not found")

// WorkspaceLookup maps an Auth0 identity to its workspace
type WorkspaceLookup interface {
	ResolveWorkspaceID(auth0ID string) (int32, error)
}

// Auth0JWTValidator authenticates WebSocket upgrades. Browsers cannot set
// headers on the upgrade request, so the token arrives as a query parameter.
type Auth0JWTValidator struct {
	tokens          middleware.TokenValidator
	workspaceLookup WorkspaceLookup
}

// NewAuth0JWTValidator creates a validator against the Auth0 tenant
func NewAuth0JWTValidator(domain, audience string, workspaceLookup WorkspaceLookup) (*Auth0JWTValidator, error) {
	tokens, err := middleware.NewAuth0Validator(domain, audience)
	if err != nil {
		return nil, err
	}
	return NewJWTValidator(tokens, workspaceLookup), nil
}

// NewJWTValidator creates a validator around an existing token validator
func NewJWTValidator(tokens middleware.TokenValidator, workspaceLookup WorkspaceLookup) *Auth0JWTValidator {
	return &Auth0JWTValidator{
		tokens:          tokens,
		workspaceLookup: workspaceLookup,
	}
}

// ValidateToken validates a JWT and returns the workspace it owns
func (v *Auth0JWTValidator) ValidateToken(ctx context.Context, token string) (int32, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	claims, err := v.tokens.ValidateToken(ctx, token)
	if err != nil {
		return 0, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok || validatedClaims.RegisteredClaims.Subject == "" {
		return 0, ErrInvalidToken
	}

	workspaceID, err := v.workspaceLookup.ResolveWorkspaceID(validatedClaims.RegisteredClaims.Subject)
	if err != nil {
		return 0, ErrWorkspaceNotFound
	}
	return workspaceID, nil
}
