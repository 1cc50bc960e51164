package auth

import (
	"context"

	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// TokenService defines the contract for JWT token management
type TokenService interface {
	GenerateAccessToken(acc *account.Account, opts ...TokenOption) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// AccountLookup loads the account behind a token.
type AccountLookup interface {
	FindByID(ctx context.Context, id kernel.UserID) (*account.Account, error)
}

// OAuthProvider exchanges an authorization code of a globally configured
// provider (GitHub, Google, generic OAuth2) for the user's identity.
type OAuthProvider interface {
	Type() iam.AuthType
	Exchange(ctx context.Context, code, redirectURI string) (*ExternalIdentity, error)
}

// SsoProvider does the same against a tenant's own identity provider.
type SsoProvider interface {
	AuthorizationURL(t *tenant.Tenant, state, redirectURI string) string
	Exchange(ctx context.Context, t *tenant.Tenant, code, redirectURI string) (*ExternalIdentity, error)
}

// AuditService defines the contract for authentication audit logging
type AuditService interface {
	LogLoginAttempt(ctx context.Context, userID kernel.UserID, method string, success bool, meta RequestMeta)
	LogAccountCreated(ctx context.Context, userID kernel.UserID, method string, meta RequestMeta)
	LogProviderChange(ctx context.Context, userID kernel.UserID, authType iam.AuthType, action string)
	LogSuperTokenIssued(ctx context.Context, userID kernel.UserID, method string)
	LogImpersonation(ctx context.Context, adminID, userID kernel.UserID)
}
