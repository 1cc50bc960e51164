package auth

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// ============================================================================
// Token Types
// ============================================================================

// TokenClaims represents validated JWT claims
type TokenClaims struct {
	UserID         kernel.UserID   `json:"user_id"`
	TenantID       kernel.TenantID `json:"tenant_id"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Scopes         []string        `json:"scopes"`
	SuperUntil     *time.Time      `json:"super_until,omitempty"`
	ImpersonatedBy *kernel.UserID  `json:"impersonated_by,omitempty"`
	IssuedAt       time.Time       `json:"iat"`
	ExpiresAt      time.Time       `json:"exp"`
}

// AuthContext converts the claims into the request principal.
func (tc *TokenClaims) AuthContext() *kernel.AuthContext {
	return &kernel.AuthContext{
		UserID:         tc.UserID,
		TenantID:       tc.TenantID,
		Email:          tc.Email,
		Name:           tc.Name,
		Scopes:         tc.Scopes,
		SuperUntil:     tc.SuperUntil,
		ImpersonatedBy: tc.ImpersonatedBy,
	}
}

// TokenResponse is returned by every endpoint that signs a user in.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

func NewTokenResponse(token string) *TokenResponse {
	return &TokenResponse{AccessToken: token, TokenType: "Bearer"}
}

// ExternalIdentity is the user an identity provider vouched for.
type ExternalIdentity struct {
	ID    string
	Email string
	Name  string
}

// RequestMeta identifies the caller for audit logs.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")
	CodeOAuthExchangeFailed   = ErrRegistry.Register("OAUTH_EXCHANGE_FAILED", errx.TypeExternal, http.StatusBadGateway, "OAuth code exchange failed")
	CodeInvalidRequest        = ErrRegistry.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Invalid request")
)

func ErrTokenGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenGenerationFailed)
}

func ErrOAuthExchangeFailed() *errx.Error {
	return ErrRegistry.New(CodeOAuthExchangeFailed)
}

func ErrInvalidRequest(reason string) *errx.Error {
	return ErrRegistry.New(CodeInvalidRequest).WithDetail("reason", reason)
}
