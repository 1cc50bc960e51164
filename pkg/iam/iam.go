package iam

import (
	"net/http"

	"github.com/Abraxas-365/lingua/pkg/errx"
)

// ============================================================================
// Public messages
// ============================================================================

// Messages holds the error codes that leave the service. They are lowercase
// and unprefixed because clients switch on them verbatim.
var Messages = errx.NewRegistry("")

var (
	CodeBadCredentials                     = Messages.Register("bad_credentials", errx.TypeAuthentication, http.StatusUnauthorized, "Bad credentials")
	CodeOperationUnavailableForAccountType = Messages.Register("operation_unavailable_for_account_type", errx.TypeBusiness, http.StatusBadRequest, "Operation is not available for this account type")
	CodeThirdPartySwitchInitiated          = Messages.Register("third_party_switch_initiated", errx.TypeAuthentication, http.StatusUnauthorized, "Switching the authentication provider must be confirmed")
	CodeSsoLoginForced                     = Messages.Register("sso_login_forced_for_this_account", errx.TypeAuthentication, http.StatusUnauthorized, "This account must sign in with SSO")
	CodeInvitationInvalidOrExpired         = Messages.Register("invitation_code_does_not_exist_or_expired", errx.TypeValidation, http.StatusBadRequest, "Invitation code does not exist or has expired")
	CodeRegistrationsNotAllowed            = Messages.Register("registrations_not_allowed", errx.TypeBusiness, http.StatusBadRequest, "Registrations are not allowed")
	CodeUsernameAlreadyExists              = Messages.Register("username_already_exists", errx.TypeConflict, http.StatusBadRequest, "Username already exists")
	CodeExpiredSuperToken                  = Messages.Register("expired_super_jwt_token", errx.TypeAuthorization, http.StatusForbidden, "This operation requires a super token")
	CodeInvalidOTP                         = Messages.Register("invalid_otp_code", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid OTP code")
	CodeSsoDomainNotFound                  = Messages.Register("sso_domain_not_found", errx.TypeNotFound, http.StatusNotFound, "SSO is not configured for this domain")
	CodeInvalidAuthenticationToken         = Messages.Register("invalid_authentication_token", errx.TypeAuthentication, http.StatusUnauthorized, "Invalid authentication token")
	CodeUnauthenticated                    = Messages.Register("unauthenticated", errx.TypeAuthentication, http.StatusUnauthorized, "Authentication required")
	CodeAccessDenied                       = Messages.Register("access_denied", errx.TypeAuthorization, http.StatusForbidden, "Access denied")
	CodeAuthProviderChangeNotFound         = Messages.Register("auth_provider_change_not_found", errx.TypeNotFound, http.StatusNotFound, "No pending authentication provider change")
	CodeOAuthProviderNotEnabled            = Messages.Register("oauth_provider_not_enabled", errx.TypeValidation, http.StatusBadRequest, "OAuth provider is not enabled")
	CodeThirdPartyAuthFailed               = Messages.Register("third_party_auth_failed", errx.TypeExternal, http.StatusUnauthorized, "Third party authentication failed")
	CodeThirdPartyEmailMissing             = Messages.Register("third_party_auth_no_email", errx.TypeValidation, http.StatusUnauthorized, "Identity provider did not return an email")
)

func ErrBadCredentials() *errx.Error { return Messages.New(CodeBadCredentials) }
func ErrOperationUnavailableForAccountType() *errx.Error {
	return Messages.New(CodeOperationUnavailableForAccountType)
}
func ErrThirdPartySwitchInitiated() *errx.Error { return Messages.New(CodeThirdPartySwitchInitiated) }

// ErrSsoLoginForced carries the domain the client must be redirected to.
func ErrSsoLoginForced(domain string) *errx.Error {
	return Messages.New(CodeSsoLoginForced).WithParams(domain)
}

func ErrInvitationInvalidOrExpired() *errx.Error { return Messages.New(CodeInvitationInvalidOrExpired) }
func ErrRegistrationsNotAllowed() *errx.Error    { return Messages.New(CodeRegistrationsNotAllowed) }
func ErrUsernameAlreadyExists() *errx.Error      { return Messages.New(CodeUsernameAlreadyExists) }
func ErrExpiredSuperToken() *errx.Error          { return Messages.New(CodeExpiredSuperToken) }
func ErrInvalidOTP() *errx.Error                 { return Messages.New(CodeInvalidOTP) }
func ErrSsoDomainNotFound() *errx.Error          { return Messages.New(CodeSsoDomainNotFound) }
func ErrInvalidAuthenticationToken() *errx.Error {
	return Messages.New(CodeInvalidAuthenticationToken)
}
func ErrUnauthenticated() *errx.Error { return Messages.New(CodeUnauthenticated) }
func ErrAccessDenied() *errx.Error    { return Messages.New(CodeAccessDenied) }
func ErrAuthProviderChangeNotFound() *errx.Error {
	return Messages.New(CodeAuthProviderChangeNotFound)
}
func ErrOAuthProviderNotEnabled() *errx.Error { return Messages.New(CodeOAuthProviderNotEnabled) }
func ErrThirdPartyAuthFailed() *errx.Error    { return Messages.New(CodeThirdPartyAuthFailed) }
func ErrThirdPartyEmailMissing() *errx.Error  { return Messages.New(CodeThirdPartyEmailMissing) }

// ============================================================================
// Third party providers
// ============================================================================

// AuthType names the identity provider an account authenticates with.
type AuthType string

const (
	AuthTypeNone   AuthType = ""
	AuthTypeGitHub AuthType = "github"
	AuthTypeGoogle AuthType = "google"
	AuthTypeOAuth2 AuthType = "oauth2"
	AuthTypeSSO    AuthType = "sso"
)

// ParseAuthType accepts the serviceType path segment of the OAuth callback.
func ParseAuthType(s string) (AuthType, bool) {
	switch t := AuthType(s); t {
	case AuthTypeGitHub, AuthTypeGoogle, AuthTypeOAuth2, AuthTypeSSO:
		return t, true
	default:
		return AuthTypeNone, false
	}
}

// DisplayName returns the human-readable provider name
func (t AuthType) DisplayName() string {
	switch t {
	case AuthTypeGitHub:
		return "GitHub"
	case AuthTypeGoogle:
		return "Google"
	case AuthTypeOAuth2:
		return "OAuth2"
	case AuthTypeSSO:
		return "SSO"
	default:
		return "Password"
	}
}
