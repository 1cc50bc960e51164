package authsrv

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/credentials"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/Abraxas-365/lingua/pkg/iam/otp"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/Abraxas-365/lingua/pkg/logx"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 50
)

// Login methods, used as metric and audit labels.
const (
	MethodPassword = "password"
	MethodSignUp   = "sign_up"
	MethodOTP      = "otp"
)

// Token kinds for the tokens-issued counter.
const (
	tokenRegular       = "regular"
	tokenSuper         = "super"
	tokenImpersonation = "impersonation"
)

// CredentialChecker verifies passwords.
type CredentialChecker interface {
	CheckUserCredentials(ctx context.Context, username, password string) (*account.Account, error)
	CheckAccountPassword(ctx context.Context, acc *account.Account, password string) error
}

// Invitations redeems invitation codes.
type Invitations interface {
	ValidateCode(ctx context.Context, code string) (*invitation.Invitation, error)
	AcceptInvitation(ctx context.Context, code string, userID kernel.UserID) (*invitation.Invitation, error)
}

// OTPs issues and verifies step-up codes.
type OTPs interface {
	GenerateOTP(ctx context.Context, contact string, purpose otp.Purpose) (*otp.OTP, error)
	VerifyOTP(ctx context.Context, contact string, purpose otp.Purpose, code string) error
}

// Deps are the collaborators of the AuthService.
type Deps struct {
	Accounts        account.Repository
	Tenants         tenant.Repository
	Policy          credentials.SsoPolicy
	Checker         CredentialChecker
	Encoder         credentials.PasswordEncoder
	ProviderChanges *providerchange.Service
	Invitations     Invitations
	OTPs            OTPs
	Tokens          auth.TokenService
	OAuthProviders  []auth.OAuthProvider
	Sso             auth.SsoProvider
	Audit           auth.AuditService
	Config          config.AuthConfig
}

// AuthService signs users in and issues their tokens.
type AuthService struct {
	accounts    account.Repository
	tenants     tenant.Repository
	policy      credentials.SsoPolicy
	checker     CredentialChecker
	encoder     credentials.PasswordEncoder
	changes     *providerchange.Service
	invitations Invitations
	otps        OTPs
	tokens      auth.TokenService
	oauth       map[iam.AuthType]auth.OAuthProvider
	sso         auth.SsoProvider
	audit       auth.AuditService
	cfg         config.AuthConfig
	now         func() time.Time
}

func NewAuthService(deps Deps) *AuthService {
	oauth := make(map[iam.AuthType]auth.OAuthProvider, len(deps.OAuthProviders))
	for _, p := range deps.OAuthProviders {
		oauth[p.Type()] = p
	}
	cfg := deps.Config
	if cfg.JWT.SuperTokenTTL <= 0 {
		cfg.JWT.SuperTokenTTL = time.Hour
	}
	cfg.FrontendURL = strings.TrimSuffix(cfg.FrontendURL, "/")
	return &AuthService{
		accounts:    deps.Accounts,
		tenants:     deps.Tenants,
		policy:      deps.Policy,
		checker:     deps.Checker,
		encoder:     deps.Encoder,
		changes:     deps.ProviderChanges,
		invitations: deps.Invitations,
		otps:        deps.OTPs,
		tokens:      deps.Tokens,
		oauth:       oauth,
		sso:         deps.Sso,
		audit:       deps.Audit,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ============================================================================
// Password login and sign-up
// ============================================================================

// Login exchanges a username and password for a token.
func (s *AuthService) Login(ctx context.Context, username, password string, meta auth.RequestMeta) (*auth.TokenResponse, error) {
	acc, err := s.checker.CheckUserCredentials(ctx, username, password)
	s.recordLogin(ctx, MethodPassword, acc, err, meta)
	if err != nil {
		return nil, err
	}
	return s.issue(acc, tokenRegular)
}

type SignUpRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	InvitationCode string `json:"invitationCode"`
}

// SignUp creates a local account. Without open registrations a valid
// invitation code is required.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest, meta auth.RequestMeta) (*auth.TokenResponse, error) {
	email := account.NormalizeUsername(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, auth.ErrInvalidRequest("invalid email")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.policy.CheckSsoNotRequired(ctx, email); err != nil {
		return nil, err
	}
	inv, err := s.admission(ctx, req.InvitationCode, nil)
	if err != nil {
		return nil, err
	}

	exists, err := s.accounts.ExistsByUsername(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, iam.ErrUsernameAlreadyExists()
	}

	hash, err := s.encoder.Encode(req.Password)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	acc := account.NewLocal(email, name, hash)
	if err := s.create(ctx, acc, inv, MethodSignUp, meta); err != nil {
		return nil, err
	}
	return s.issue(acc, tokenRegular)
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return auth.ErrInvalidRequest("password must be between 8 and 50 characters")
	}
	return nil
}

// admission decides whether a new account may be created. Open
// registrations, a valid invitation or an SSO tenant each suffice.
func (s *AuthService) admission(ctx context.Context, code string, t *tenant.Tenant) (*invitation.Invitation, error) {
	if code == "" {
		if !s.cfg.RegistrationsAllowed && t == nil {
			return nil, iam.ErrRegistrationsNotAllowed()
		}
		return nil, nil
	}
	return s.invitations.ValidateCode(ctx, code)
}

func (s *AuthService) create(ctx context.Context, acc *account.Account, inv *invitation.Invitation, method string, meta auth.RequestMeta) error {
	if err := s.accounts.Save(ctx, *acc); err != nil {
		if errx.HasCode(err, account.CodeAccountExists) {
			return iam.ErrUsernameAlreadyExists()
		}
		return errx.Wrap(err, "failed to create account", errx.TypeInternal)
	}

	if inv != nil {
		accepted, err := s.invitations.AcceptInvitation(ctx, inv.Code, acc.ID)
		if err != nil {
			logx.WithContext(ctx).WithError(err).WithField("user_id", acc.ID).Warn("Could not accept invitation of new account")
		} else if accepted.TenantID != nil && acc.TenantID == nil {
			acc.TenantID = accepted.TenantID
		}
	}

	s.audit.LogAccountCreated(ctx, acc.ID, method, meta)
	return nil
}

// ChangePassword sets a new local password. Managed accounts have none.
func (s *AuthService) ChangePassword(ctx context.Context, ac *kernel.AuthContext, password string) error {
	acc, err := s.accounts.FindByID(ctx, ac.UserID)
	if err != nil {
		return err
	}
	if acc.IsManaged() {
		return iam.ErrOperationUnavailableForAccountType()
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := s.encoder.Encode(password)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash
	acc.UpdatedAt = s.now()
	return s.accounts.Save(ctx, *acc)
}

// ============================================================================
// Step-up
// ============================================================================

type SuperTokenRequest struct {
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// GenerateSuperToken re-authenticates the caller and returns a token
// elevated for the configured super-token TTL. Accounts with a password
// confirm it; others confirm an emailed one-time code. During
// impersonation the administrator re-authenticates.
func (s *AuthService) GenerateSuperToken(ctx context.Context, ac *kernel.AuthContext, req SuperTokenRequest) (*auth.TokenResponse, error) {
	acc, err := s.accounts.FindByID(ctx, ac.UserID)
	if err != nil {
		return nil, err
	}

	verifier := acc
	if ac.ImpersonatedBy != nil {
		if verifier, err = s.accounts.FindByID(ctx, *ac.ImpersonatedBy); err != nil {
			return nil, err
		}
	}

	method := MethodPassword
	if verifier.HasPassword() {
		if req.Password == "" {
			return nil, iam.ErrBadCredentials()
		}
		err = s.checker.CheckAccountPassword(ctx, verifier, req.Password)
	} else {
		method = MethodOTP
		if req.OTP == "" {
			return nil, iam.ErrInvalidOTP()
		}
		err = s.otps.VerifyOTP(ctx, verifier.Username, otp.PurposeSuperToken, req.OTP)
	}
	if err != nil {
		return nil, err
	}

	opts := []auth.TokenOption{auth.WithSuperUntil(s.now().Add(s.cfg.JWT.SuperTokenTTL))}
	if ac.ImpersonatedBy != nil {
		opts = append(opts, auth.WithImpersonator(*ac.ImpersonatedBy))
	}
	resp, err := s.issue(acc, tokenSuper, opts...)
	if err != nil {
		return nil, err
	}
	s.audit.LogSuperTokenIssued(ctx, acc.ID, method)
	return resp, nil
}

// SendSuperTokenOTP emails a step-up code to accounts without a password.
func (s *AuthService) SendSuperTokenOTP(ctx context.Context, ac *kernel.AuthContext) error {
	verifierID := ac.UserID
	if ac.ImpersonatedBy != nil {
		verifierID = *ac.ImpersonatedBy
	}
	acc, err := s.accounts.FindByID(ctx, verifierID)
	if err != nil {
		return err
	}
	if acc.HasPassword() {
		return iam.ErrOperationUnavailableForAccountType()
	}
	_, err = s.otps.GenerateOTP(ctx, acc.Username, otp.PurposeSuperToken)
	return err
}

// ============================================================================
// Impersonation
// ============================================================================

// Impersonate issues a token for userID on behalf of an administrator.
func (s *AuthService) Impersonate(ctx context.Context, admin *kernel.AuthContext, userID kernel.UserID) (*auth.TokenResponse, error) {
	if !admin.IsAdmin() {
		return nil, iam.ErrAccessDenied()
	}
	target, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive() {
		return nil, account.ErrAccountNotFound().WithDetail("user_id", userID.String())
	}

	resp, err := s.issue(target, tokenImpersonation, auth.WithImpersonator(admin.UserID))
	if err != nil {
		return nil, err
	}
	s.audit.LogImpersonation(ctx, admin.UserID, target.ID)
	return resp, nil
}

// ============================================================================
// Provider change
// ============================================================================

// GetProviderChange returns the caller's pending provider change.
func (s *AuthService) GetProviderChange(ctx context.Context, ac *kernel.AuthContext) (*providerchange.View, error) {
	req, err := s.changes.Get(ctx, ac.UserID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, iam.ErrAuthProviderChangeNotFound()
	}
	view := req.View()
	return &view, nil
}

// AcceptProviderChange rebinds the account and returns a fresh token that
// reflects the new account type and tenant.
func (s *AuthService) AcceptProviderChange(ctx context.Context, ac *kernel.AuthContext) (*auth.TokenResponse, error) {
	acc, err := s.changes.Accept(ctx, ac.UserID)
	if err != nil {
		return nil, err
	}
	s.audit.LogProviderChange(ctx, acc.ID, acc.ThirdPartyAuthType, "accepted")
	return s.issue(acc, tokenRegular)
}

func (s *AuthService) RejectProviderChange(ctx context.Context, ac *kernel.AuthContext) error {
	if err := s.changes.Reject(ctx, ac.UserID); err != nil {
		return err
	}
	s.audit.LogProviderChange(ctx, ac.UserID, "", "rejected")
	return nil
}

// ============================================================================
// Account info
// ============================================================================

func (s *AuthService) CurrentUser(ctx context.Context, ac *kernel.AuthContext) (*account.Account, error) {
	return s.accounts.FindByID(ctx, ac.UserID)
}

// PublicConfiguration is what an anonymous client needs to render sign-in.
type PublicConfiguration struct {
	AuthenticationRequired bool           `json:"authentication"`
	RegistrationsAllowed   bool           `json:"allowRegistrations"`
	NativeEnabled          bool           `json:"nativeEnabled"`
	OAuthProviders         []iam.AuthType `json:"oauthProviders"`
}

func (s *AuthService) PublicConfiguration() PublicConfiguration {
	providers := make([]iam.AuthType, 0, len(s.oauth))
	for _, t := range []iam.AuthType{iam.AuthTypeGitHub, iam.AuthTypeGoogle, iam.AuthTypeOAuth2} {
		if _, ok := s.oauth[t]; ok {
			providers = append(providers, t)
		}
	}
	return PublicConfiguration{
		AuthenticationRequired: true,
		RegistrationsAllowed:   s.cfg.RegistrationsAllowed,
		NativeEnabled:          true,
		OAuthProviders:         providers,
	}
}

// ============================================================================
// Helpers
// ============================================================================

func (s *AuthService) issue(acc *account.Account, kind string, opts ...auth.TokenOption) (*auth.TokenResponse, error) {
	token, err := s.tokens.GenerateAccessToken(acc, opts...)
	if err != nil {
		return nil, auth.ErrTokenGenerationFailed().WithCause(err)
	}
	auth.TokensIssued.WithLabelValues(kind).Inc()
	return auth.NewTokenResponse(token), nil
}

func (s *AuthService) recordLogin(ctx context.Context, method string, acc *account.Account, err error, meta auth.RequestMeta) {
	outcome := "success"
	if err != nil {
		outcome = errx.CodeOf(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	auth.LoginAttempts.WithLabelValues(method, outcome).Inc()

	var userID kernel.UserID
	if acc != nil {
		userID = acc.ID
	}
	s.audit.LogLoginAttempt(ctx, userID, method, err == nil, meta)
}
