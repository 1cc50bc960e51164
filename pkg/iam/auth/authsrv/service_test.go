package authsrv

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/credentials"
	"github.com/Abraxas-365/lingua/pkg/iam/iamtest"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation/invitationsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/jobx"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeOAuth struct {
	authType   iam.AuthType
	identities map[string]*auth.ExternalIdentity
}

func (p *fakeOAuth) Type() iam.AuthType { return p.authType }

func (p *fakeOAuth) Exchange(_ context.Context, code, _ string) (*auth.ExternalIdentity, error) {
	id, ok := p.identities[code]
	if !ok {
		return nil, auth.ErrOAuthExchangeFailed()
	}
	cp := *id
	return &cp, nil
}

type fakeSso struct {
	identities   map[string]*auth.ExternalIdentity
	lastRedirect string
}

func (p *fakeSso) AuthorizationURL(t *tenant.Tenant, state, redirectURI string) string {
	q := url.Values{"state": {state}, "redirect_uri": {redirectURI}, "client_id": {t.ClientID}}
	return t.AuthorizationURI + "?" + q.Encode()
}

func (p *fakeSso) Exchange(_ context.Context, _ *tenant.Tenant, code, redirectURI string) (*auth.ExternalIdentity, error) {
	p.lastRedirect = redirectURI
	id, ok := p.identities[code]
	if !ok {
		return nil, auth.ErrOAuthExchangeFailed()
	}
	cp := *id
	return &cp, nil
}

type auditRecorder struct {
	mu     sync.Mutex
	events []string
}

func (a *auditRecorder) add(e string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *auditRecorder) LogLoginAttempt(_ context.Context, _ kernel.UserID, method string, success bool, _ auth.RequestMeta) {
	if success {
		a.add("login:" + method)
	} else {
		a.add("login_failed:" + method)
	}
}

func (a *auditRecorder) LogAccountCreated(_ context.Context, _ kernel.UserID, method string, _ auth.RequestMeta) {
	a.add("created:" + method)
}

func (a *auditRecorder) LogProviderChange(_ context.Context, _ kernel.UserID, _ iam.AuthType, action string) {
	a.add("provider_change:" + action)
}

func (a *auditRecorder) LogSuperTokenIssued(_ context.Context, _ kernel.UserID, method string) {
	a.add("super:" + method)
}

func (a *auditRecorder) LogImpersonation(_ context.Context, _, _ kernel.UserID) {
	a.add("impersonation")
}

type noJobs struct{}

func (noJobs) Enqueue(context.Context, jobx.Job) (string, error) { return "job", nil }
func (noJobs) EnqueueDelayed(context.Context, jobx.Job, time.Duration) (string, error) {
	return "job", nil
}

type noMail struct{}

func (noMail) SendInvitation(context.Context, *invitation.Invitation, string) error { return nil }

// ============================================================================
// Fixture
// ============================================================================

type fixture struct {
	svc         *AuthService
	accounts    *iamtest.Accounts
	changes     *providerchange.Service
	invitations *invitationsrv.InvitationService
	outbox      *iamtest.OTPOutbox
	jwt         *auth.JWTService
	github      *fakeOAuth
	sso         *fakeSso
	audit       *auditRecorder
}

var (
	acme = &tenant.Tenant{
		ID:               kernel.NewTenantID("acme"),
		Name:             "Acme",
		Domain:           "acme.com",
		ClientID:         "acme-client",
		AuthorizationURI: "https://idp.acme.com/authorize",
		Enabled:          true,
		Force:            true,
	}
	soft = &tenant.Tenant{
		ID:               kernel.NewTenantID("soft"),
		Domain:           "soft.io",
		AuthorizationURI: "https://idp.soft.io/authorize",
		Enabled:          true,
	}
)

func newFixture(t *testing.T, registrations bool, accs ...*account.Account) *fixture {
	t.Helper()
	f := &fixture{
		accounts: iamtest.NewAccounts(accs...),
		outbox:   iamtest.NewOTPOutbox(),
		jwt:      auth.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour}),
		github: &fakeOAuth{authType: iam.AuthTypeGitHub, identities: map[string]*auth.ExternalIdentity{
			"gh-ana":  {ID: "gh-1", Email: "ana@example.com", Name: "Ana"},
			"gh-new":  {ID: "gh-2", Email: "new@example.com", Name: "New"},
			"gh-acme": {ID: "gh-3", Email: "bob@acme.com", Name: "Bob"},
		}},
		sso: &fakeSso{identities: map[string]*auth.ExternalIdentity{
			"acme-bob":   {ID: "sso-1", Email: "bob@acme.com", Name: "Bob"},
			"acme-ana":   {ID: "sso-2", Email: "ana@acme.com", Name: "Ana"},
			"acme-other": {ID: "sso-3", Email: "eve@evil.com", Name: "Eve"},
			"soft-zoe":   {ID: "sso-4", Email: "zoe@soft.io", Name: "Zoe"},
		}},
		audit: &auditRecorder{},
	}

	tenants := iamtest.NewTenants(acme, soft)
	f.changes = providerchange.NewService(iamtest.NewProviderChanges(), f.accounts, time.Hour)
	policy := tenant.NewPolicy(tenants, f.changes)
	checker, err := credentials.NewChecker(f.accounts, policy, iamtest.PlainPasswords{})
	require.NoError(t, err)
	f.invitations = invitationsrv.NewInvitationService(iamtest.NewInvitations(), f.accounts, noJobs{}, noMail{}, config.InvitationConfig{TTL: time.Hour})
	otps := otpsrv.NewOTPService(iamtest.NewOTPs(), f.outbox, config.OTPConfig{TTL: 10 * time.Minute, Length: 6, MaxAttempts: 5})

	f.svc = NewAuthService(Deps{
		Accounts:        f.accounts,
		Tenants:         tenants,
		Policy:          policy,
		Checker:         checker,
		Encoder:         iamtest.PlainPasswords{},
		ProviderChanges: f.changes,
		Invitations:     f.invitations,
		OTPs:            otps,
		Tokens:          f.jwt,
		OAuthProviders:  []auth.OAuthProvider{f.github},
		Sso:             f.sso,
		Audit:           f.audit,
		Config: config.AuthConfig{
			JWT:                  config.JWTConfig{SuperTokenTTL: 30 * time.Minute},
			RegistrationsAllowed: registrations,
			FrontendURL:          "https://app.lingua.dev/",
		},
	})
	return f
}

func (f *fixture) claims(t *testing.T, resp *auth.TokenResponse) *auth.TokenClaims {
	t.Helper()
	require.NotNil(t, resp)
	assert.Equal(t, "Bearer", resp.TokenType)
	claims, err := f.jwt.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	return claims
}

func (f *fixture) invite(t *testing.T, email string) *invitation.Invitation {
	t.Helper()
	admin := &kernel.AuthContext{UserID: kernel.GenerateUserID(), TenantID: kernel.NewTenantID("team"), Scopes: []string{"*"}}
	inv, err := f.invitations.CreateInvitation(context.Background(), admin, email)
	require.NoError(t, err)
	return inv
}

func localAccount(username, password string) *account.Account {
	return account.NewLocal(username, "User", "plain:"+password)
}

// ============================================================================
// Password login
// ============================================================================

func TestLogin(t *testing.T) {
	ana := localAccount("ana@example.com", "secret123")
	f := newFixture(t, false, ana)
	ctx := context.Background()

	resp, err := f.svc.Login(ctx, "ana@example.com", "secret123", auth.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, f.claims(t, resp).UserID)

	before := testutil.ToFloat64(auth.LoginAttempts.WithLabelValues(MethodPassword, "bad_credentials"))
	_, wrong := f.svc.Login(ctx, "ana@example.com", "nope", auth.RequestMeta{})
	_, unknown := f.svc.Login(ctx, "ghost@example.com", "nope", auth.RequestMeta{})
	assert.True(t, errx.HasCode(wrong, iam.CodeBadCredentials))
	assert.True(t, errx.HasCode(unknown, iam.CodeBadCredentials))
	assert.Equal(t, before+2, testutil.ToFloat64(auth.LoginAttempts.WithLabelValues(MethodPassword, "bad_credentials")))
	assert.Contains(t, f.audit.events, "login_failed:password")
}

// ============================================================================
// Sign-up
// ============================================================================

func TestSignUp(t *testing.T) {
	existing := localAccount("taken@example.com", "secret123")

	t.Run("open registrations", func(t *testing.T) {
		f := newFixture(t, true, existing)
		resp, err := f.svc.SignUp(context.Background(), SignUpRequest{Email: "New@Example.com", Password: "secret123"}, auth.RequestMeta{})
		require.NoError(t, err)
		claims := f.claims(t, resp)
		assert.Equal(t, "new@example.com", claims.Email)
		assert.Equal(t, "new", claims.Name)

		acc := f.accounts.Get(claims.UserID)
		assert.Equal(t, account.TypeLocal, acc.AccountType)
		assert.Equal(t, "plain:secret123", acc.PasswordHash)
	})

	t.Run("closed registrations", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.svc.SignUp(context.Background(), SignUpRequest{Email: "new@example.com", Password: "secret123"}, auth.RequestMeta{})
		assert.True(t, errx.HasCode(err, iam.CodeRegistrationsNotAllowed))

		_, err = f.svc.SignUp(context.Background(), SignUpRequest{Email: "new@example.com", Password: "secret123", InvitationCode: "bogus"}, auth.RequestMeta{})
		assert.True(t, errx.HasCode(err, iam.CodeInvitationInvalidOrExpired))
	})

	t.Run("invitation", func(t *testing.T) {
		f := newFixture(t, false)
		inv := f.invite(t, "someone@example.com")
		resp, err := f.svc.SignUp(context.Background(), SignUpRequest{Name: "New", Email: "new@example.com", Password: "secret123", InvitationCode: inv.Code}, auth.RequestMeta{})
		require.NoError(t, err)

		acc := f.accounts.Get(f.claims(t, resp).UserID)
		require.NotNil(t, acc.TenantID)
		assert.Equal(t, kernel.NewTenantID("team"), *acc.TenantID)

		_, err = f.invitations.ValidateCode(context.Background(), inv.Code)
		assert.True(t, errx.HasCode(err, iam.CodeInvitationInvalidOrExpired))
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t, true, existing)
		ctx := context.Background()

		_, err := f.svc.SignUp(ctx, SignUpRequest{Email: "taken@example.com", Password: "secret123"}, auth.RequestMeta{})
		assert.True(t, errx.HasCode(err, iam.CodeUsernameAlreadyExists))

		_, err = f.svc.SignUp(ctx, SignUpRequest{Email: "bob@acme.com", Password: "secret123"}, auth.RequestMeta{})
		require.True(t, errx.HasCode(err, iam.CodeSsoLoginForced))

		_, err = f.svc.SignUp(ctx, SignUpRequest{Email: "new@example.com", Password: "short"}, auth.RequestMeta{})
		assert.True(t, errx.HasCode(err, auth.CodeInvalidRequest))

		_, err = f.svc.SignUp(ctx, SignUpRequest{Email: "no-at-sign", Password: "secret123"}, auth.RequestMeta{})
		assert.True(t, errx.HasCode(err, auth.CodeInvalidRequest))
	})
}

// ============================================================================
// OAuth and SSO
// ============================================================================

func TestOAuthNewUserNeedsAdmission(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeGitHub, Code: "gh-new"}, auth.RequestMeta{})
	assert.True(t, errx.HasCode(err, iam.CodeRegistrationsNotAllowed))
	assert.Equal(t, 0, f.accounts.Len())

	inv := f.invite(t, "new@example.com")
	resp, err := f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeGitHub, Code: "gh-new", InvitationCode: inv.Code}, auth.RequestMeta{})
	require.NoError(t, err)

	acc := f.accounts.Get(f.claims(t, resp).UserID)
	assert.Equal(t, account.TypeThirdParty, acc.AccountType)
	assert.Equal(t, iam.AuthTypeGitHub, acc.ThirdPartyAuthType)
	assert.Equal(t, "gh-2", acc.ThirdPartyAuthID)
	assert.False(t, acc.HasPassword())
	assert.Contains(t, f.audit.events, "created:github")
}

func TestOAuthKnownIdentitySignsIn(t *testing.T) {
	ana := account.NewThirdParty("ana@example.com", "Ana", account.TypeThirdParty, iam.AuthTypeGitHub, "gh-1", nil)
	f := newFixture(t, false, ana)

	resp, err := f.svc.AuthorizeOAuth(context.Background(), OAuthRequest{Type: iam.AuthTypeGitHub, Code: "gh-ana"}, auth.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, f.claims(t, resp).UserID)
	assert.Equal(t, 1, f.accounts.Len())
}

func TestOAuthProviderSwitchFlow(t *testing.T) {
	ana := localAccount("ana@example.com", "secret123")
	f := newFixture(t, false, ana)
	ctx := context.Background()

	_, err := f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeGitHub, Code: "gh-ana"}, auth.RequestMeta{})
	require.True(t, errx.HasCode(err, iam.CodeThirdPartySwitchInitiated))

	resp, err := f.svc.Login(ctx, "ana@example.com", "secret123", auth.RequestMeta{})
	require.NoError(t, err)
	ac := f.claims(t, resp).AuthContext()

	view, err := f.svc.GetProviderChange(ctx, ac)
	require.NoError(t, err)
	assert.Equal(t, iam.AuthTypeGitHub, view.AuthType)

	resp, err = f.svc.AcceptProviderChange(ctx, ac)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, f.claims(t, resp).UserID)

	acc := f.accounts.Get(ana.ID)
	assert.True(t, acc.UsesProvider(iam.AuthTypeGitHub, "gh-1"))
	assert.True(t, acc.HasPassword())

	_, err = f.svc.GetProviderChange(ctx, ac)
	assert.True(t, errx.HasCode(err, iam.CodeAuthProviderChangeNotFound))

	resp, err = f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeGitHub, Code: "gh-ana"}, auth.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, f.claims(t, resp).UserID)
}

func TestRejectProviderChange(t *testing.T) {
	ana := localAccount("ana@example.com", "secret123")
	f := newFixture(t, false, ana)
	ctx := context.Background()

	_, err := f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeGitHub, Code: "gh-ana"}, auth.RequestMeta{})
	require.True(t, errx.HasCode(err, iam.CodeThirdPartySwitchInitiated))

	ac := &kernel.AuthContext{UserID: ana.ID}
	require.NoError(t, f.svc.RejectProviderChange(ctx, ac))
	_, err = f.svc.AcceptProviderChange(ctx, ac)
	assert.True(t, errx.HasCode(err, iam.CodeAuthProviderChangeNotFound))
}

func TestOAuthRespectsForcedSso(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.AuthorizeOAuth(context.Background(), OAuthRequest{Type: iam.AuthTypeGitHub, Code: "gh-acme"}, auth.RequestMeta{})
	require.True(t, errx.HasCode(err, iam.CodeSsoLoginForced))
	var e *errx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []any{"acme.com"}, e.Params)
}

func TestOAuthProviderNotEnabled(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.AuthorizeOAuth(context.Background(), OAuthRequest{Type: iam.AuthTypeGoogle, Code: "x"}, auth.RequestMeta{})
	assert.True(t, errx.HasCode(err, iam.CodeOAuthProviderNotEnabled))

	_, err = f.svc.AuthorizeOAuth(context.Background(), OAuthRequest{Type: iam.AuthTypeGitHub}, auth.RequestMeta{})
	assert.True(t, errx.HasCode(err, auth.CodeInvalidRequest))
}

func TestSsoCreatesManagedAccount(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	resp, err := f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeSSO, Code: "acme-bob", Domain: "ACME.com"}, auth.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "https://app.lingua.dev/login/auth_callback/sso", f.sso.lastRedirect)

	claims := f.claims(t, resp)
	assert.Equal(t, kernel.NewTenantID("acme"), claims.TenantID)
	acc := f.accounts.Get(claims.UserID)
	assert.Equal(t, account.TypeManaged, acc.AccountType)

	_, err = f.svc.Login(ctx, "bob@acme.com", "anything", auth.RequestMeta{})
	assert.True(t, errx.HasCode(err, iam.CodeSsoLoginForced))
}

func TestSsoUnforcedTenantCreatesThirdPartyAccount(t *testing.T) {
	f := newFixture(t, false)

	resp, err := f.svc.AuthorizeOAuth(context.Background(), OAuthRequest{Type: iam.AuthTypeSSO, Code: "soft-zoe", Domain: "soft.io"}, auth.RequestMeta{})
	require.NoError(t, err)
	acc := f.accounts.Get(f.claims(t, resp).UserID)
	assert.Equal(t, account.TypeThirdParty, acc.AccountType)
	require.NotNil(t, acc.TenantID)
	assert.Equal(t, kernel.NewTenantID("soft"), *acc.TenantID)
}

func TestSsoSwitchMakesExistingAccountManaged(t *testing.T) {
	ana := localAccount("ana@acme.com", "secret123")
	f := newFixture(t, false, ana)
	ctx := context.Background()

	_, err := f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeSSO, Code: "acme-ana", Domain: "acme.com"}, auth.RequestMeta{})
	require.True(t, errx.HasCode(err, iam.CodeThirdPartySwitchInitiated))

	// the pending change lets the password through once more
	resp, err := f.svc.Login(ctx, "ana@acme.com", "secret123", auth.RequestMeta{})
	require.NoError(t, err)

	_, err = f.svc.AcceptProviderChange(ctx, f.claims(t, resp).AuthContext())
	require.NoError(t, err)
	acc := f.accounts.Get(ana.ID)
	assert.Equal(t, account.TypeManaged, acc.AccountType)
	assert.False(t, acc.HasPassword())

	_, err = f.svc.Login(ctx, "ana@acme.com", "secret123", auth.RequestMeta{})
	assert.True(t, errx.HasCode(err, iam.CodeSsoLoginForced))
}

func TestSsoRejections(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeSSO, Code: "acme-bob", Domain: "unknown.org"}, auth.RequestMeta{})
	assert.True(t, errx.HasCode(err, iam.CodeSsoDomainNotFound))

	_, err = f.svc.AuthorizeOAuth(ctx, OAuthRequest{Type: iam.AuthTypeSSO, Code: "acme-other", Domain: "acme.com"}, auth.RequestMeta{})
	assert.True(t, errx.HasCode(err, iam.CodeThirdPartyAuthFailed))
	assert.Equal(t, 0, f.accounts.Len())
}

func TestSsoAuthenticationURL(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	raw, err := f.svc.SsoAuthenticationURL(ctx, "acme.com", "state-1")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "idp.acme.com", u.Host)
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "https://app.lingua.dev/login/auth_callback/sso", u.Query().Get("redirect_uri"))

	_, err = f.svc.SsoAuthenticationURL(ctx, "unknown.org", "state-1")
	assert.True(t, errx.HasCode(err, iam.CodeSsoDomainNotFound))

	_, err = f.svc.SsoAuthenticationURL(ctx, "acme.com", "")
	assert.True(t, errx.HasCode(err, auth.CodeInvalidRequest))
}

// ============================================================================
// Super token
// ============================================================================

func TestGenerateSuperTokenWithPassword(t *testing.T) {
	ana := localAccount("ana@example.com", "secret123")
	f := newFixture(t, false, ana)
	ctx := context.Background()
	ac := &kernel.AuthContext{UserID: ana.ID}

	_, err := f.svc.GenerateSuperToken(ctx, ac, SuperTokenRequest{Password: "wrong"})
	assert.True(t, errx.HasCode(err, iam.CodeBadCredentials))
	_, err = f.svc.GenerateSuperToken(ctx, ac, SuperTokenRequest{})
	assert.True(t, errx.HasCode(err, iam.CodeBadCredentials))

	resp, err := f.svc.GenerateSuperToken(ctx, ac, SuperTokenRequest{Password: "secret123"})
	require.NoError(t, err)
	claims := f.claims(t, resp)
	require.NotNil(t, claims.SuperUntil)
	assert.True(t, claims.AuthContext().IsSuper(time.Now()))
	assert.False(t, claims.AuthContext().IsSuper(time.Now().Add(time.Hour)))
	assert.Contains(t, f.audit.events, "super:password")

	err = f.svc.SendSuperTokenOTP(ctx, ac)
	assert.True(t, errx.HasCode(err, iam.CodeOperationUnavailableForAccountType))
}

func TestGenerateSuperTokenWithOTP(t *testing.T) {
	bob := account.NewThirdParty("bob@example.com", "Bob", account.TypeThirdParty, iam.AuthTypeGitHub, "gh-9", nil)
	f := newFixture(t, false, bob)
	ctx := context.Background()
	ac := &kernel.AuthContext{UserID: bob.ID}

	_, err := f.svc.GenerateSuperToken(ctx, ac, SuperTokenRequest{})
	assert.True(t, errx.HasCode(err, iam.CodeInvalidOTP))

	require.NoError(t, f.svc.SendSuperTokenOTP(ctx, ac))
	code := f.outbox.Last("bob@example.com")
	require.NotEmpty(t, code)

	resp, err := f.svc.GenerateSuperToken(ctx, ac, SuperTokenRequest{OTP: code})
	require.NoError(t, err)
	assert.NotNil(t, f.claims(t, resp).SuperUntil)

	_, err = f.svc.GenerateSuperToken(ctx, ac, SuperTokenRequest{OTP: code})
	assert.True(t, errx.HasCode(err, iam.CodeInvalidOTP))
}

// ============================================================================
// Impersonation
// ============================================================================

func TestImpersonate(t *testing.T) {
	admin := localAccount("root@example.com", "rootpass1")
	admin.IsAdmin = true
	ana := localAccount("ana@example.com", "secret123")
	f := newFixture(t, false, admin, ana)
	ctx := context.Background()

	adminCtx := &kernel.AuthContext{UserID: admin.ID, Scopes: admin.Scopes()}
	userCtx := &kernel.AuthContext{UserID: ana.ID, Scopes: ana.Scopes()}

	_, err := f.svc.Impersonate(ctx, userCtx, admin.ID)
	assert.True(t, errx.HasCode(err, iam.CodeAccessDenied))

	_, err = f.svc.Impersonate(ctx, adminCtx, kernel.GenerateUserID())
	assert.True(t, errx.HasCode(err, account.CodeAccountNotFound))

	resp, err := f.svc.Impersonate(ctx, adminCtx, ana.ID)
	require.NoError(t, err)
	claims := f.claims(t, resp)
	assert.Equal(t, ana.ID, claims.UserID)
	require.NotNil(t, claims.ImpersonatedBy)
	assert.Equal(t, admin.ID, *claims.ImpersonatedBy)
	assert.Contains(t, f.audit.events, "impersonation")

	// step-up during impersonation confirms the administrator
	impCtx := claims.AuthContext()
	_, err = f.svc.GenerateSuperToken(ctx, impCtx, SuperTokenRequest{Password: "secret123"})
	assert.True(t, errx.HasCode(err, iam.CodeBadCredentials))
	resp, err = f.svc.GenerateSuperToken(ctx, impCtx, SuperTokenRequest{Password: "rootpass1"})
	require.NoError(t, err)
	claims = f.claims(t, resp)
	assert.Equal(t, ana.ID, claims.UserID)
	require.NotNil(t, claims.ImpersonatedBy)
	assert.NotNil(t, claims.SuperUntil)
}

// ============================================================================
// Account
// ============================================================================

func TestChangePassword(t *testing.T) {
	ana := localAccount("ana@example.com", "secret123")
	managed := account.NewThirdParty("bob@acme.com", "Bob", account.TypeManaged, iam.AuthTypeSSO, "sso-1", nil)
	f := newFixture(t, false, ana, managed)
	ctx := context.Background()

	require.NoError(t, f.svc.ChangePassword(ctx, &kernel.AuthContext{UserID: ana.ID}, "newsecret1"))
	_, err := f.svc.Login(ctx, "ana@example.com", "newsecret1", auth.RequestMeta{})
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, &kernel.AuthContext{UserID: managed.ID}, "newsecret1")
	assert.True(t, errx.HasCode(err, iam.CodeOperationUnavailableForAccountType))
}

func TestPublicConfiguration(t *testing.T) {
	f := newFixture(t, true)
	cfg := f.svc.PublicConfiguration()
	assert.True(t, cfg.RegistrationsAllowed)
	assert.True(t, cfg.AuthenticationRequired)
	assert.Equal(t, []iam.AuthType{iam.AuthTypeGitHub}, cfg.OAuthProviders)
}
