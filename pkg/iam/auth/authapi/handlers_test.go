package authapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx/errxfiber"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/credentials"
	"github.com/Abraxas-365/lingua/pkg/iam/iamtest"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/Abraxas-365/lingua/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// invitationStub knows no valid codes.
type invitationStub struct{}

func (invitationStub) ValidateCode(context.Context, string) (*invitation.Invitation, error) {
	return nil, iam.ErrInvitationInvalidOrExpired()
}

func (invitationStub) AcceptInvitation(context.Context, string, kernel.UserID) (*invitation.Invitation, error) {
	return nil, iam.ErrInvitationInvalidOrExpired()
}

type testApp struct {
	app *fiber.App
	jwt *auth.JWTService
}

func newTestApp(t *testing.T, accs ...*account.Account) *testApp {
	t.Helper()
	accounts := iamtest.NewAccounts(accs...)
	tenants := iamtest.NewTenants(&tenant.Tenant{
		ID:               kernel.NewTenantID("acme"),
		Domain:           "acme.com",
		ClientID:         "acme-client",
		AuthorizationURI: "https://idp.acme.com/authorize",
		Enabled:          true,
		Force:            true,
	})
	changes := providerchange.NewService(iamtest.NewProviderChanges(), accounts, time.Hour)
	policy := tenant.NewPolicy(tenants, changes)
	checker, err := credentials.NewChecker(accounts, policy, iamtest.PlainPasswords{})
	require.NoError(t, err)
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})

	svc := authsrv.NewAuthService(authsrv.Deps{
		Accounts:        accounts,
		Tenants:         tenants,
		Policy:          policy,
		Checker:         checker,
		Encoder:         iamtest.PlainPasswords{},
		ProviderChanges: changes,
		Invitations:     invitationStub{},
		OTPs:            otpsrv.NewOTPService(iamtest.NewOTPs(), iamtest.NewOTPOutbox(), config.OTPConfig{TTL: time.Minute, Length: 6, MaxAttempts: 3}),
		Tokens:          jwtSvc,
		Sso:             authinfra.NewTenantSsoProvider(),
		Audit:           authinfra.NewLogxAuditService(),
		Config:          config.AuthConfig{FrontendURL: "https://app.lingua.dev"},
	})

	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler})
	NewAuthHandlers(svc).RegisterRoutes(app, auth.NewAuthMiddleware(jwtSvc, accounts))
	return &testApp{app: app, jwt: jwtSvc}
}

func (a *testApp) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (a *testApp) token(t *testing.T, acc *account.Account, opts ...auth.TokenOption) string {
	t.Helper()
	token, err := a.jwt.GenerateAccessToken(acc, opts...)
	require.NoError(t, err)
	return token
}

func TestGenerateToken(t *testing.T) {
	ana := account.NewLocal("ana@example.com", "Ana", "plain:secret123")
	a := newTestApp(t, ana)

	status, body := a.do(t, "POST", "/api/public/generatetoken", "", `{"username":"ana@example.com","password":"secret123"}`)
	require.Equal(t, 200, status)
	assert.Equal(t, "Bearer", body["tokenType"])
	claims, err := a.jwt.ValidateAccessToken(body["accessToken"].(string))
	require.NoError(t, err)
	assert.Equal(t, ana.ID, claims.UserID)

	status, body = a.do(t, "POST", "/api/public/generatetoken", "", `{"username":"ana@example.com","password":"wrong"}`)
	assert.Equal(t, 401, status)
	assert.Equal(t, "bad_credentials", body["code"])

	status, _ = a.do(t, "POST", "/api/public/generatetoken", "", `{"username":"ana@example.com"}`)
	assert.Equal(t, 400, status)
}

func TestGenerateTokenSsoForced(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(t, "POST", "/api/public/generatetoken", "", `{"username":"bob@acme.com","password":"whatever1"}`)
	assert.Equal(t, 401, status)
	assert.Equal(t, "sso_login_forced_for_this_account", body["code"])
	assert.Equal(t, []any{"acme.com"}, body["params"])
}

func TestPublicOAuthEndpoints(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(t, "GET", "/api/public/authorize_oauth/myspace?code=x", "", "")
	assert.Equal(t, 400, status)
	assert.Equal(t, "oauth_provider_not_enabled", body["code"])

	status, body = a.do(t, "GET", "/api/public/authorize_oauth/github?code=x", "", "")
	assert.Equal(t, 400, status)
	assert.Equal(t, "oauth_provider_not_enabled", body["code"])

	status, body = a.do(t, "POST", "/api/public/authorize_oauth/sso/authentication-url", "", `{"domain":"acme.com","state":"s-1"}`)
	require.Equal(t, 200, status)
	redirect := body["redirectUrl"].(string)
	assert.True(t, strings.HasPrefix(redirect, "https://idp.acme.com/authorize?"))
	assert.Contains(t, redirect, "state=s-1")

	status, body = a.do(t, "POST", "/api/public/authorize_oauth/sso/authentication-url", "", `{"domain":"nowhere.org","state":"s-1"}`)
	assert.Equal(t, 404, status)
	assert.Equal(t, "sso_domain_not_found", body["code"])
}

func TestSignUpClosed(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(t, "POST", "/api/public/sign_up", "", `{"name":"New","email":"new@example.com","password":"secret123"}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "registrations_not_allowed", body["code"])

	status, body = a.do(t, "POST", "/api/public/sign_up", "", `{"name":"New","email":"new@example.com","password":"secret123","invitationCode":"bad"}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "invitation_code_does_not_exist_or_expired", body["code"])

	status, body = a.do(t, "GET", "/api/public/configuration", "", "")
	require.Equal(t, 200, status)
	assert.Equal(t, false, body["allowRegistrations"])
}

func TestCurrentUserAndPasswordChange(t *testing.T) {
	ana := account.NewLocal("ana@example.com", "Ana", "plain:secret123")
	a := newTestApp(t, ana)
	token := a.token(t, ana)

	status, body := a.do(t, "GET", "/v2/user", token, "")
	require.Equal(t, 200, status)
	assert.Equal(t, "ana@example.com", body["username"])
	assert.Equal(t, true, body["hasPassword"])

	status, body = a.do(t, "PUT", "/v2/user/password", token, `{"password":"newsecret1"}`)
	assert.Equal(t, 403, status)
	assert.Equal(t, "expired_super_jwt_token", body["code"])

	status, body = a.do(t, "POST", "/v2/user/generate-super-token", token, `{"password":"secret123"}`)
	require.Equal(t, 200, status)
	super := body["accessToken"].(string)

	status, _ = a.do(t, "PUT", "/v2/user/password", super, `{"password":"newsecret1"}`)
	assert.Equal(t, 204, status)

	status, _ = a.do(t, "POST", "/api/public/generatetoken", "", `{"username":"ana@example.com","password":"newsecret1"}`)
	assert.Equal(t, 200, status)
}

func TestProviderChangeEndpoints(t *testing.T) {
	ana := account.NewLocal("ana@example.com", "Ana", "plain:secret123")
	a := newTestApp(t, ana)
	token := a.token(t, ana)

	status, body := a.do(t, "GET", "/v2/auth-provider/changed", token, "")
	assert.Equal(t, 404, status)
	assert.Equal(t, "auth_provider_change_not_found", body["code"])

	status, _ = a.do(t, "DELETE", "/v2/auth-provider/changed", token, "")
	assert.Equal(t, 204, status)

	status, body = a.do(t, "POST", "/v2/auth-provider/changed/accept", token, "")
	assert.Equal(t, 404, status)
	assert.Equal(t, "auth_provider_change_not_found", body["code"])
}

func TestImpersonationEndpoint(t *testing.T) {
	admin := account.NewLocal("root@example.com", "Root", "plain:rootpass1")
	admin.IsAdmin = true
	ana := account.NewLocal("ana@example.com", "Ana", "plain:secret123")
	a := newTestApp(t, admin, ana)

	path := "/v2/administration/users/" + ana.ID.String() + "/generate-token"
	status, body := a.do(t, "GET", path, a.token(t, ana), "")
	assert.Equal(t, 403, status)
	assert.Equal(t, "access_denied", body["code"])

	status, body = a.do(t, "GET", path, a.token(t, admin), "")
	require.Equal(t, 200, status)
	claims, err := a.jwt.ValidateAccessToken(body["accessToken"].(string))
	require.NoError(t, err)
	assert.Equal(t, ana.ID, claims.UserID)
	require.NotNil(t, claims.ImpersonatedBy)
	assert.Equal(t, admin.ID, *claims.ImpersonatedBy)

	status, body = a.do(t, "GET", "/v2/user", body["accessToken"].(string), "")
	require.Equal(t, 200, status)
	assert.Equal(t, admin.ID.String(), body["impersonatedBy"])
}
