package authclient_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/lingua/pkg/authclient"
	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/errx/errxfiber"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authapi"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/credentials"
	"github.com/Abraxas-365/lingua/pkg/iam/iamtest"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation/invitationapi"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation/invitationsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/jobx"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardJobs struct{}

func (discardJobs) Enqueue(context.Context, jobx.Job) (string, error) { return "job", nil }
func (discardJobs) EnqueueDelayed(context.Context, jobx.Job, time.Duration) (string, error) {
	return "job", nil
}

type discardMailer struct{}

func (discardMailer) SendInvitation(context.Context, *invitation.Invitation, string) error {
	return nil
}

type navigator struct{ assigned []string }

func (n *navigator) Replace(string)    {}
func (n *navigator) Assign(url string) { n.assigned = append(n.assigned, url) }

type server struct {
	url         string
	accounts    *iamtest.Accounts
	invitations *iamtest.Invitations
	invites     *invitationsrv.InvitationService
}

// startServer runs the real auth and invitation handlers over in-memory
// repositories. Registrations are closed.
func startServer(t *testing.T, accs ...*account.Account) *server {
	t.Helper()
	s := &server{
		accounts:    iamtest.NewAccounts(accs...),
		invitations: iamtest.NewInvitations(),
	}
	tenants := iamtest.NewTenants(&tenant.Tenant{
		ID:               kernel.NewTenantID("acme"),
		Domain:           "acme.com",
		ClientID:         "acme-client",
		AuthorizationURI: "https://idp.acme.com/authorize",
		Enabled:          true,
		Force:            true,
	})
	changes := providerchange.NewService(iamtest.NewProviderChanges(), s.accounts, time.Hour)
	policy := tenant.NewPolicy(tenants, changes)
	checker, err := credentials.NewChecker(s.accounts, policy, iamtest.PlainPasswords{})
	require.NoError(t, err)
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	s.invites = invitationsrv.NewInvitationService(s.invitations, s.accounts, discardJobs{}, discardMailer{}, config.InvitationConfig{TTL: time.Hour})

	svc := authsrv.NewAuthService(authsrv.Deps{
		Accounts:        s.accounts,
		Tenants:         tenants,
		Policy:          policy,
		Checker:         checker,
		Encoder:         iamtest.PlainPasswords{},
		ProviderChanges: changes,
		Invitations:     s.invites,
		OTPs:            otpsrv.NewOTPService(iamtest.NewOTPs(), iamtest.NewOTPOutbox(), config.OTPConfig{TTL: time.Minute, Length: 6, MaxAttempts: 3}),
		Tokens:          jwtSvc,
		Sso:             authinfra.NewTenantSsoProvider(),
		Audit:           authinfra.NewLogxAuditService(),
		Config:          config.AuthConfig{FrontendURL: "https://app.lingua.dev"},
	})

	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler})
	mw := auth.NewAuthMiddleware(jwtSvc, s.accounts)
	authapi.NewAuthHandlers(svc).RegisterRoutes(app, mw)
	invitationapi.NewInvitationHandlers(s.invites).RegisterRoutes(app, mw)

	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	s.url = srv.URL
	return s
}

func (s *server) invite(t *testing.T, email string) *invitation.Invitation {
	t.Helper()
	admin := &kernel.AuthContext{UserID: kernel.GenerateUserID(), TenantID: kernel.NewTenantID("team"), Scopes: []string{"*"}}
	inv, err := s.invites.CreateInvitation(context.Background(), admin, email)
	require.NoError(t, err)
	return inv
}

func TestAgainstServerSignUpWithInvitation(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	c := authclient.NewCoordinator(authclient.NewHTTPAPI(srv.url, nil), authclient.NewMemoryStorage())

	err := c.SignUp(ctx, authclient.SignUpRequest{Name: "Ana", Email: "ana@example.com", Password: "secret123"})
	assert.True(t, errx.HasCode(err, iam.CodeRegistrationsNotAllowed))

	require.NoError(t, c.SetInvitationCode("bogus"))
	err = c.SignUp(ctx, authclient.SignUpRequest{Name: "Ana", Email: "ana@example.com", Password: "secret123"})
	assert.True(t, errx.HasCode(err, iam.CodeInvitationInvalidOrExpired))
	assert.Empty(t, c.State().InvitationCode)

	inv := srv.invite(t, "ana@example.com")
	require.NoError(t, c.SetInvitationCode(inv.Code))
	require.NoError(t, c.SignUp(ctx, authclient.SignUpRequest{Name: "Ana", Email: "ana@example.com", Password: "secret123"}))

	assert.NotEmpty(t, c.State().Token)
	assert.Empty(t, c.State().InvitationCode)
	acc, err := srv.accounts.FindActive(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, acc.ID.String(), c.UserID())
}

func TestAgainstServerLoginAcceptsPendingInvitation(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	inv := srv.invite(t, "dana@example.com")
	dana := account.NewLocal("dana@example.com", "Dana", "plain:secret123")
	require.NoError(t, srv.accounts.Save(ctx, *dana))

	c := authclient.NewCoordinator(authclient.NewHTTPAPI(srv.url, nil), authclient.NewMemoryStorage())
	require.NoError(t, c.SetInvitationCode(inv.Code))

	err := c.Login(ctx, authclient.LoginRequest{Username: "dana@example.com", Password: "wrong"})
	assert.True(t, errx.HasCode(err, iam.CodeBadCredentials))
	assert.Equal(t, inv.Code, c.State().InvitationCode)

	require.NoError(t, c.Login(ctx, authclient.LoginRequest{Username: "dana@example.com", Password: "secret123"}))
	assert.Empty(t, c.State().InvitationCode)

	stored, err := srv.invitations.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusAccepted, stored.Status)
	assert.Equal(t, dana.ID.String(), c.UserID())
}

func TestAgainstServerForcedSsoRedirects(t *testing.T) {
	bob := account.NewLocal("bob@acme.com", "Bob", "plain:secret123")
	srv := startServer(t, bob)
	nav := &navigator{}
	storage := authclient.NewMemoryStorage()
	c := authclient.NewCoordinator(authclient.NewHTTPAPI(srv.url, nil), storage, authclient.WithNavigator(nav))

	err := c.Login(context.Background(), authclient.LoginRequest{Username: "bob@acme.com", Password: "secret123"})
	assert.True(t, errx.HasCode(err, iam.CodeSsoLoginForced))

	require.Len(t, nav.assigned, 1)
	assert.True(t, strings.HasPrefix(nav.assigned[0], "https://idp.acme.com/authorize?"))
	state, _ := storage.Get(authclient.KeyOAuthState)
	assert.Contains(t, nav.assigned[0], "state="+state)
	assert.Equal(t, "acme.com", c.GetLastSsoDomain())
	assert.Empty(t, c.State().Token)
}
