package invitationapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx/errxfiber"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/iamtest"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation/invitationsrv"
	"github.com/Abraxas-365/lingua/pkg/jobx"
	"github.com/gofiber/fiber/v2"
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

func TestCreateAndAcceptInvitation(t *testing.T) {
	admin := account.NewLocal("root@example.com", "Root", "plain:x")
	admin.IsAdmin = true
	invitee := account.NewLocal("new@example.com", "New", "plain:x")
	accounts := iamtest.NewAccounts(admin, invitee)

	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	svc := invitationsrv.NewInvitationService(iamtest.NewInvitations(), accounts, discardJobs{}, discardMailer{}, config.InvitationConfig{TTL: time.Hour})

	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler})
	NewInvitationHandlers(svc).RegisterRoutes(app, auth.NewAuthMiddleware(jwtSvc, accounts))

	adminToken, err := jwtSvc.GenerateAccessToken(admin)
	require.NoError(t, err)
	inviteeToken, err := jwtSvc.GenerateAccessToken(invitee)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/v2/invitations", strings.NewReader(`{"email":"someone@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var created invitation.Invitation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.Code)

	accept := func(code string) (int, map[string]any) {
		req := httptest.NewRequest("GET", "/v2/invitations/"+code+"/accept", nil)
		req.Header.Set("Authorization", "Bearer "+inviteeToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	status, body := accept(created.Code)
	assert.Equal(t, 200, status)
	assert.Equal(t, "ACCEPTED", body["status"])

	status, body = accept(created.Code)
	assert.Equal(t, 400, status)
	assert.Equal(t, "invitation_code_does_not_exist_or_expired", body["code"])
}

func TestInvitationRoutesRequireAuthentication(t *testing.T) {
	accounts := iamtest.NewAccounts()
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "test-secret"})
	svc := invitationsrv.NewInvitationService(iamtest.NewInvitations(), accounts, discardJobs{}, discardMailer{}, config.InvitationConfig{})

	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler})
	NewInvitationHandlers(svc).RegisterRoutes(app, auth.NewAuthMiddleware(jwtSvc, accounts))

	resp, err := app.Test(httptest.NewRequest("GET", "/v2/invitations/abc/accept", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
