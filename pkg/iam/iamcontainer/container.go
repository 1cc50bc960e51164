package iamcontainer

import (
	"context"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/iam/account/accountinfra"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authapi"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/credentials"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation/invitationapi"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation/invitationinfra"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation/invitationsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/otp/otpinfra"
	"github.com/Abraxas-365/lingua/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange/providerchangeinfra"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant/tenantinfra"
	"github.com/Abraxas-365/lingua/pkg/jobx"
	"github.com/Abraxas-365/lingua/pkg/logx"
	"github.com/Abraxas-365/lingua/pkg/notifx"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config

	// Notifier sends invitation and OTP emails.
	Notifier *notifx.Client
	// Jobs queues invitation emails and runs their handler.
	Jobs *jobx.Client
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// ---------------------------------------------------------------------------

type Container struct {
	AuthService       *authsrv.AuthService
	InvitationService *invitationsrv.InvitationService
	OTPService        *otpsrv.OTPService
	TokenService      auth.TokenService

	AuthHandlers       *authapi.AuthHandlers
	InvitationHandlers *invitationapi.InvitationHandlers

	AuthMiddleware *auth.TokenMiddleware

	sweepEvery time.Duration
}

// New constructs the IAM dependency graph.
// Order matters: infra → repos → services → handlers → middleware.
func New(deps Deps) (*Container, error) {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{sweepEvery: deps.Cfg.Auth.Invitation.SweepInterval}

	// ── Repositories ─────────────────────────────────────────────────────

	accountRepo := accountinfra.NewPostgresAccountRepository(deps.DB)
	tenantRepo := tenantinfra.NewPostgresTenantRepository(deps.DB)
	invitationRepo := invitationinfra.NewPostgresInvitationRepository(deps.DB)
	changeRepo := providerchangeinfra.NewRedisRepository(deps.Redis)
	otpRepo := otpinfra.NewRedisOTPRepository(deps.Redis)

	// ── Infrastructure services ──────────────────────────────────────────

	encoder := authinfra.NewBcryptPasswordEncoder(deps.Cfg.Auth.Password.BcryptCost)
	jwtService := auth.NewJWTService(deps.Cfg.Auth.JWT)
	c.TokenService = jwtService

	otpNotifier, err := otpinfra.NewEmailNotifier(deps.Notifier, deps.Cfg.Auth.OTP.TTL)
	if err != nil {
		return nil, err
	}
	mailer, err := invitationinfra.NewEmailMailer(deps.Notifier, deps.Cfg.Auth.FrontendURL)
	if err != nil {
		return nil, err
	}

	// ── Domain services ──────────────────────────────────────────────────

	changes := providerchange.NewService(changeRepo, accountRepo, deps.Cfg.Auth.ProviderChangeTTL)
	policy := tenant.NewPolicy(tenantRepo, changes)
	checker, err := credentials.NewChecker(accountRepo, policy, encoder)
	if err != nil {
		return nil, err
	}

	c.InvitationService = invitationsrv.NewInvitationService(
		invitationRepo,
		accountRepo,
		deps.Jobs,
		mailer,
		deps.Cfg.Auth.Invitation,
	)
	c.InvitationService.RegisterJobs(deps.Jobs)

	c.OTPService = otpsrv.NewOTPService(otpRepo, otpNotifier, deps.Cfg.Auth.OTP)

	// ── OAuth providers ──────────────────────────────────────────────────

	var providers []auth.OAuthProvider
	if p := deps.Cfg.OAuth.GitHub; p.Enabled {
		providers = append(providers, authinfra.NewGitHubProvider(p))
		logx.Info("  ✅ GitHub OAuth enabled")
	}
	if p := deps.Cfg.OAuth.Google; p.Enabled {
		providers = append(providers, authinfra.NewGoogleProvider(p))
		logx.Info("  ✅ Google OAuth enabled")
	}
	if p := deps.Cfg.OAuth.Generic; p.Enabled {
		providers = append(providers, authinfra.NewGenericProvider(p))
		logx.Info("  ✅ Generic OAuth2 enabled")
	}

	c.AuthService = authsrv.NewAuthService(authsrv.Deps{
		Accounts:        accountRepo,
		Tenants:         tenantRepo,
		Policy:          policy,
		Checker:         checker,
		Encoder:         encoder,
		ProviderChanges: changes,
		Invitations:     c.InvitationService,
		OTPs:            c.OTPService,
		Tokens:          jwtService,
		OAuthProviders:  providers,
		Sso:             authinfra.NewTenantSsoProvider(),
		Audit:           authinfra.NewLogxAuditService(),
		Config:          deps.Cfg.Auth,
	})

	// ── Handlers & middleware ────────────────────────────────────────────

	c.AuthHandlers = authapi.NewAuthHandlers(c.AuthService)
	c.InvitationHandlers = invitationapi.NewInvitationHandlers(c.InvitationService)
	c.AuthMiddleware = auth.NewAuthMiddleware(jwtService, accountRepo)

	logx.Info("✅ IAM container initialized")
	return c, nil
}

// RegisterRoutes mounts every IAM route on app.
func (c *Container) RegisterRoutes(app fiber.Router) {
	c.AuthHandlers.RegisterRoutes(app, c.AuthMiddleware)
	c.InvitationHandlers.RegisterRoutes(app, c.AuthMiddleware)
}

// StartBackgroundServices starts IAM-specific background workers.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	go c.InvitationService.RunExpirySweeper(ctx, c.sweepEvery)
	logx.Info("  ✅ IAM invitation sweeper started")
}
