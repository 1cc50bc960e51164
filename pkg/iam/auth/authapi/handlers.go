package authapi

import (
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// AuthHandlers exposes sign-in, sign-up and session endpoints.
type AuthHandlers struct {
	service *authsrv.AuthService
}

func NewAuthHandlers(service *authsrv.AuthService) *AuthHandlers {
	return &AuthHandlers{service: service}
}

// RegisterRoutes mounts the public endpoints and the authenticated /v2
// endpoints.
func (h *AuthHandlers) RegisterRoutes(app fiber.Router, mw *auth.TokenMiddleware) {
	public := app.Group("/api/public")
	public.Get("/configuration", h.Configuration)
	public.Post("/generatetoken", h.GenerateToken)
	public.Post("/authorize_oauth/sso/authentication-url", h.SsoAuthenticationURL)
	public.Get("/authorize_oauth/:serviceType", h.AuthorizeOAuth)
	public.Post("/sign_up", h.SignUp)

	user := app.Group("/v2/user", mw.Authenticate())
	user.Get("/", h.CurrentUser)
	user.Post("/generate-super-token", h.GenerateSuperToken)
	user.Post("/super-token/otp", h.SendSuperTokenOTP)
	user.Put("/password", mw.RequireSuperToken(), h.ChangePassword)

	change := app.Group("/v2/auth-provider", mw.Authenticate())
	change.Get("/changed", h.GetProviderChange)
	change.Post("/changed/accept", h.AcceptProviderChange)
	change.Delete("/changed", h.RejectProviderChange)

	admin := app.Group("/v2/administration", mw.Authenticate(), mw.RequireAdmin())
	admin.Get("/users/:userId/generate-token", h.Impersonate)
}

// ============================================================================
// Public
// ============================================================================

func (h *AuthHandlers) Configuration(c *fiber.Ctx) error {
	return c.JSON(h.service.PublicConfiguration())
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandlers) GenerateToken(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.ErrInvalidRequest("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return auth.ErrInvalidRequest("username and password are required")
	}

	resp, err := h.service.Login(c.UserContext(), req.Username, req.Password, requestMeta(c))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *AuthHandlers) AuthorizeOAuth(c *fiber.Ctx) error {
	authType, ok := iam.ParseAuthType(c.Params("serviceType"))
	if !ok {
		return iam.ErrOAuthProviderNotEnabled().WithDetail("provider", c.Params("serviceType"))
	}

	resp, err := h.service.AuthorizeOAuth(c.UserContext(), authsrv.OAuthRequest{
		Type:           authType,
		Code:           c.Query("code"),
		RedirectURI:    c.Query("redirect_uri"),
		InvitationCode: c.Query("invitationCode"),
		Domain:         c.Query("domain"),
	}, requestMeta(c))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

type ssoURLRequest struct {
	Domain string `json:"domain"`
	State  string `json:"state"`
}

func (h *AuthHandlers) SsoAuthenticationURL(c *fiber.Ctx) error {
	var req ssoURLRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.ErrInvalidRequest("invalid request body")
	}

	redirectURL, err := h.service.SsoAuthenticationURL(c.UserContext(), req.Domain, req.State)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"redirectUrl": redirectURL})
}

func (h *AuthHandlers) SignUp(c *fiber.Ctx) error {
	var req authsrv.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.ErrInvalidRequest("invalid request body")
	}

	resp, err := h.service.SignUp(c.UserContext(), req, requestMeta(c))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ============================================================================
// Authenticated
// ============================================================================

func (h *AuthHandlers) CurrentUser(c *fiber.Ctx) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	acc, err := h.service.CurrentUser(c.UserContext(), ac)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":                 acc.ID,
		"username":           acc.Username,
		"name":               acc.Name,
		"accountType":        acc.AccountType,
		"thirdPartyAuthType": acc.ThirdPartyAuthType,
		"tenantId":           acc.TenantID,
		"isAdmin":            acc.IsAdmin,
		"hasPassword":        acc.HasPassword(),
		"impersonatedBy":     ac.ImpersonatedBy,
	})
}

func (h *AuthHandlers) GenerateSuperToken(c *fiber.Ctx) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	var req authsrv.SuperTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.ErrInvalidRequest("invalid request body")
	}

	resp, err := h.service.GenerateSuperToken(c.UserContext(), ac, req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *AuthHandlers) SendSuperTokenOTP(c *fiber.Ctx) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.service.SendSuperTokenOTP(c.UserContext(), ac); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandlers) ChangePassword(c *fiber.Ctx) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.ErrInvalidRequest("invalid request body")
	}
	if err := h.service.ChangePassword(c.UserContext(), ac, req.Password); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandlers) GetProviderChange(c *fiber.Ctx) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetProviderChange(c.UserContext(), ac)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *AuthHandlers) AcceptProviderChange(c *fiber.Ctx) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	resp, err := h.service.AcceptProviderChange(c.UserContext(), ac)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *AuthHandlers) RejectProviderChange(c *fiber.Ctx) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.service.RejectProviderChange(c.UserContext(), ac); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandlers) Impersonate(c *fiber.Ctx) error {
	ac, err := principal(c)
	if err != nil {
		return err
	}
	resp, err := h.service.Impersonate(c.UserContext(), ac, kernel.UserID(c.Params("userId")))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ============================================================================
// Helpers
// ============================================================================

func principal(c *fiber.Ctx) (*kernel.AuthContext, error) {
	ac, ok := auth.AuthFrom(c)
	if !ok {
		return nil, iam.ErrUnauthenticated()
	}
	return ac, nil
}

func requestMeta(c *fiber.Ctx) auth.RequestMeta {
	return auth.RequestMeta{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
}
