package auth

import (
	"strings"
	"time"

	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

const localsAuth = "auth"

// TokenMiddleware middleware para autenticación JWT con Fiber
type TokenMiddleware struct {
	tokenService TokenService
	accounts     AccountLookup
	now          func() time.Time
}

// NewAuthMiddleware crea un nuevo middleware de autenticación
func NewAuthMiddleware(tokenService TokenService, accounts AccountLookup) *TokenMiddleware {
	return &TokenMiddleware{
		tokenService: tokenService,
		accounts:     accounts,
		now:          time.Now,
	}
}

// Authenticate valida el token (header Authorization o cookie access_token)
// y que la cuenta siga activa.
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Cookies("access_token")
		}
		if token == "" {
			return iam.ErrUnauthenticated()
		}

		claims, err := am.tokenService.ValidateAccessToken(token)
		if err != nil {
			return err
		}

		acc, err := am.accounts.FindByID(c.UserContext(), claims.UserID)
		if err != nil || !acc.IsActive() {
			return iam.ErrInvalidAuthenticationToken().WithDetail("reason", "account is not active")
		}

		authContext := claims.AuthContext()
		// Privileges follow the stored account, not the token.
		authContext.Scopes = acc.Scopes()
		c.Locals(localsAuth, authContext)
		c.SetUserContext(kernel.WithAuth(c.UserContext(), authContext))

		return c.Next()
	}
}

// RequireAdmin middleware que requiere permisos de administrador
func (am *TokenMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := AuthFrom(c)
		if !ok {
			return iam.ErrUnauthenticated()
		}
		if !authContext.IsAdmin() {
			return iam.ErrAccessDenied()
		}
		return c.Next()
	}
}

// RequireSuperToken rejects tokens outside their step-up window with
// expired_super_jwt_token so the client can ask for re-authentication.
func (am *TokenMiddleware) RequireSuperToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := AuthFrom(c)
		if !ok {
			return iam.ErrUnauthenticated()
		}
		if !authContext.IsSuper(am.now()) {
			return iam.ErrExpiredSuperToken()
		}
		return c.Next()
	}
}

// AuthFrom returns the principal stored by Authenticate.
func AuthFrom(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	ac, ok := c.Locals(localsAuth).(*kernel.AuthContext)
	return ac, ok && ac.IsValid()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
