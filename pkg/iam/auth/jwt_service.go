package auth

import (
	"fmt"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

const audience = "lingua-api"

// JWTService implementación del TokenService usando JWT
type JWTService struct {
	secretKey      []byte
	accessTokenTTL time.Duration
	issuer         string
	now            func() time.Time
}

// NewJWTService crea una nueva instancia del servicio JWT
func NewJWTService(cfg config.JWTConfig) *JWTService {
	ttl := cfg.AccessTokenTTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "lingua"
	}
	return &JWTService{
		secretKey:      []byte(cfg.Secret),
		accessTokenTTL: ttl,
		issuer:         issuer,
		now:            time.Now,
	}
}

// JWTClaims are the claims as serialized in the token.
type JWTClaims struct {
	TenantID       kernel.TenantID  `json:"tenant_id,omitempty"`
	Email          string           `json:"email"`
	Name           string           `json:"name"`
	Scopes         []string         `json:"scopes"`
	Super          *jwt.NumericDate `json:"super,omitempty"`
	ImpersonatedBy string           `json:"impersonated_by,omitempty"`
	jwt.RegisteredClaims
}

type tokenOptions struct {
	superUntil     *time.Time
	impersonatedBy *kernel.UserID
}

// TokenOption customizes an issued token.
type TokenOption func(*tokenOptions)

// WithSuperUntil marks the token as elevated until t.
func WithSuperUntil(t time.Time) TokenOption {
	return func(o *tokenOptions) { o.superUntil = &t }
}

// WithImpersonator records the administrator acting as the account.
func WithImpersonator(admin kernel.UserID) TokenOption {
	return func(o *tokenOptions) { o.impersonatedBy = &admin }
}

// GenerateAccessToken genera un token de acceso JWT
func (j *JWTService) GenerateAccessToken(acc *account.Account, opts ...TokenOption) (string, error) {
	var o tokenOptions
	for _, opt := range opts {
		opt(&o)
	}

	now := j.now()
	claims := JWTClaims{
		Email:  acc.Username,
		Name:   acc.Name,
		Scopes: acc.Scopes(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   acc.ID.String(),
			Audience:  []string{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if acc.TenantID != nil {
		claims.TenantID = *acc.TenantID
	}
	if o.superUntil != nil {
		claims.Super = jwt.NewNumericDate(*o.superUntil)
	}
	if o.impersonatedBy != nil {
		claims.ImpersonatedBy = o.impersonatedBy.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", ErrTokenGenerationFailed().WithCause(err)
	}
	return tokenString, nil
}

// ValidateAccessToken valida y decodifica un token de acceso
func (j *JWTService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, iam.ErrInvalidAuthenticationToken().WithCause(err)
	}

	jwtClaims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || jwtClaims.Subject == "" {
		return nil, iam.ErrInvalidAuthenticationToken()
	}

	claims := &TokenClaims{
		UserID:    kernel.NewUserID(jwtClaims.Subject),
		TenantID:  jwtClaims.TenantID,
		Email:     jwtClaims.Email,
		Name:      jwtClaims.Name,
		Scopes:    jwtClaims.Scopes,
		ExpiresAt: jwtClaims.ExpiresAt.Time,
	}
	if jwtClaims.IssuedAt != nil {
		claims.IssuedAt = jwtClaims.IssuedAt.Time
	}
	if jwtClaims.Super != nil {
		until := jwtClaims.Super.Time
		claims.SuperUntil = &until
	}
	if jwtClaims.ImpersonatedBy != "" {
		admin := kernel.NewUserID(jwtClaims.ImpersonatedBy)
		claims.ImpersonatedBy = &admin
	}
	return claims, nil
}
