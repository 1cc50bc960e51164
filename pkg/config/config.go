package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	OAuth    OAuthConfig    `envPrefix:"OAUTH_"`
	Notifx   NotifxConfig   `envPrefix:"NOTIFX_"`
	Jobx     JobxConfig     `envPrefix:"JOBX_"`
}

type ServerConfig struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	Version     string `env:"VERSION" envDefault:"dev"`
}

type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	User            string        `env:"USER" envDefault:"lingua"`
	Password        string        `env:"PASSWORD"`
	Name            string        `env:"NAME" envDefault:"lingua"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START" envDefault:"true"`
}

// DSN returns the lib/pq key/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL returns the postgres:// form used by the migrator.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AuthConfig struct {
	JWT                  JWTConfig        `envPrefix:"JWT_"`
	Password             PasswordConfig   `envPrefix:"PASSWORD_"`
	Invitation           InvitationConfig `envPrefix:"INVITATION_"`
	OTP                  OTPConfig        `envPrefix:"OTP_"`
	ProviderChangeTTL    time.Duration    `env:"PROVIDER_CHANGE_TTL" envDefault:"2h"`
	RegistrationsAllowed bool             `env:"REGISTRATIONS_ALLOWED" envDefault:"false"`
	// FrontendURL is used to build redirect URIs for OAuth and SSO.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

type JWTConfig struct {
	Secret         string        `env:"SECRET,required,notEmpty"`
	Issuer         string        `env:"ISSUER" envDefault:"lingua"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"168h"`
	SuperTokenTTL  time.Duration `env:"SUPER_TOKEN_TTL" envDefault:"1h"`
}

type PasswordConfig struct {
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

type InvitationConfig struct {
	TTL           time.Duration `env:"TTL" envDefault:"720h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
}

type OTPConfig struct {
	TTL         time.Duration `env:"TTL" envDefault:"10m"`
	Length      int           `env:"LENGTH" envDefault:"6"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
}

type OAuthConfig struct {
	GitHub  ProviderConfig `envPrefix:"GITHUB_"`
	Google  ProviderConfig `envPrefix:"GOOGLE_"`
	Generic ProviderConfig `envPrefix:"GENERIC_"`
}

// ProviderConfig configures one OAuth2 identity provider. AuthURL, TokenURL
// and UserInfoURL are only needed for providers without built-in endpoints.
type ProviderConfig struct {
	Enabled      bool     `env:"ENABLED" envDefault:"false"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	AuthURL      string   `env:"AUTH_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	UserInfoURL  string   `env:"USER_INFO_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
