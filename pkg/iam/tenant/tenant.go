package tenant

import (
	"time"

	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// Tenant is an organization that signs its members in through its own
// identity provider. It is selected by the email domain of the username.
type Tenant struct {
	ID               kernel.TenantID `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Domain           string          `db:"domain" json:"domain"`
	ClientID         string          `db:"client_id" json:"-"`
	ClientSecret     string          `db:"client_secret" json:"-"`
	AuthorizationURI string          `db:"authorization_uri" json:"-"`
	TokenURI         string          `db:"token_uri" json:"-"`
	UserInfoURI      string          `db:"user_info_uri" json:"-"`
	Enabled          bool            `db:"enabled" json:"enabled"`
	// Force makes SSO the only way for the domain's users to sign in.
	Force     bool      `db:"force" json:"force"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RequiresSso reports whether password and foreign OAuth logins are refused
// for the tenant's domain.
func (t *Tenant) RequiresSso() bool {
	return t != nil && t.Enabled && t.Force
}
