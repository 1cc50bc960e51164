package account

import (
	"strings"
	"time"

	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// AccountType describes how an account is allowed to authenticate.
type AccountType string

const (
	// TypeLocal accounts own a password and may also link a third party.
	TypeLocal AccountType = "LOCAL"
	// TypeManaged accounts are provisioned by a tenant's SSO and never
	// authenticate with a local password.
	TypeManaged AccountType = "MANAGED"
	// TypeThirdParty accounts were created through an OAuth provider.
	TypeThirdParty AccountType = "THIRD_PARTY"
)

// Account is a user able to sign in.
type Account struct {
	ID                 kernel.UserID    `db:"id" json:"id"`
	Username           string           `db:"username" json:"username"`
	Name               string           `db:"name" json:"name"`
	PasswordHash       string           `db:"password_hash" json:"-"`
	AccountType        AccountType      `db:"account_type" json:"accountType"`
	ThirdPartyAuthType iam.AuthType     `db:"third_party_auth_type" json:"thirdPartyAuthType,omitempty"`
	ThirdPartyAuthID   string           `db:"third_party_auth_id" json:"-"`
	TenantID           *kernel.TenantID `db:"tenant_id" json:"tenantId,omitempty"`
	IsAdmin            bool             `db:"is_admin" json:"isAdmin"`
	Disabled           bool             `db:"disabled" json:"disabled"`
	DeletedAt          *time.Time       `db:"deleted_at" json:"-"`
	CreatedAt          time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updatedAt"`
}

// NewLocal creates a password account.
func NewLocal(username, name, passwordHash string) *Account {
	now := time.Now()
	return &Account{
		ID:           kernel.GenerateUserID(),
		Username:     NormalizeUsername(username),
		Name:         name,
		PasswordHash: passwordHash,
		AccountType:  TypeLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewThirdParty creates an account owned by an identity provider.
func NewThirdParty(username, name string, accType AccountType, authType iam.AuthType, authID string, tenantID *kernel.TenantID) *Account {
	now := time.Now()
	return &Account{
		ID:                 kernel.GenerateUserID(),
		Username:           NormalizeUsername(username),
		Name:               name,
		AccountType:        accType,
		ThirdPartyAuthType: authType,
		ThirdPartyAuthID:   authID,
		TenantID:           tenantID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// IsActive reports whether the account may sign in at all.
func (a *Account) IsActive() bool {
	return !a.Disabled && a.DeletedAt == nil
}

func (a *Account) IsManaged() bool {
	return a.AccountType == TypeManaged
}

func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// UsesProvider reports whether the account is already bound to the given
// provider identity.
func (a *Account) UsesProvider(authType iam.AuthType, authID string) bool {
	return a.ThirdPartyAuthType == authType && a.ThirdPartyAuthID == authID
}

// Domain returns the lowercased email domain of the username.
func (a *Account) Domain() string {
	return DomainOf(a.Username)
}

// Scopes are embedded in issued tokens.
func (a *Account) Scopes() []string {
	if a.IsAdmin {
		return []string{"*"}
	}
	return []string{"user:*"}
}

// SwitchProvider rebinds the account to a new identity provider. Managed
// accounts lose their local password.
func (a *Account) SwitchProvider(accType AccountType, authType iam.AuthType, authID string, tenantID *kernel.TenantID) {
	a.AccountType = accType
	a.ThirdPartyAuthType = authType
	a.ThirdPartyAuthID = authID
	a.TenantID = tenantID
	if accType == TypeManaged {
		a.PasswordHash = ""
	}
	a.UpdatedAt = time.Now()
}

// NormalizeUsername trims and lowercases an email-style username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// DomainOf extracts the part after the last '@', lowercased. Usernames
// without a domain yield "".
func DomainOf(username string) string {
	at := strings.LastIndex(username, "@")
	if at < 0 || at == len(username)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(username[at+1:]))
}
