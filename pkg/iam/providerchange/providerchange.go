package providerchange

import (
	"time"

	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// Request is a pending switch of an existing account to another identity
// provider. It is created when a third party login matches an account bound
// elsewhere and applied only after the owner confirms it.
type Request struct {
	UserID      kernel.UserID       `json:"userId"`
	AccountType account.AccountType `json:"accountType"`
	AuthType    iam.AuthType        `json:"authType"`
	AuthID      string              `json:"authId"`
	SSODomain   string              `json:"ssoDomain,omitempty"`
	TenantID    *kernel.TenantID    `json:"tenantId,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	ExpiresAt   time.Time           `json:"expiresAt"`
}

func (r *Request) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// View is what the account owner sees before accepting.
type View struct {
	AuthType  iam.AuthType `json:"authType"`
	Provider  string       `json:"provider"`
	SSODomain string       `json:"ssoDomain,omitempty"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (r *Request) View() View {
	return View{
		AuthType:  r.AuthType,
		Provider:  r.AuthType.DisplayName(),
		SSODomain: r.SSODomain,
		ExpiresAt: r.ExpiresAt,
	}
}
