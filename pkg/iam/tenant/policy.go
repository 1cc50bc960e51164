package tenant

import (
	"context"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
)

// Policy decides whether a username may sign in without its tenant's SSO.
type Policy struct {
	tenants Repository
	changes ProviderChanges
}

func NewPolicy(tenants Repository, changes ProviderChanges) *Policy {
	return &Policy{tenants: tenants, changes: changes}
}

// SsoTenant returns the enabled tenant for the username's domain, or nil.
func (p *Policy) SsoTenant(ctx context.Context, username string) (*Tenant, error) {
	domain := account.DomainOf(username)
	if domain == "" {
		return nil, nil
	}
	t, err := p.tenants.FindByDomain(ctx, domain)
	if err != nil {
		return nil, errx.Wrap(err, "failed to resolve tenant", errx.TypeInternal).
			WithDetail("domain", domain)
	}
	if t == nil || !t.Enabled {
		return nil, nil
	}
	return t, nil
}

// CheckSsoNotRequired fails with sso_login_forced_for_this_account when the
// username's domain belongs to a tenant that forces SSO.
func (p *Policy) CheckSsoNotRequired(ctx context.Context, username string) error {
	t, err := p.SsoTenant(ctx, username)
	if err != nil {
		return err
	}
	if t.RequiresSso() {
		return iam.ErrSsoLoginForced(t.Domain)
	}
	return nil
}

// CheckSsoNotRequiredOrAuthProviderChangeActive lets the account through when
// SSO is not forced for it, or when it has a pending provider change that a
// password login is needed to confirm.
func (p *Policy) CheckSsoNotRequiredOrAuthProviderChangeActive(ctx context.Context, acc *account.Account) error {
	err := p.CheckSsoNotRequired(ctx, acc.Username)
	if err == nil || !errx.HasCode(err, iam.CodeSsoLoginForced) {
		return err
	}

	active, cerr := p.changes.IsActive(ctx, acc.ID)
	if cerr != nil {
		return errx.Wrap(cerr, "failed to check provider change", errx.TypeInternal)
	}
	if active {
		return nil
	}
	return err
}
