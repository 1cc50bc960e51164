package authsrv

import (
	"context"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// OAuthRequest is the callback of a third party or SSO authorization.
type OAuthRequest struct {
	Type           iam.AuthType
	Code           string
	RedirectURI    string
	InvitationCode string
	// Domain selects the tenant for SSO.
	Domain string
}

// AuthorizeOAuth completes an authorization code flow.
//
// A known provider identity signs in. An existing account with the same
// email bound elsewhere gets a pending provider change and the call fails
// with third_party_switch_initiated. Otherwise a new account is created
// when admission allows it.
func (s *AuthService) AuthorizeOAuth(ctx context.Context, req OAuthRequest, meta auth.RequestMeta) (*auth.TokenResponse, error) {
	method := string(req.Type)
	acc, err := s.authorizeOAuth(ctx, req, meta)
	s.recordLogin(ctx, method, acc, err, meta)
	if err != nil {
		return nil, err
	}
	return s.issue(acc, tokenRegular)
}

func (s *AuthService) authorizeOAuth(ctx context.Context, req OAuthRequest, meta auth.RequestMeta) (*account.Account, error) {
	if req.Code == "" {
		return nil, auth.ErrInvalidRequest("missing authorization code")
	}
	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = s.callbackURL(req.Type)
	}

	var (
		identity *auth.ExternalIdentity
		ssoT     *tenant.Tenant
		err      error
	)
	if req.Type == iam.AuthTypeSSO {
		if ssoT, err = s.ssoTenant(ctx, req.Domain); err != nil {
			return nil, err
		}
		if identity, err = s.sso.Exchange(ctx, ssoT, req.Code, redirectURI); err != nil {
			return nil, err
		}
		if account.DomainOf(identity.Email) != ssoT.Domain {
			return nil, iam.ErrThirdPartyAuthFailed().
				WithDetail("reason", "email does not belong to the SSO domain")
		}
	} else {
		provider, ok := s.oauth[req.Type]
		if !ok {
			return nil, iam.ErrOAuthProviderNotEnabled().WithDetail("provider", string(req.Type))
		}
		if identity, err = provider.Exchange(ctx, req.Code, redirectURI); err != nil {
			return nil, err
		}
	}

	return s.resolveExternal(ctx, req.Type, identity, ssoT, req.InvitationCode, meta)
}

func (s *AuthService) resolveExternal(ctx context.Context, authType iam.AuthType, identity *auth.ExternalIdentity, ssoT *tenant.Tenant, invitationCode string, meta auth.RequestMeta) (*account.Account, error) {
	accType, tenantID := account.TypeThirdParty, (*kernel.TenantID)(nil)
	if ssoT != nil {
		tid := ssoT.ID
		tenantID = &tid
		if ssoT.Force {
			accType = account.TypeManaged
		}
	}

	known, err := s.accounts.FindByThirdParty(ctx, authType, identity.ID)
	if err != nil {
		return nil, err
	}
	if known != nil {
		if !known.IsActive() {
			return nil, iam.ErrBadCredentials()
		}
		if ssoT == nil {
			if err := s.policy.CheckSsoNotRequiredOrAuthProviderChangeActive(ctx, known); err != nil {
				return nil, err
			}
		}
		return known, nil
	}

	if ssoT == nil {
		if err := s.policy.CheckSsoNotRequired(ctx, identity.Email); err != nil {
			return nil, err
		}
	}

	existing, err := s.accounts.FindActive(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		change := providerchange.Request{
			UserID:      existing.ID,
			AccountType: accType,
			AuthType:    authType,
			AuthID:      identity.ID,
			TenantID:    tenantID,
		}
		if ssoT != nil {
			change.SSODomain = ssoT.Domain
		}
		if err := s.changes.Initiate(ctx, change); err != nil {
			return nil, err
		}
		s.audit.LogProviderChange(ctx, existing.ID, authType, "initiated")
		return nil, iam.ErrThirdPartySwitchInitiated()
	}

	inv, err := s.admission(ctx, invitationCode, ssoT)
	if err != nil {
		return nil, err
	}

	acc := account.NewThirdParty(identity.Email, identity.Name, accType, authType, identity.ID, tenantID)
	if err := s.create(ctx, acc, inv, string(authType), meta); err != nil {
		return nil, err
	}
	return acc, nil
}

// SsoAuthenticationURL returns where the browser must go to sign in with the
// tenant owning domain. state is echoed back on the callback.
func (s *AuthService) SsoAuthenticationURL(ctx context.Context, domain, state string) (string, error) {
	if state == "" {
		return "", auth.ErrInvalidRequest("missing state")
	}
	t, err := s.ssoTenant(ctx, domain)
	if err != nil {
		return "", err
	}
	return s.sso.AuthorizationURL(t, state, s.callbackURL(iam.AuthTypeSSO)), nil
}

func (s *AuthService) ssoTenant(ctx context.Context, domain string) (*tenant.Tenant, error) {
	domain = account.NormalizeUsername(domain)
	if domain == "" || s.sso == nil {
		return nil, iam.ErrSsoDomainNotFound()
	}
	t, err := s.tenants.FindByDomain(ctx, domain)
	if err != nil {
		return nil, errx.Wrap(err, "failed to resolve tenant", errx.TypeInternal).WithDetail("domain", domain)
	}
	if t == nil || !t.Enabled {
		return nil, iam.ErrSsoDomainNotFound().WithDetail("domain", domain)
	}
	return t, nil
}

func (s *AuthService) callbackURL(authType iam.AuthType) string {
	return s.cfg.FrontendURL + "/login/auth_callback/" + string(authType)
}
