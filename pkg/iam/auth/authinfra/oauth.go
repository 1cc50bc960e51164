package authinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	githubUserURL   = "https://api.github.com/user"
	googleUserURL   = "https://openidconnect.googleapis.com/v1/userinfo"
	maxUserInfoSize = 1 << 20
)

// identityParser turns a user-info response into an identity. client is
// already authorized with the exchanged token.
type identityParser func(ctx context.Context, client *http.Client, userInfoURL string, body []byte) (*auth.ExternalIdentity, error)

// OAuth2Provider implements auth.OAuthProvider for a globally configured
// provider.
type OAuth2Provider struct {
	authType    iam.AuthType
	config      oauth2.Config
	userInfoURL string
	parse       identityParser
}

// NewGitHubProvider uses GitHub's endpoints unless cfg overrides them.
func NewGitHubProvider(cfg config.ProviderConfig) *OAuth2Provider {
	return newProvider(iam.AuthTypeGitHub, cfg, endpoints.GitHub, githubUserURL, []string{"read:user", "user:email"}, parseGitHub)
}

// NewGoogleProvider uses Google's endpoints unless cfg overrides them.
func NewGoogleProvider(cfg config.ProviderConfig) *OAuth2Provider {
	return newProvider(iam.AuthTypeGoogle, cfg, endpoints.Google, googleUserURL, []string{"openid", "email", "profile"}, parseStandard)
}

// NewGenericProvider requires every endpoint in cfg.
func NewGenericProvider(cfg config.ProviderConfig) *OAuth2Provider {
	return newProvider(iam.AuthTypeOAuth2, cfg, oauth2.Endpoint{}, "", []string{"openid", "email", "profile"}, parseStandard)
}

func newProvider(authType iam.AuthType, cfg config.ProviderConfig, endpoint oauth2.Endpoint, userInfoURL string, scopes []string, parse identityParser) *OAuth2Provider {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if cfg.UserInfoURL != "" {
		userInfoURL = cfg.UserInfoURL
	}
	if len(cfg.Scopes) > 0 {
		scopes = cfg.Scopes
	}
	return &OAuth2Provider{
		authType: authType,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		parse:       parse,
	}
}

func (p *OAuth2Provider) Type() iam.AuthType { return p.authType }

func (p *OAuth2Provider) Exchange(ctx context.Context, code, redirectURI string) (*auth.ExternalIdentity, error) {
	conf := p.config
	conf.RedirectURL = redirectURI
	return exchange(ctx, &conf, code, p.userInfoURL, p.parse)
}

// TenantSsoProvider implements auth.SsoProvider with the endpoints stored on
// each tenant.
type TenantSsoProvider struct {
	scopes []string
}

func NewTenantSsoProvider() *TenantSsoProvider {
	return &TenantSsoProvider{scopes: []string{"openid", "email", "profile"}}
}

func (p *TenantSsoProvider) oauthConfig(t *tenant.Tenant, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     t.ClientID,
		ClientSecret: t.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       p.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  t.AuthorizationURI,
			TokenURL: t.TokenURI,
		},
	}
}

func (p *TenantSsoProvider) AuthorizationURL(t *tenant.Tenant, state, redirectURI string) string {
	return p.oauthConfig(t, redirectURI).AuthCodeURL(state)
}

func (p *TenantSsoProvider) Exchange(ctx context.Context, t *tenant.Tenant, code, redirectURI string) (*auth.ExternalIdentity, error) {
	return exchange(ctx, p.oauthConfig(t, redirectURI), code, t.UserInfoURI, parseStandard)
}

func exchange(ctx context.Context, conf *oauth2.Config, code, userInfoURL string, parse identityParser) (*auth.ExternalIdentity, error) {
	if code == "" {
		return nil, auth.ErrInvalidRequest("missing authorization code")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, auth.ErrOAuthExchangeFailed().WithCause(err)
	}

	client := conf.Client(ctx, token)
	body, err := getJSON(ctx, client, userInfoURL)
	if err != nil {
		return nil, err
	}

	identity, err := parse(ctx, client, userInfoURL, body)
	if err != nil {
		return nil, err
	}
	if identity.ID == "" {
		return nil, iam.ErrThirdPartyAuthFailed().WithDetail("reason", "identity provider returned no subject")
	}
	if identity.Email == "" {
		return nil, iam.ErrThirdPartyEmailMissing()
	}
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	if identity.Name == "" {
		identity.Name, _, _ = strings.Cut(identity.Email, "@")
	}
	return identity, nil
}

func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errx.Wrap(err, "failed to build user info request", errx.TypeInternal)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, iam.ErrThirdPartyAuthFailed().WithCause(err).WithDetail("stage", "userinfo")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return nil, iam.ErrThirdPartyAuthFailed().WithCause(err).WithDetail("stage", "userinfo")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, iam.ErrThirdPartyAuthFailed().
			WithCause(fmt.Errorf("user info returned %d", resp.StatusCode)).
			WithDetail("stage", "userinfo")
	}
	return body, nil
}

// parseStandard reads OpenID Connect style user info.
func parseStandard(_ context.Context, _ *http.Client, _ string, body []byte) (*auth.ExternalIdentity, error) {
	var info struct {
		Sub        string `json:"sub"`
		ID         any    `json:"id"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, iam.ErrThirdPartyAuthFailed().WithCause(err).WithDetail("stage", "userinfo")
	}

	id := info.Sub
	if id == "" {
		id = stringID(info.ID)
	}
	name := info.Name
	if name == "" {
		name = strings.TrimSpace(info.GivenName + " " + info.FamilyName)
	}
	return &auth.ExternalIdentity{ID: id, Email: info.Email, Name: name}, nil
}

// parseGitHub falls back to the emails endpoint when the profile email is
// private.
func parseGitHub(ctx context.Context, client *http.Client, userInfoURL string, body []byte) (*auth.ExternalIdentity, error) {
	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, iam.ErrThirdPartyAuthFailed().WithCause(err).WithDetail("stage", "userinfo")
	}

	identity := &auth.ExternalIdentity{Email: user.Email, Name: user.Name}
	if user.ID != 0 {
		identity.ID = strconv.FormatInt(user.ID, 10)
	}
	if identity.Name == "" {
		identity.Name = user.Login
	}
	if identity.Email != "" {
		return identity, nil
	}

	emailsBody, err := getJSON(ctx, client, strings.TrimSuffix(userInfoURL, "/")+"/emails")
	if err != nil {
		return nil, err
	}
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(emailsBody, &emails); err != nil {
		return nil, iam.ErrThirdPartyAuthFailed().WithCause(err).WithDetail("stage", "emails")
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			identity.Email = e.Email
			break
		}
	}
	return identity, nil
}

func stringID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
