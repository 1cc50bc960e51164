package authinfra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdP struct {
	*httptest.Server
	mu     sync.Mutex
	user   map[string]any
	emails []map[string]any
}

func (idp *fakeIdP) setUser(user map[string]any) {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	idp.user = user
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		idp.mu.Lock()
		defer idp.mu.Unlock()
		_ = json.NewEncoder(w).Encode(idp.user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		idp.mu.Lock()
		defer idp.mu.Unlock()
		_ = json.NewEncoder(w).Encode(idp.emails)
	})
	idp.Server = httptest.NewServer(mux)
	t.Cleanup(idp.Close)
	return idp
}

func (idp *fakeIdP) providerConfig() config.ProviderConfig {
	return config.ProviderConfig{
		Enabled:      true,
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      idp.URL + "/authorize",
		TokenURL:     idp.URL + "/token",
		UserInfoURL:  idp.URL + "/user",
	}
}

func TestGenericProviderExchange(t *testing.T) {
	idp := newFakeIdP(t)
	idp.setUser(map[string]any{"sub": "abc", "email": "Ana@Example.com", "given_name": "Ana", "family_name": "Lopez"})

	p := NewGenericProvider(idp.providerConfig())
	assert.Equal(t, iam.AuthTypeOAuth2, p.Type())

	id, err := p.Exchange(context.Background(), "good", "https://app.example.com/cb")
	require.NoError(t, err)
	assert.Equal(t, &auth.ExternalIdentity{ID: "abc", Email: "ana@example.com", Name: "Ana Lopez"}, id)
}

func TestGitHubProviderFallsBackToEmails(t *testing.T) {
	idp := newFakeIdP(t)
	idp.setUser(map[string]any{"id": 42, "login": "ana", "email": nil})
	idp.mu.Lock()
	idp.emails = []map[string]any{
		{"email": "old@example.com", "primary": false, "verified": true},
		{"email": "ana@example.com", "primary": true, "verified": true},
	}
	idp.mu.Unlock()

	p := NewGitHubProvider(idp.providerConfig())
	id, err := p.Exchange(context.Background(), "good", "")
	require.NoError(t, err)
	assert.Equal(t, "42", id.ID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.Equal(t, "ana", id.Name)
}

func TestExchangeFailures(t *testing.T) {
	idp := newFakeIdP(t)
	p := NewGoogleProvider(idp.providerConfig())

	t.Run("missing code", func(t *testing.T) {
		_, err := p.Exchange(context.Background(), "", "")
		assert.True(t, errx.HasCode(err, auth.CodeInvalidRequest))
	})

	t.Run("rejected code", func(t *testing.T) {
		_, err := p.Exchange(context.Background(), "bad", "")
		assert.True(t, errx.HasCode(err, auth.CodeOAuthExchangeFailed))
	})

	t.Run("no email", func(t *testing.T) {
		idp.setUser(map[string]any{"sub": "abc"})
		_, err := p.Exchange(context.Background(), "good", "")
		assert.True(t, errx.HasCode(err, iam.CodeThirdPartyEmailMissing))
	})

	t.Run("no subject", func(t *testing.T) {
		idp.setUser(map[string]any{"email": "ana@example.com"})
		_, err := p.Exchange(context.Background(), "good", "")
		assert.True(t, errx.HasCode(err, iam.CodeThirdPartyAuthFailed))
	})
}

func TestTenantSsoProvider(t *testing.T) {
	idp := newFakeIdP(t)
	idp.setUser(map[string]any{"sub": "u-1", "email": "ana@acme.com", "name": "Ana"})
	tn := &tenant.Tenant{
		Domain:           "acme.com",
		ClientID:         "acme-client",
		ClientSecret:     "acme-secret",
		AuthorizationURI: idp.URL + "/authorize",
		TokenURI:         idp.URL + "/token",
		UserInfoURI:      idp.URL + "/user",
		Enabled:          true,
	}
	p := NewTenantSsoProvider()

	raw := p.AuthorizationURL(tn, "state-1", "https://app.example.com/login/auth_callback/sso")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "acme-client", u.Query().Get("client_id"))
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "https://app.example.com/login/auth_callback/sso", u.Query().Get("redirect_uri"))

	id, err := p.Exchange(context.Background(), tn, "good", "https://app.example.com/login/auth_callback/sso")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.ID)
	assert.Equal(t, "ana@acme.com", id.Email)
}
