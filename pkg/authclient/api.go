package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/lingua/pkg/errx"
)

// TokenResponse is returned by every endpoint that signs a user in.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OAuthRequest struct {
	Type           string
	Code           string
	RedirectURI    string
	InvitationCode string
	Domain         string
}

type SignUpRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	InvitationCode string `json:"invitationCode"`
}

// API is the part of the auth server the Coordinator talks to.
type API interface {
	GenerateToken(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	AuthorizeOAuth(ctx context.Context, req OAuthRequest) (*TokenResponse, error)
	SsoAuthenticationURL(ctx context.Context, domain, state string) (string, error)
	SignUp(ctx context.Context, req SignUpRequest) (*TokenResponse, error)
	AcceptInvitation(ctx context.Context, token, code string) error
}

// Configuration is the public server configuration.
type Configuration struct {
	AuthenticationRequired bool     `json:"authentication"`
	RegistrationsAllowed   bool     `json:"allowRegistrations"`
	NativeEnabled          bool     `json:"nativeEnabled"`
	OAuthProviders         []string `json:"oauthProviders"`
}

// User is the account behind a token.
type User struct {
	ID                 string  `json:"id"`
	Username           string  `json:"username"`
	Name               string  `json:"name"`
	AccountType        string  `json:"accountType"`
	ThirdPartyAuthType string  `json:"thirdPartyAuthType"`
	TenantID           *string `json:"tenantId"`
	IsAdmin            bool    `json:"isAdmin"`
	HasPassword        bool    `json:"hasPassword"`
	ImpersonatedBy     *string `json:"impersonatedBy"`
}

// HTTPAPI calls the auth server over HTTP.
type HTTPAPI struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAPI returns a client for the server at baseURL. A nil client uses
// one with a 30 second timeout.
func NewHTTPAPI(baseURL string, client *http.Client) *HTTPAPI {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (a *HTTPAPI) GenerateToken(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := a.do(ctx, http.MethodPost, "/api/public/generatetoken", "", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) AuthorizeOAuth(ctx context.Context, req OAuthRequest) (*TokenResponse, error) {
	q := url.Values{}
	q.Set("code", req.Code)
	if req.RedirectURI != "" {
		q.Set("redirect_uri", req.RedirectURI)
	}
	if req.InvitationCode != "" {
		q.Set("invitationCode", req.InvitationCode)
	}
	if req.Domain != "" {
		q.Set("domain", req.Domain)
	}

	var out TokenResponse
	path := "/api/public/authorize_oauth/" + url.PathEscape(req.Type)
	if err := a.do(ctx, http.MethodGet, path, "", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) SsoAuthenticationURL(ctx context.Context, domain, state string) (string, error) {
	var out struct {
		RedirectURL string `json:"redirectUrl"`
	}
	body := map[string]string{"domain": domain, "state": state}
	if err := a.do(ctx, http.MethodPost, "/api/public/authorize_oauth/sso/authentication-url", "", nil, body, &out); err != nil {
		return "", err
	}
	return out.RedirectURL, nil
}

func (a *HTTPAPI) SignUp(ctx context.Context, req SignUpRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := a.do(ctx, http.MethodPost, "/api/public/sign_up", "", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) AcceptInvitation(ctx context.Context, token, code string) error {
	return a.do(ctx, http.MethodGet, "/v2/invitations/"+url.PathEscape(code)+"/accept", token, nil, nil, nil)
}

func (a *HTTPAPI) Configuration(ctx context.Context) (*Configuration, error) {
	var out Configuration
	if err := a.do(ctx, http.MethodGet, "/api/public/configuration", "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) CurrentUser(ctx context.Context, token string) (*User, error) {
	var out User
	if err := a.do(ctx, http.MethodGet, "/v2/user", token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateSuperToken re-authenticates with a password, or with an emailed
// code when password is empty.
func (a *HTTPAPI) GenerateSuperToken(ctx context.Context, token, password, otp string) (*TokenResponse, error) {
	var out TokenResponse
	body := map[string]string{"password": password, "otp": otp}
	if err := a.do(ctx, http.MethodPost, "/v2/user/generate-super-token", token, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) SendSuperTokenOTP(ctx context.Context, token string) error {
	return a.do(ctx, http.MethodPost, "/v2/user/super-token/otp", token, nil, nil, nil)
}

// ImpersonationToken returns a token acting as userID. Admins only.
func (a *HTTPAPI) ImpersonationToken(ctx context.Context, token, userID string) (*TokenResponse, error) {
	var out TokenResponse
	path := "/v2/administration/users/" + url.PathEscape(userID) + "/generate-token"
	if err := a.do(ctx, http.MethodGet, path, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) AcceptProviderChange(ctx context.Context, token string) (*TokenResponse, error) {
	var out TokenResponse
	if err := a.do(ctx, http.MethodPost, "/v2/auth-provider/changed/accept", token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) RejectProviderChange(ctx context.Context, token string) error {
	return a.do(ctx, http.MethodDelete, "/v2/auth-provider/changed", token, nil, nil, nil)
}

func (a *HTTPAPI) do(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	target := a.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return ErrRegistry.NewWithCause(CodeRequestFailed, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return ErrRegistry.NewWithCause(CodeRequestFailed, err).WithDetail("path", path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return ErrRegistry.NewWithCause(CodeRequestFailed, err).WithDetail("path", path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ErrRegistry.NewWithCause(CodeRequestFailed, err).WithDetail("path", path)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return ErrRegistry.NewWithCause(CodeInvalidResponse, err).WithDetail("path", path)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body errx.Response
	if err := json.Unmarshal(raw, &body); err != nil || body.Code == "" {
		return &APIError{Status: status, Code: "unexpected_error_occurred", Message: http.StatusText(status)}
	}
	return &APIError{
		Status:    status,
		Code:      body.Code,
		Message:   body.Message,
		Params:    body.Params,
		Details:   body.Details,
		RequestID: body.RequestID,
	}
}
