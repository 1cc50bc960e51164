// Package authclient keeps the sign-in state of a lingua client: the session
// token, the administrator token during impersonation, pending step-up
// requests, the invitation code and the provider-change flag. It reacts to
// the structured error codes of the auth server the way the web app does.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/logx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Persisted keys.
const (
	KeyToken              = "jwtToken"
	KeyAdminToken         = "adminJwtToken"
	KeyInvitationCode     = "invitationCode"
	KeyAuthProviderChange = "authProviderChange"
	KeyOAuthState         = "oauth2State"
	KeySsoDomain          = "ssoDomain"
	KeyAfterLoginLink     = "afterLoginLink"
)

// Routes the coordinator navigates to.
const (
	PathAfterLogin                = "/"
	PathAcceptAuthProviderChange  = "/accept_auth_provider_change"
	PathOAuthCallbackPrefix       = "/login/auth_callback/"
	MessageSignUpSuccess          = "sign_up_success_message"
	authProviderChangeStoredValue = "true"
)

// Navigator moves the user around. Replace stays inside the app, Assign
// leaves it (for example to an identity provider).
type Navigator interface {
	Replace(path string)
	Assign(url string)
}

// InitialData is the cached server state that depends on who is signed in.
type InitialData interface {
	Invalidate(ctx context.Context) error
	Refetch(ctx context.Context) error
	// AuthenticationRequired reports whether the server refuses anonymous use.
	AuthenticationRequired() bool
}

// Messenger shows translated notifications.
type Messenger interface {
	Success(key string)
}

// SuperTokenAction is resumed once a step-up authentication finishes.
type SuperTokenAction struct {
	OnSuccess func()
	OnCancel  func()
}

// State is a snapshot of the coordinator.
type State struct {
	AllowPrivate       bool
	Token              string
	AdminToken         string
	SuperTokenNeeded   bool
	AllowRegistration  bool
	InvitationCode     string
	AuthProviderChange bool
}

type afterLoginLink struct {
	URL    string `json:"url"`
	UserID string `json:"userId,omitempty"`
}

type Coordinator struct {
	api       API
	storage   Storage
	navigator Navigator
	initial   InitialData
	messenger Messenger
	origin    string

	mu                sync.Mutex
	token             string
	userID            string
	superTokenAfter   []SuperTokenAction
	allowRegistration bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithNavigator(n Navigator) Option     { return func(c *Coordinator) { c.navigator = n } }
func WithInitialData(d InitialData) Option { return func(c *Coordinator) { c.initial = d } }
func WithMessenger(m Messenger) Option     { return func(c *Coordinator) { c.messenger = m } }

// WithOrigin sets the app origin used to build OAuth redirect URIs.
func WithOrigin(origin string) Option {
	return func(c *Coordinator) { c.origin = strings.TrimRight(origin, "/") }
}

// NewCoordinator restores the session kept in storage.
func NewCoordinator(api API, storage Storage, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:       api,
		storage:   storage,
		navigator: noopNavigator{},
		initial:   staticInitialData{},
		messenger: noopMessenger{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.token, _ = storage.Get(KeyToken)
	c.userID, _ = UserIDFromToken(c.token)
	code, _ := storage.Get(KeyInvitationCode)
	c.allowRegistration = code != ""
	return c
}

// State returns a consistent snapshot.
func (c *Coordinator) State() State {
	authRequired := c.initial.AuthenticationRequired()

	c.mu.Lock()
	defer c.mu.Unlock()

	admin, _ := c.storage.Get(KeyAdminToken)
	code, _ := c.storage.Get(KeyInvitationCode)
	return State{
		AllowPrivate:       c.token != "" || !authRequired,
		Token:              c.token,
		AdminToken:         admin,
		SuperTokenNeeded:   len(c.superTokenAfter) > 0,
		AllowRegistration:  c.allowRegistration,
		InvitationCode:     code,
		AuthProviderChange: c.GetAuthProviderChange(),
	}
}

// UserID is the subject of the current token, or "".
func (c *Coordinator) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// ============================================================================
// Sign in
// ============================================================================

// Login signs in with a username and password.
func (c *Coordinator) Login(ctx context.Context, req LoginRequest) error {
	resp, err := c.api.GenerateToken(ctx, req)
	if err != nil {
		c.handleLoginError(ctx, err, false)
		return err
	}
	return c.HandleAfterLogin(ctx, resp)
}

// LoginWithOAuthCode finishes an OAuth or SSO redirect with the code the
// identity provider returned.
func (c *Coordinator) LoginWithOAuthCode(ctx context.Context, authType, code, domain string) error {
	invitationCode, _ := c.storage.Get(KeyInvitationCode)
	resp, err := c.api.AuthorizeOAuth(ctx, OAuthRequest{
		Type:           authType,
		Code:           code,
		RedirectURI:    c.origin + PathOAuthCallbackPrefix + authType,
		InvitationCode: invitationCode,
		Domain:         domain,
	})
	if err != nil {
		c.handleLoginError(ctx, err, true)
		return err
	}

	if err := c.SetInvitationCode(""); err != nil {
		return err
	}
	return c.HandleAfterLogin(ctx, resp)
}

// LoginWithSsoCallback checks the state echoed by the identity provider
// against the one stored by LoginRedirectSso before exchanging the code.
func (c *Coordinator) LoginWithSsoCallback(ctx context.Context, code, state string) error {
	stored, _ := c.storage.Get(KeyOAuthState)
	if stored == "" || stored != state {
		return ErrInvalidSsoState()
	}
	if err := c.storage.Remove(KeyOAuthState); err != nil {
		return err
	}
	return c.LoginWithOAuthCode(ctx, string(iam.AuthTypeSSO), code, c.GetLastSsoDomain())
}

// LoginRedirectSso sends the user to the identity provider of domain.
func (c *Coordinator) LoginRedirectSso(ctx context.Context, domain string) error {
	if err := c.storage.Set(KeySsoDomain, domain); err != nil {
		return err
	}
	state := uuid.NewString()
	if err := c.storage.Set(KeyOAuthState, state); err != nil {
		return err
	}

	redirectURL, err := c.api.SsoAuthenticationURL(ctx, domain, state)
	if err != nil {
		return err
	}
	c.navigator.Assign(redirectURL)
	return nil
}

// GetLastSsoDomain returns the domain of the last SSO redirect.
func (c *Coordinator) GetLastSsoDomain() string {
	domain, _ := c.storage.Get(KeySsoDomain)
	return domain
}

// SignUp registers a local account with the stored invitation code.
func (c *Coordinator) SignUp(ctx context.Context, req SignUpRequest) error {
	req.InvitationCode, _ = c.storage.Get(KeyInvitationCode)
	resp, err := c.api.SignUp(ctx, req)
	if err != nil {
		if errx.HasCode(err, iam.CodeInvitationInvalidOrExpired) {
			if clearErr := c.SetInvitationCode(""); clearErr != nil {
				logx.WithContext(ctx).WithError(clearErr).Warn("authclient: failed to clear invitation code")
			}
		}
		return err
	}

	if err := c.SetInvitationCode(""); err != nil {
		return err
	}
	if err := c.HandleAfterLogin(ctx, resp); err != nil {
		return err
	}
	c.messenger.Success(MessageSignUpSuccess)
	return nil
}

// handleLoginError reacts to the codes a sign-in may fail with. The error is
// still returned to the caller.
func (c *Coordinator) handleLoginError(ctx context.Context, err error, clearInvitation bool) {
	log := logx.WithContext(ctx).WithField("code", errx.CodeOf(err))

	if errx.HasCode(err, iam.CodeThirdPartySwitchInitiated) {
		if setErr := c.SetAuthProviderChange(true); setErr != nil {
			log.WithError(setErr).Warn("authclient: failed to store provider change flag")
		}
	}
	if clearInvitation && errx.HasCode(err, iam.CodeInvitationInvalidOrExpired) {
		if setErr := c.SetInvitationCode(""); setErr != nil {
			log.WithError(setErr).Warn("authclient: failed to clear invitation code")
		}
	}
	if errx.HasCode(err, iam.CodeSsoLoginForced) {
		var apiErr *APIError
		domain := ""
		if errors.As(err, &apiErr) {
			domain = apiErr.Param(0)
		}
		if redirectErr := c.LoginRedirectSso(ctx, domain); redirectErr != nil {
			log.WithError(redirectErr).Warn("authclient: SSO redirect failed")
		}
	}
}

// HandleAfterLogin stores the new token, accepts a pending invitation and
// then switches the session to the token.
func (c *Coordinator) HandleAfterLogin(ctx context.Context, resp *TokenResponse) error {
	if resp == nil || resp.AccessToken == "" {
		return ErrRegistry.New(CodeInvalidResponse).WithDetail("reason", "empty access token")
	}
	if err := c.storage.Set(KeyToken, resp.AccessToken); err != nil {
		return err
	}

	c.acceptPendingInvitation(ctx, resp.AccessToken)

	if _, err := UserIDFromToken(resp.AccessToken); err != nil {
		logx.WithContext(ctx).WithError(err).Warn("authclient: token has no readable subject")
	}
	return c.setToken(ctx, resp.AccessToken)
}

// acceptPendingInvitation never fails the login. The stored code is consumed
// either way.
func (c *Coordinator) acceptPendingInvitation(ctx context.Context, token string) {
	code, _ := c.storage.Get(KeyInvitationCode)
	if code == "" {
		return
	}
	if err := c.api.AcceptInvitation(ctx, token, code); err != nil {
		logx.WithContext(ctx).WithError(err).Info("authclient: invitation was not accepted")
	}
	if err := c.SetInvitationCode(""); err != nil {
		logx.WithContext(ctx).WithError(err).Warn("authclient: failed to clear invitation code")
	}
}

// ============================================================================
// Navigation
// ============================================================================

// RedirectAfterLogin goes to the provider change confirmation when one is
// pending, else to the saved link if it belongs to this user.
func (c *Coordinator) RedirectAfterLogin() {
	var target string
	if c.GetAuthProviderChange() {
		target = PathAcceptAuthProviderChange
	} else {
		target = c.redirectURL()
	}
	c.navigator.Replace(target)
	if err := c.storage.Remove(KeyAfterLoginLink); err != nil {
		logx.WithError(err).Warn("authclient: failed to remove after-login link")
	}
}

func (c *Coordinator) redirectURL() string {
	raw, ok := c.storage.Get(KeyAfterLoginLink)
	if !ok || raw == "" {
		return PathAfterLogin
	}
	var link afterLoginLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return PathAfterLogin
	}
	userID := c.UserID()
	if link.URL != "" && (link.UserID == "" || link.UserID == userID) {
		return link.URL
	}
	return PathAfterLogin
}

// SaveAfterLoginLink remembers where to go after the next sign-in.
func (c *Coordinator) SaveAfterLoginLink(url string) error {
	data, err := json.Marshal(afterLoginLink{URL: url, UserID: c.UserID()})
	if err != nil {
		return ErrRegistry.NewWithCause(CodeStorageFailed, err)
	}
	return c.storage.Set(KeyAfterLoginLink, string(data))
}

// RedirectTo always lands on the after-login page; url is ignored.
func (c *Coordinator) RedirectTo(url string) {
	c.navigator.Replace(PathAfterLogin)
}

// ============================================================================
// Session
// ============================================================================

func (c *Coordinator) Logout(ctx context.Context) error {
	return c.setToken(ctx, "")
}

// setToken updates the token state and storage together. Signing in or out
// invalidates the initial data, swapping tokens only refetches it.
func (c *Coordinator) setToken(ctx context.Context, token string) error {
	userID, _ := UserIDFromToken(token)

	c.mu.Lock()
	var err error
	if token == "" {
		err = c.storage.Remove(KeyToken)
	} else {
		err = c.storage.Set(KeyToken, token)
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	hadToken := c.token != ""
	c.token = token
	c.userID = userID
	c.mu.Unlock()

	if hadToken != (token != "") {
		return c.initial.Invalidate(ctx)
	}
	return c.initial.Refetch(ctx)
}

// WaitForSuperToken queues action until a step-up authentication finishes.
func (c *Coordinator) WaitForSuperToken(action SuperTokenAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.superTokenAfter = append(c.superTokenAfter, action)
}

// SuperTokenRequestCancel cancels every queued action.
func (c *Coordinator) SuperTokenRequestCancel() {
	for _, a := range c.takeSuperTokenQueue() {
		if a.OnCancel != nil {
			a.OnCancel()
		}
	}
}

// SuperTokenRequestSuccess switches to the elevated token and resumes the
// actions queued so far.
func (c *Coordinator) SuperTokenRequestSuccess(ctx context.Context, token string) error {
	err := c.setToken(ctx, token)
	for _, a := range c.takeSuperTokenQueue() {
		if a.OnSuccess != nil {
			a.OnSuccess()
		}
	}
	return err
}

func (c *Coordinator) takeSuperTokenQueue() []SuperTokenAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.superTokenAfter
	c.superTokenAfter = nil
	return queue
}

// DebugCustomerAccount acts as a customer while keeping the administrator
// token aside. Nested calls keep the first administrator token.
func (c *Coordinator) DebugCustomerAccount(ctx context.Context, customerToken string) error {
	c.mu.Lock()
	adminToken := c.token
	c.mu.Unlock()

	if current, _ := c.storage.Get(KeyAdminToken); current == "" {
		if err := c.storage.Set(KeyAdminToken, adminToken); err != nil {
			return err
		}
	}
	return c.setToken(ctx, customerToken)
}

// ExitDebugCustomerAccount restores the administrator token.
func (c *Coordinator) ExitDebugCustomerAccount(ctx context.Context) error {
	adminToken, _ := c.storage.Get(KeyAdminToken)
	if err := c.setToken(ctx, adminToken); err != nil {
		return err
	}
	return c.storage.Remove(KeyAdminToken)
}

// ============================================================================
// Flags
// ============================================================================

// SetInvitationCode stores code; an empty code removes it. A code also opens
// registration.
func (c *Coordinator) SetInvitationCode(code string) error {
	if code == "" {
		return c.storage.Remove(KeyInvitationCode)
	}
	if err := c.storage.Set(KeyInvitationCode, code); err != nil {
		return err
	}
	c.mu.Lock()
	c.allowRegistration = true
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) SetAuthProviderChange(pending bool) error {
	value := "false"
	if pending {
		value = authProviderChangeStoredValue
	}
	return c.storage.Set(KeyAuthProviderChange, value)
}

func (c *Coordinator) GetAuthProviderChange() bool {
	v, _ := c.storage.Get(KeyAuthProviderChange)
	return v == authProviderChangeStoredValue
}

// UserIDFromToken reads the subject of a JWT without verifying it. The server
// verifies tokens; the client only needs to know whose token it holds.
func UserIDFromToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", ErrRegistry.NewWithCause(CodeInvalidResponse, err).WithDetail("reason", "malformed token")
	}
	return claims.Subject, nil
}

type noopNavigator struct{}

func (noopNavigator) Replace(string) {}
func (noopNavigator) Assign(string)  {}

type noopMessenger struct{}

func (noopMessenger) Success(string) {}

// staticInitialData is used when the caller has nothing to refresh.
type staticInitialData struct{}

func (staticInitialData) Invalidate(context.Context) error { return nil }
func (staticInitialData) Refetch(context.Context) error    { return nil }
func (staticInitialData) AuthenticationRequired() bool     { return true }
