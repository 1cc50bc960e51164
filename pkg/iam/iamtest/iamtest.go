// Package iamtest provides in-memory repositories for tests of the iam
// packages.
package iamtest

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/Abraxas-365/lingua/pkg/iam/otp"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// ============================================================================
// Accounts
// ============================================================================

type Accounts struct {
	mu   sync.Mutex
	byID map[kernel.UserID]account.Account
}

func NewAccounts(accs ...*account.Account) *Accounts {
	r := &Accounts{byID: map[kernel.UserID]account.Account{}}
	for _, a := range accs {
		r.byID[a.ID] = *a
	}
	return r
}

func (r *Accounts) FindActive(_ context.Context, username string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	username = account.NormalizeUsername(username)
	for _, a := range r.byID {
		if a.Username == username && a.IsActive() {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *Accounts) FindByID(_ context.Context, id kernel.UserID) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, account.ErrAccountNotFound().WithDetail("user_id", id.String())
	}
	return &a, nil
}

func (r *Accounts) FindByThirdParty(_ context.Context, authType iam.AuthType, authID string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.DeletedAt == nil && a.UsesProvider(authType, authID) {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *Accounts) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	username = account.NormalizeUsername(username)
	for _, a := range r.byID {
		if a.Username == username && a.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *Accounts) Save(_ context.Context, acc account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.byID {
		if id != acc.ID && a.Username == acc.Username && a.DeletedAt == nil {
			return account.ErrAccountExists().WithDetail("username", acc.Username)
		}
	}
	r.byID[acc.ID] = acc
	return nil
}

// Get returns the stored account or nil.
func (r *Accounts) Get(id kernel.UserID) *account.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil
	}
	return &a
}

func (r *Accounts) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// ============================================================================
// Tenants
// ============================================================================

type Tenants struct {
	mu      sync.Mutex
	tenants []tenant.Tenant
}

func NewTenants(ts ...*tenant.Tenant) *Tenants {
	r := &Tenants{}
	for _, t := range ts {
		r.tenants = append(r.tenants, *t)
	}
	return r
}

func (r *Tenants) FindByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Domain == domain {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *Tenants) FindByID(_ context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound()
}

// ============================================================================
// Provider changes
// ============================================================================

type ProviderChanges struct {
	mu   sync.Mutex
	reqs map[kernel.UserID]providerchange.Request
}

func NewProviderChanges() *ProviderChanges {
	return &ProviderChanges{reqs: map[kernel.UserID]providerchange.Request{}}
}

func (r *ProviderChanges) Save(_ context.Context, req providerchange.Request, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs[req.UserID] = req
	return nil
}

func (r *ProviderChanges) Find(_ context.Context, userID kernel.UserID) (*providerchange.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[userID]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r *ProviderChanges) Delete(_ context.Context, userID kernel.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reqs, userID)
	return nil
}

// ============================================================================
// Invitations
// ============================================================================

type Invitations struct {
	mu   sync.Mutex
	byID map[string]invitation.Invitation
}

func NewInvitations(invs ...*invitation.Invitation) *Invitations {
	r := &Invitations{byID: map[string]invitation.Invitation{}}
	for _, inv := range invs {
		r.byID[inv.ID] = *inv
	}
	return r
}

func (r *Invitations) FindByID(_ context.Context, id string) (*invitation.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return nil, invitation.ErrInvitationNotFound()
	}
	return &inv, nil
}

func (r *Invitations) FindByCode(_ context.Context, code string) (*invitation.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.byID {
		if inv.Code == code {
			return &inv, nil
		}
	}
	return nil, invitation.ErrInvitationNotFound()
}

func (r *Invitations) ExistsPendingForEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, inv := range r.byID {
		if inv.Email == email && inv.CanBeAccepted(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Invitations) Save(_ context.Context, inv invitation.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[inv.ID] = inv
	return nil
}

func (r *Invitations) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, inv := range r.byID {
		if inv.Status == invitation.StatusPending && inv.IsExpired(now) {
			inv.Status = invitation.StatusExpired
			r.byID[id] = inv
			n++
		}
	}
	return n, nil
}

// ============================================================================
// OTP
// ============================================================================

type OTPs struct {
	mu    sync.Mutex
	codes map[string]otp.OTP
}

func NewOTPs() *OTPs {
	return &OTPs{codes: map[string]otp.OTP{}}
}

func otpKey(contact string, purpose otp.Purpose) string {
	return string(purpose) + ":" + contact
}

func (r *OTPs) Save(_ context.Context, o *otp.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[otpKey(o.Contact, o.Purpose)] = *o
	return nil
}

func (r *OTPs) GetLatest(_ context.Context, contact string, purpose otp.Purpose) (*otp.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.codes[otpKey(contact, purpose)]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *OTPs) Delete(_ context.Context, contact string, purpose otp.Purpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, otpKey(contact, purpose))
	return nil
}

func (r *OTPs) Consume(_ context.Context, contact string, purpose otp.Purpose, check func(*otp.OTP) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := otpKey(contact, purpose)
	o, ok := r.codes[k]
	if !ok {
		return otp.ErrOTPNotFound()
	}
	if err := check(&o); err != nil {
		r.codes[k] = o
		return err
	}
	delete(r.codes, k)
	return nil
}

// OTPOutbox records sent codes instead of delivering them.
type OTPOutbox struct {
	mu   sync.Mutex
	sent map[string]string
}

func NewOTPOutbox() *OTPOutbox {
	return &OTPOutbox{sent: map[string]string{}}
}

func (o *OTPOutbox) SendOTP(_ context.Context, contact string, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[contact] = code
	return nil
}

// Last returns the last code sent to contact.
func (o *OTPOutbox) Last(contact string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent[contact]
}

// ============================================================================
// Passwords
// ============================================================================

// PlainPasswords "hashes" by prefixing, so tests stay fast.
type PlainPasswords struct{}

func (PlainPasswords) Encode(raw string) (string, error) { return "plain:" + raw, nil }

func (PlainPasswords) Matches(raw, hash string) bool {
	return hash != "" && hash == "plain:"+raw
}
