package invitation

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRevoked  Status = "REVOKED"
	StatusExpired  Status = "EXPIRED"
)

// Invitation lets a person join without open registrations. The Code is
// the bearer secret the invitee carries through sign-up or OAuth login.
type Invitation struct {
	ID         string           `db:"id" json:"id"`
	Code       string           `db:"code" json:"code"`
	Email      string           `db:"email" json:"email"`
	TenantID   *kernel.TenantID `db:"tenant_id" json:"tenantId,omitempty"`
	Status     Status           `db:"status" json:"status"`
	InvitedBy  kernel.UserID    `db:"invited_by" json:"invitedBy"`
	ExpiresAt  time.Time        `db:"expires_at" json:"expiresAt"`
	AcceptedAt *time.Time       `db:"accepted_at" json:"acceptedAt,omitempty"`
	AcceptedBy *kernel.UserID   `db:"accepted_by" json:"acceptedBy,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updatedAt"`
}

// New creates a pending invitation valid for ttl.
func New(email string, tenantID *kernel.TenantID, invitedBy kernel.UserID, ttl time.Duration) (*Invitation, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Invitation{
		ID:        uuid.NewString(),
		Code:      code,
		Email:     email,
		TenantID:  tenantID,
		Status:    StatusPending,
		InvitedBy: invitedBy,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// CanBeAccepted reports whether the code is still redeemable.
func (i *Invitation) CanBeAccepted(now time.Time) bool {
	return i.Status == StatusPending && !i.IsExpired(now)
}

// Accept marks the invitation as used by userID.
func (i *Invitation) Accept(userID kernel.UserID, now time.Time) {
	i.Status = StatusAccepted
	i.AcceptedAt = &now
	i.AcceptedBy = &userID
	i.UpdatedAt = now
}

func (i *Invitation) Revoke(now time.Time) {
	i.Status = StatusRevoked
	i.UpdatedAt = now
}

// GenerateCode returns 32 random bytes, URL-safe encoded.
func GenerateCode() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
