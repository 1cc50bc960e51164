package invitation

import (
	"context"
	"time"
)

// InvitationRepository define el contrato para la persistencia de invitaciones
type InvitationRepository interface {
	// FindByID busca una invitación por ID
	FindByID(ctx context.Context, id string) (*Invitation, error)

	// FindByCode busca una invitación por código
	FindByCode(ctx context.Context, code string) (*Invitation, error)

	// ExistsPendingForEmail verifica si existe una invitación pendiente para un email
	ExistsPendingForEmail(ctx context.Context, email string) (bool, error)

	// Save guarda o actualiza una invitación
	Save(ctx context.Context, inv Invitation) error

	// ExpireOverdue marks pending invitations past their expiry as EXPIRED
	// and returns how many changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// Mailer delivers the invitation link to the invitee.
type Mailer interface {
	SendInvitation(ctx context.Context, inv *Invitation, inviterName string) error
}
