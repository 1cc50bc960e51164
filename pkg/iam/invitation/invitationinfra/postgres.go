package invitationinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const invitationColumns = `
	id, code, email, tenant_id, status, invited_by,
	expires_at, accepted_at, accepted_by, created_at, updated_at`

// PostgresInvitationRepository implementación de PostgreSQL para InvitationRepository
type PostgresInvitationRepository struct {
	db *sqlx.DB
}

// NewPostgresInvitationRepository crea una nueva instancia del repositorio de invitaciones
func NewPostgresInvitationRepository(db *sqlx.DB) invitation.InvitationRepository {
	return &PostgresInvitationRepository{
		db: db,
	}
}

// FindByID busca una invitación por ID
func (r *PostgresInvitationRepository) FindByID(ctx context.Context, id string) (*invitation.Invitation, error) {
	query := `SELECT` + invitationColumns + ` FROM invitations WHERE id = $1`

	var inv invitation.Invitation
	err := r.db.GetContext(ctx, &inv, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invitation.ErrInvitationNotFound().WithDetail("invitation_id", id)
		}
		return nil, errx.Wrap(err, "failed to find invitation by id", errx.TypeInternal).
			WithDetail("invitation_id", id)
	}

	return &inv, nil
}

// FindByCode busca una invitación por código
func (r *PostgresInvitationRepository) FindByCode(ctx context.Context, code string) (*invitation.Invitation, error) {
	query := `SELECT` + invitationColumns + ` FROM invitations WHERE code = $1`

	var inv invitation.Invitation
	err := r.db.GetContext(ctx, &inv, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invitation.ErrInvitationNotFound()
		}
		return nil, errx.Wrap(err, "failed to find invitation by code", errx.TypeInternal)
	}

	return &inv, nil
}

// ExistsPendingForEmail verifica si existe una invitación pendiente para un email
func (r *PostgresInvitationRepository) ExistsPendingForEmail(ctx context.Context, email string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM invitations
			WHERE email = $1 AND status = 'PENDING' AND expires_at > NOW()
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, errx.Wrap(err, "failed to check pending invitation existence", errx.TypeInternal).
			WithDetail("email", email)
	}

	return exists, nil
}

// Save guarda o actualiza una invitación
func (r *PostgresInvitationRepository) Save(ctx context.Context, inv invitation.Invitation) error {
	query := `
		INSERT INTO invitations (` + invitationColumns + `)
		VALUES (
			:id, :code, :email, :tenant_id, :status, :invited_by,
			:expires_at, :accepted_at, :accepted_by, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			expires_at = EXCLUDED.expires_at,
			accepted_at = EXCLUDED.accepted_at,
			accepted_by = EXCLUDED.accepted_by,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, inv)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return invitation.ErrInvitationAlreadyExists().WithDetail("email", inv.Email)
		}
		return errx.Wrap(err, "failed to save invitation", errx.TypeInternal).
			WithDetail("invitation_id", inv.ID)
	}

	return nil
}

func (r *PostgresInvitationRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'PENDING' AND expires_at <= $1`, now)
	if err != nil {
		return 0, errx.Wrap(err, "failed to expire invitations", errx.TypeInternal)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	return rowsAffected, nil
}
