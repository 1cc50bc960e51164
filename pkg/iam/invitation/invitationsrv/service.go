package invitationsrv

import (
	"context"
	"net/mail"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/Abraxas-365/lingua/pkg/jobx"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/Abraxas-365/lingua/pkg/logx"
)

const (
	// JobTypeSendInvitation delivers the invitation email.
	JobTypeSendInvitation = "invitation.send"
	mailQueue             = "mail"
)

type sendInvitationPayload struct {
	InvitationID string `json:"invitation_id"`
	InviterName  string `json:"inviter_name"`
}

type InvitationService struct {
	invitationRepo invitation.InvitationRepository
	accountRepo    account.Repository
	jobs           jobx.JobEnqueuer
	mailer         invitation.Mailer
	ttl            time.Duration
	now            func() time.Time
}

func NewInvitationService(
	invitationRepo invitation.InvitationRepository,
	accountRepo account.Repository,
	jobs jobx.JobEnqueuer,
	mailer invitation.Mailer,
	cfg config.InvitationConfig,
) *InvitationService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &InvitationService{
		invitationRepo: invitationRepo,
		accountRepo:    accountRepo,
		jobs:           jobs,
		mailer:         mailer,
		ttl:            ttl,
		now:            time.Now,
	}
}

// CreateInvitation stores a pending invitation in the inviter's tenant and
// queues its email.
func (s *InvitationService) CreateInvitation(ctx context.Context, inviter *kernel.AuthContext, email string) (*invitation.Invitation, error) {
	email = account.NormalizeUsername(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errx.Wrap(err, "invalid email", errx.TypeValidation).WithDetail("email", email)
	}

	exists, err := s.accountRepo.ExistsByUsername(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, iam.ErrUsernameAlreadyExists()
	}

	pending, err := s.invitationRepo.ExistsPendingForEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, invitation.ErrInvitationAlreadyExists().WithDetail("email", email)
	}

	var tenantID *kernel.TenantID
	if !inviter.TenantID.IsEmpty() {
		tid := inviter.TenantID
		tenantID = &tid
	}

	inv, err := invitation.New(email, tenantID, inviter.UserID, s.ttl)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate invitation code", errx.TypeInternal)
	}
	if err := s.invitationRepo.Save(ctx, *inv); err != nil {
		return nil, errx.Wrap(err, "failed to save invitation", errx.TypeInternal)
	}

	job, err := jobx.NewJob(JobTypeSendInvitation, mailQueue, sendInvitationPayload{
		InvitationID: inv.ID,
		InviterName:  inviter.Name,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, errx.Wrap(err, "failed to queue invitation email", errx.TypeInternal).
			WithDetail("invitation_id", inv.ID)
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"invitation_id": inv.ID,
		"email":         email,
	}).Info("Invitation created")
	return inv, nil
}

// ValidateCode returns the invitation when code can still be redeemed.
// Unknown, used, revoked and expired codes all fail with
// invitation_code_does_not_exist_or_expired.
func (s *InvitationService) ValidateCode(ctx context.Context, code string) (*invitation.Invitation, error) {
	if code == "" {
		return nil, iam.ErrInvitationInvalidOrExpired()
	}
	inv, err := s.invitationRepo.FindByCode(ctx, code)
	if err != nil {
		if errx.HasCode(err, invitation.CodeInvitationNotFound) {
			return nil, iam.ErrInvitationInvalidOrExpired()
		}
		return nil, err
	}
	if !inv.CanBeAccepted(s.now()) {
		return nil, iam.ErrInvitationInvalidOrExpired()
	}
	return inv, nil
}

// AcceptInvitation redeems code for userID. An account without a tenant
// joins the invitation's tenant.
func (s *InvitationService) AcceptInvitation(ctx context.Context, code string, userID kernel.UserID) (*invitation.Invitation, error) {
	inv, err := s.ValidateCode(ctx, code)
	if err != nil {
		return nil, err
	}

	acc, err := s.accountRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if inv.TenantID != nil && acc.TenantID == nil {
		acc.TenantID = inv.TenantID
		acc.UpdatedAt = s.now()
		if err := s.accountRepo.Save(ctx, *acc); err != nil {
			return nil, errx.Wrap(err, "failed to assign tenant", errx.TypeInternal)
		}
	}

	inv.Accept(userID, s.now())
	if err := s.invitationRepo.Save(ctx, *inv); err != nil {
		return nil, errx.Wrap(err, "failed to save invitation", errx.TypeInternal)
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"invitation_id": inv.ID,
		"user_id":       userID,
	}).Info("Invitation accepted")
	return inv, nil
}

// RevokeInvitation cancels a pending invitation of the caller's tenant.
func (s *InvitationService) RevokeInvitation(ctx context.Context, caller *kernel.AuthContext, id string) error {
	inv, err := s.invitationRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.InvitedBy != caller.UserID && !caller.IsAdmin() {
		return iam.ErrAccessDenied()
	}
	if inv.Status != invitation.StatusPending {
		return iam.ErrInvitationInvalidOrExpired()
	}
	inv.Revoke(s.now())
	return s.invitationRepo.Save(ctx, *inv)
}

// ExpireOverdue marks stale pending invitations as expired.
func (s *InvitationService) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.invitationRepo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, errx.Wrap(err, "failed to expire invitations", errx.TypeInternal)
	}
	if n > 0 {
		logx.WithField("count", n).Info("Expired overdue invitations")
	}
	return n, nil
}

// RunExpirySweeper calls ExpireOverdue every interval until ctx is done.
func (s *InvitationService) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireOverdue(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				logx.WithError(err).Warn("Invitation sweep failed")
			}
		}
	}
}

// RegisterJobs binds the invitation email handler to the worker.
func (s *InvitationService) RegisterJobs(c *jobx.Client) {
	jobx.Handle(c, JobTypeSendInvitation, s.deliver)
}

func (s *InvitationService) deliver(ctx context.Context, payload sendInvitationPayload) error {
	inv, err := s.invitationRepo.FindByID(ctx, payload.InvitationID)
	if err != nil {
		if errx.HasCode(err, invitation.CodeInvitationNotFound) {
			logx.WithField("invitation_id", payload.InvitationID).Warn("Invitation vanished before delivery")
			return nil
		}
		return err
	}
	if !inv.CanBeAccepted(s.now()) {
		return nil
	}
	return s.mailer.SendInvitation(ctx, inv, payload.InviterName)
}
