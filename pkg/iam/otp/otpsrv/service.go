package otpsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/otp"
	"github.com/Abraxas-365/lingua/pkg/logx"
	"github.com/google/uuid"
)

// resendInterval is the minimum time between two codes for one contact.
const resendInterval = time.Minute

type OTPService struct {
	repo                otp.Repository
	notificationService otp.NotificationService
	cfg                 config.OTPConfig
	now                 func() time.Time
}

func NewOTPService(repo otp.Repository, notificationService otp.NotificationService, cfg config.OTPConfig) *OTPService {
	return &OTPService{
		repo:                repo,
		notificationService: notificationService,
		cfg:                 cfg,
		now:                 time.Now,
	}
}

// GenerateOTP creates a code for contact, replacing any previous one, and
// sends it.
func (s *OTPService) GenerateOTP(ctx context.Context, contact string, purpose otp.Purpose) (*otp.OTP, error) {
	now := s.now()

	existing, err := s.repo.GetLatest(ctx, contact, purpose)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsUsable(now) && now.Sub(existing.CreatedAt) < resendInterval {
		return nil, otp.ErrTooManyRequests().WithDetail("retry_after", resendInterval.String())
	}

	code, err := otp.GenerateCode(s.cfg.Length)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate OTP code", errx.TypeInternal)
	}

	newOTP := &otp.OTP{
		ID:          uuid.NewString(),
		Contact:     contact,
		Code:        code,
		Purpose:     purpose,
		ExpiresAt:   now.Add(s.cfg.TTL),
		MaxAttempts: s.cfg.MaxAttempts,
		CreatedAt:   now,
	}
	if err := s.repo.Save(ctx, newOTP); err != nil {
		return nil, errx.Wrap(err, "failed to save OTP", errx.TypeInternal)
	}

	if err := s.notificationService.SendOTP(ctx, contact, code); err != nil {
		return nil, errx.Wrap(err, "failed to send OTP", errx.TypeExternal)
	}

	logx.WithFields(logx.Fields{"otp_id": newOTP.ID, "purpose": purpose}).Info("OTP issued")
	return newOTP, nil
}

// VerifyOTP consumes code. Every failure that is not a rate limit is
// reported as invalid_otp_code.
func (s *OTPService) VerifyOTP(ctx context.Context, contact string, purpose otp.Purpose, code string) error {
	now := s.now()
	err := s.repo.Consume(ctx, contact, purpose, func(current *otp.OTP) error {
		return current.Check(code, now)
	})
	switch {
	case err == nil:
		return nil
	case errx.HasCode(err, otp.CodeTooManyAttempts):
		return err
	case errx.HasCode(err, otp.CodeOTPNotFound),
		errx.HasCode(err, otp.CodeOTPMismatch),
		errx.HasCode(err, otp.CodeOTPExpired),
		errx.HasCode(err, otp.CodeOTPAlreadyUsed):
		return iam.ErrInvalidOTP().WithCause(err)
	default:
		return errx.Wrap(err, "failed to verify OTP", errx.TypeInternal)
	}
}
