package providerchange

import (
	"context"
	"time"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/Abraxas-365/lingua/pkg/logx"
)

// Service manages the lifecycle of provider change requests.
type Service struct {
	repo     Repository
	accounts account.Repository
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo Repository, accounts account.Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, accounts: accounts, ttl: ttl, now: time.Now}
}

// Initiate replaces any pending request of the user.
func (s *Service) Initiate(ctx context.Context, req Request) error {
	now := s.now()
	req.CreatedAt = now
	req.ExpiresAt = now.Add(s.ttl)
	if err := s.repo.Save(ctx, req, s.ttl); err != nil {
		return errx.Wrap(err, "failed to store provider change", errx.TypeInternal)
	}

	logx.WithFields(logx.Fields{
		"user_id":   req.UserID,
		"auth_type": req.AuthType,
	}).Info("Authentication provider change initiated")
	return nil
}

// Get returns the pending request of the user, or nil.
func (s *Service) Get(ctx context.Context, userID kernel.UserID) (*Request, error) {
	req, err := s.repo.Find(ctx, userID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to load provider change", errx.TypeInternal)
	}
	if req == nil || req.IsExpired(s.now()) {
		return nil, nil
	}
	return req, nil
}

// IsActive reports whether the user has a pending, unexpired request.
func (s *Service) IsActive(ctx context.Context, userID kernel.UserID) (bool, error) {
	req, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return req != nil, nil
}

// Accept applies the pending request to the account.
func (s *Service) Accept(ctx context.Context, userID kernel.UserID) (*account.Account, error) {
	req, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, iam.ErrAuthProviderChangeNotFound()
	}

	acc, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	acc.SwitchProvider(req.AccountType, req.AuthType, req.AuthID, req.TenantID)
	if err := s.accounts.Save(ctx, *acc); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return nil, errx.Wrap(err, "failed to remove provider change", errx.TypeInternal)
	}

	logx.WithFields(logx.Fields{
		"user_id":      userID,
		"auth_type":    req.AuthType,
		"account_type": req.AccountType,
	}).Info("Authentication provider change accepted")
	return acc, nil
}

// Reject drops the pending request. Rejecting nothing is not an error.
func (s *Service) Reject(ctx context.Context, userID kernel.UserID) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return errx.Wrap(err, "failed to remove provider change", errx.TypeInternal)
	}
	return nil
}
