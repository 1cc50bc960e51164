package providerchange

import (
	"context"
	"time"

	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// Repository stores at most one pending request per user.
type Repository interface {
	Save(ctx context.Context, req Request, ttl time.Duration) error
	// Find returns the pending request of the user, or nil.
	Find(ctx context.Context, userID kernel.UserID) (*Request, error)
	Delete(ctx context.Context, userID kernel.UserID) error
}
