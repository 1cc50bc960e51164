package tenant

import (
	"context"

	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// Repository define el contrato para la persistencia de tenants
type Repository interface {
	// FindByDomain returns the tenant configured for domain, or nil.
	FindByDomain(ctx context.Context, domain string) (*Tenant, error)

	// FindByID busca un tenant por ID
	FindByID(ctx context.Context, id kernel.TenantID) (*Tenant, error)
}

// ProviderChanges reports pending authentication provider changes.
type ProviderChanges interface {
	IsActive(ctx context.Context, userID kernel.UserID) (bool, error)
}
