package tenantinfra

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam/tenant"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

const tenantColumns = `
	id, name, domain, client_id, client_secret, authorization_uri, token_uri,
	user_info_uri, enabled, force, created_at, updated_at`

// PostgresTenantRepository implementación de PostgreSQL para tenant.Repository
type PostgresTenantRepository struct {
	db *sqlx.DB
}

func NewPostgresTenantRepository(db *sqlx.DB) tenant.Repository {
	return &PostgresTenantRepository{db: db}
}

func (r *PostgresTenantRepository) FindByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	query := `SELECT` + tenantColumns + ` FROM tenants WHERE domain = $1`

	var t tenant.Tenant
	err := r.db.GetContext(ctx, &t, query, strings.ToLower(domain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find tenant by domain", errx.TypeInternal).
			WithDetail("domain", domain)
	}
	return &t, nil
}

func (r *PostgresTenantRepository) FindByID(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	query := `SELECT` + tenantColumns + ` FROM tenants WHERE id = $1`

	var t tenant.Tenant
	err := r.db.GetContext(ctx, &t, query, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound().WithDetail("tenant_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find tenant by id", errx.TypeInternal).
			WithDetail("tenant_id", id.String())
	}
	return &t, nil
}
