package accountinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const accountColumns = `
	id, username, name, password_hash, account_type, third_party_auth_type,
	third_party_auth_id, tenant_id, is_admin, disabled, deleted_at,
	created_at, updated_at`

// PostgresAccountRepository implementación de PostgreSQL para account.Repository
type PostgresAccountRepository struct {
	db *sqlx.DB
}

// NewPostgresAccountRepository crea una nueva instancia del repositorio de cuentas
func NewPostgresAccountRepository(db *sqlx.DB) account.Repository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) FindActive(ctx context.Context, username string) (*account.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE username = $1 AND disabled = FALSE AND deleted_at IS NULL`

	var acc account.Account
	err := r.db.GetContext(ctx, &acc, query, account.NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find active account", errx.TypeInternal).
			WithDetail("username", username)
	}
	return &acc, nil
}

func (r *PostgresAccountRepository) FindByID(ctx context.Context, id kernel.UserID) (*account.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE id = $1`

	var acc account.Account
	err := r.db.GetContext(ctx, &acc, query, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrAccountNotFound().WithDetail("user_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find account by id", errx.TypeInternal).
			WithDetail("user_id", id.String())
	}
	return &acc, nil
}

func (r *PostgresAccountRepository) FindByThirdParty(ctx context.Context, authType iam.AuthType, authID string) (*account.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE third_party_auth_type = $1 AND third_party_auth_id = $2 AND deleted_at IS NULL`

	var acc account.Account
	err := r.db.GetContext(ctx, &acc, query, string(authType), authID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find account by third party id", errx.TypeInternal).
			WithDetail("auth_type", string(authType))
	}
	return &acc, nil
}

func (r *PostgresAccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1 AND deleted_at IS NULL)`,
		account.NormalizeUsername(username))
	if err != nil {
		return false, errx.Wrap(err, "failed to check username", errx.TypeInternal)
	}
	return exists, nil
}

func (r *PostgresAccountRepository) Save(ctx context.Context, acc account.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (
			:id, :username, :name, :password_hash, :account_type, :third_party_auth_type,
			:third_party_auth_id, :tenant_id, :is_admin, :disabled, :deleted_at,
			:created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			account_type = EXCLUDED.account_type,
			third_party_auth_type = EXCLUDED.third_party_auth_type,
			third_party_auth_id = EXCLUDED.third_party_auth_id,
			tenant_id = EXCLUDED.tenant_id,
			is_admin = EXCLUDED.is_admin,
			disabled = EXCLUDED.disabled,
			deleted_at = EXCLUDED.deleted_at,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, acc)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return account.ErrAccountExists().WithDetail("username", acc.Username)
		}
		return errx.Wrap(err, "failed to save account", errx.TypeInternal).
			WithDetail("user_id", acc.ID.String())
	}
	return nil
}
