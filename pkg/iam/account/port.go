package account

import (
	"context"

	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/kernel"
)

// Repository define el contrato para la persistencia de cuentas
type Repository interface {
	// FindActive returns the account that may sign in with username, or nil
	// when there is none. Disabled and deleted accounts are not returned.
	FindActive(ctx context.Context, username string) (*Account, error)

	// FindByID busca una cuenta por ID
	FindByID(ctx context.Context, id kernel.UserID) (*Account, error)

	// FindByThirdParty busca una cuenta por proveedor externo; nil si no existe
	FindByThirdParty(ctx context.Context, authType iam.AuthType, authID string) (*Account, error)

	// ExistsByUsername verifica si ya existe una cuenta con ese username
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Save guarda o actualiza una cuenta
	Save(ctx context.Context, acc Account) error
}
