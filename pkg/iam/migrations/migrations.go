// Package migrations applies the iam schema with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"net/http"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/logx"
	"github.com/golang-migrate/migrate/v4"
	// postgres driver for golang-migrate, backed by lib/pq
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var sqlFS embed.FS

var ErrRegistry = errx.NewRegistry("MIGRATION")

var (
	CodeInitFailed = ErrRegistry.Register("INIT_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to initialize migrator")
	CodeUpFailed   = ErrRegistry.Register("UP_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to apply migrations")
	CodeDownFailed = ErrRegistry.Register("DOWN_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to roll back migrations")
)

// migrateIface is the part of *migrate.Migrate the Migrator uses.
type migrateIface interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Close() (source error, database error)
}

type Migrator struct {
	m migrateIface
}

// NewMigrator connects to databaseURL (postgres://...) with the embedded
// migrations as source.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeInitFailed, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		_ = source.Close()
		return nil, ErrRegistry.NewWithCause(CodeInitFailed, err)
	}
	return &Migrator{m: m}, nil
}

// Up applies pending migrations. Being up to date is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ErrRegistry.NewWithCause(CodeUpFailed, err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		logx.WithFields(logx.Fields{"version": version, "dirty": dirty}).Info("Database schema is up to date")
	}
	return nil
}

// Down drops every table the migrations created.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ErrRegistry.NewWithCause(CodeDownFailed, err)
	}
	return nil
}

// Version returns 0 when nothing was applied yet.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errx.Wrap(err, "failed to read schema version", errx.TypeInternal)
	}
	return version, dirty, nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}
