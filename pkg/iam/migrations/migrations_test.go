package migrations

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrate struct {
	upErr, downErr, versionErr error
	version                    uint
	srcErr, dbErr              error
}

func (f *fakeMigrate) Up() error                    { return f.upErr }
func (f *fakeMigrate) Down() error                  { return f.downErr }
func (f *fakeMigrate) Version() (uint, bool, error) { return f.version, false, f.versionErr }
func (f *fakeMigrate) Close() (error, error)        { return f.srcErr, f.dbErr }

func TestUpTreatsNoChangeAsSuccess(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{upErr: migrate.ErrNoChange, version: 2}}
	require.NoError(t, m.Up())

	m = &Migrator{m: &fakeMigrate{upErr: errors.New("locked")}}
	assert.True(t, errx.HasCode(m.Up(), CodeUpFailed))
}

func TestDown(t *testing.T) {
	require.NoError(t, (&Migrator{m: &fakeMigrate{downErr: migrate.ErrNoChange}}).Down())
	err := (&Migrator{m: &fakeMigrate{downErr: errors.New("boom")}}).Down()
	assert.True(t, errx.HasCode(err, CodeDownFailed))
}

func TestVersionWithoutMigrations(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestCloseJoinsErrors(t *testing.T) {
	src, db := errors.New("source"), errors.New("db")
	err := (&Migrator{m: &fakeMigrate{srcErr: src, dbErr: db}}).Close()
	assert.ErrorIs(t, err, src)
	assert.ErrorIs(t, err, db)
}

func TestNewMigratorRejectsUnknownScheme(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/lingua")
	assert.True(t, errx.HasCode(err, CodeInitFailed))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(sqlFS, "sql")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}
