package database

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace-api/pkg/utils"
)

type mockMigrate struct {
	mock.Mock
}

func (m *mockMigrate) Up() error   { return m.Called().Error(0) }
func (m *mockMigrate) Down() error { return m.Called().Error(0) }

func (m *mockMigrate) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *mockMigrate) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func TestMigrator_Up(t *testing.T) {
	tests := []struct {
		name     string
		upErr    error
		wantCode string
	}{
		{name: "applies", upErr: nil},
		{name: "no change is fine", upErr: migrate.ErrNoChange},
		{name: "failure is coded", upErr: errors.New("syntax error"), wantCode: "MIGRATION_UP_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockMigrate{}
			m.On("Up").Return(tt.upErr)

			err := (&Migrator{m: m}).Up()
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, utils.ErrorCode(err))
			}
			m.AssertExpectations(t)
		})
	}
}

func TestMigrator_VersionNilMeansZero(t *testing.T) {
	m := &mockMigrate{}
	m.On("Version").Return(uint(0), false, migrate.ErrNilVersion)

	version, dirty, err := (&Migrator{m: m}).Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestMigrator_CloseJoinsErrors(t *testing.T) {
	m := &mockMigrate{}
	m.On("Close").Return(nil, errors.New("db close"))

	err := (&Migrator{m: m}).Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db close")
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db", MigrateURL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u:p@h:5432/db", MigrateURL("postgresql://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://already", MigrateURL("pgx5://already"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := 0, 0
	for _, name := range entries {
		switch {
		case len(name) > 7 && name[len(name)-7:] == ".up.sql":
			ups++
		case len(name) > 9 && name[len(name)-9:] == ".down.sql":
			downs++
		}
	}
	assert.Equal(t, ups, downs)
	assert.Equal(t, 2, ups)
}
