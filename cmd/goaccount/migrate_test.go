package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upCalled   bool
	forced     int
	version    uint
	dirty      bool
	upErr      error
	closed     bool
	gotDSN     string
	versionErr error
}

func (f *fakeMigrator) Up() error   { f.upCalled = true; return f.upErr }
func (f *fakeMigrator) Down() error { return nil }
func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}
func (f *fakeMigrator) Force(v int) error { f.forced = v; return nil }
func (f *fakeMigrator) Close() error      { f.closed = true; return nil }

func runMigrateCmd(t *testing.T, fake *fakeMigrator, args ...string) (string, error) {
	t.Helper()

	orig := newMigrator
	newMigrator = func(dsn string) (migrator, error) {
		fake.gotDSN = dsn
		return fake, nil
	}
	t.Cleanup(func() { newMigrator = orig })

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"migrate"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseForceVersion(t *testing.T) {
	v, err := parseForceVersion("3")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = parseForceVersion("abc")
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_VERSION", oopsErr.Code())
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv(envDatabaseURL, "")
	_, err := runMigrateCmd(t, &fakeMigrator{}, "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestMigrateUp(t *testing.T) {
	t.Setenv(envDatabaseURL, "postgres://u:p@db:5432/accounts")
	fake := &fakeMigrator{}

	out, err := runMigrateCmd(t, fake, "up")
	require.NoError(t, err)
	assert.True(t, fake.upCalled)
	assert.True(t, fake.closed)
	assert.Equal(t, "postgres://u:p@db:5432/accounts", fake.gotDSN)
	assert.Contains(t, out, "Migrations applied")
}

func TestMigrateUpFailure(t *testing.T) {
	t.Setenv(envDatabaseURL, "postgres://db/accounts")
	fake := &fakeMigrator{upErr: errors.New("locked")}

	_, err := runMigrateCmd(t, fake, "up")
	require.Error(t, err)
	assert.True(t, fake.closed)
}

func TestMigrateVersionAndForce(t *testing.T) {
	t.Setenv(envDatabaseURL, "postgres://db/accounts")

	out, err := runMigrateCmd(t, &fakeMigrator{version: 1, dirty: true}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "1 (dirty)")

	fake := &fakeMigrator{}
	out, err = runMigrateCmd(t, fake, "force", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.forced)
	assert.Contains(t, out, "Forced version 1")
}
