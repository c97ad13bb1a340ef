package main

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"spendlog/internal/auth"
	"spendlog/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWith(args []string, stdin *bytes.Buffer) (string, error) {
	stdout := new(bytes.Buffer)
	err := run(context.Background(), args, stdin, stdout, new(bytes.Buffer))
	return stdout.String(), err
}

func TestRun_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_success.db")

	args := []string{"-user", "testuser", "-email", "test@example.com", "-password", "secret", "-db", dbPath}
	output, err := runWith(args, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, output, "User testuser created successfully")

	db, err := storage.NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	user, err := db.GetUserByUsername(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", user.Email)
	assert.True(t, auth.CheckPassword("secret", user.PasswordHash))
}

func TestRun_DuplicateUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_duplicate.db")
	args := []string{"-user", "testuser", "-password", "secret", "-db", dbPath}

	_, err := runWith(args, new(bytes.Buffer))
	require.NoError(t, err, "first run should succeed")

	_, err = runWith(args, new(bytes.Buffer))
	require.Error(t, err, "expected error on duplicate user")
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingUserFlag(t *testing.T) {
	output, err := runWith([]string{"-password", "secret"}, new(bytes.Buffer))
	require.Error(t, err, "expected error for missing user flag")
	assert.Contains(t, err.Error(), "missing required flags: user")

	// Usage should be printed
	assert.Contains(t, output, "Usage:")
}

func TestRun_InteractivePassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_interactive.db")

	// Simulate user typing "interactive_secret" followed by newline
	stdin := bytes.NewBufferString("interactive_secret\n")

	output, err := runWith([]string{"-user", "interactive_user", "-db", dbPath}, stdin)
	require.NoError(t, err)
	assert.Contains(t, output, "Password: ")
	assert.Contains(t, output, "User interactive_user created successfully")
}

func TestRun_InteractivePassword_Empty(t *testing.T) {
	_, err := runWith([]string{"-user", "empty_pass_user"}, bytes.NewBufferString("\n"))
	require.Error(t, err, "expected error for empty password")
	assert.Contains(t, err.Error(), "password cannot be empty")
}

func TestRun_EnvVarOverride(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_env.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", dbPath)

	// Do not pass -db flag, let it use env var
	_, err := runWith([]string{"-user", "envuser", "-password", "secret"}, new(bytes.Buffer))
	require.NoError(t, err)

	assert.FileExists(t, dbPath)
}

func TestRun_InvalidDBPath(t *testing.T) {
	// Use a directory path as DB file path, which should fail
	args := []string{"-user", "failuser", "-password", "secret", "-db", t.TempDir()}
	_, err := runWith(args, new(bytes.Buffer))
	require.Error(t, err, "expected error for invalid db path")
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRun_Help(t *testing.T) {
	stderr := new(bytes.Buffer)
	err := run(context.Background(), []string{"-h"}, new(bytes.Buffer), new(bytes.Buffer), stderr)
	require.ErrorIs(t, err, flag.ErrHelp)

	out := stderr.String()
	assert.Contains(t, out, "Usage: adduser")
	assert.Contains(t, out, "-user")
	assert.Contains(t, out, "DB_DRIVER")
	assert.Contains(t, out, "DB_PATH")
}

func TestRun_InvalidFlag(t *testing.T) {
	_, err := runWith([]string{"-invalid"}, new(bytes.Buffer))
	require.Error(t, err, "expected error for invalid flag")
	assert.Contains(t, err.Error(), "flag provided but not defined")
}
