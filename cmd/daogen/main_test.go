package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/daogen/internal/schema"
)

const usersDoc = `
types:
  id:
    go: int64
    postgres: BIGINT
  string:
    go: string
    postgres: TEXT
tables:
  - name: users
    schema: public
    fields:
      - name: id
        type: id
        isPrimary: true
      - name: email
        type: string
        isUnique: true
`

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{"empty", "", nil},
		{"single", "users", []string{"users"}},
		{"multiple", "users,orders", []string{"users", "orders"}},
		{"spaces", " users , orders ", []string{"users", "orders"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, parseTableList(tt.input))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newLogger("loud", &buf)
	assert.Error(t, err)
}

// project lays out a schemas directory and a daogen.yaml pointing at it.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "schemas"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemas", "users.yaml"), []byte(usersDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daogen.yaml"), []byte("schemas: schemas\nmigrations: migrations\nbindings: gen\npackage: models\n"), 0644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	dir := project(t)
	cfg := filepath.Join(dir, "daogen.yaml")

	out, err := execute(t, "migrate", "--config", cfg, "--label", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "V1__init.sql")
	assert.FileExists(t, filepath.Join(dir, "migrations", "V1__init.sql"))
	assert.FileExists(t, filepath.Join(dir, "migrations", "latest.migration_state"))

	out, err = execute(t, "migrate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No changes in schema")
}

func TestDiffCommand(t *testing.T) {
	dir := project(t)

	out, err := execute(t, "diff", "--config", filepath.Join(dir, "daogen.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS")
	assert.Contains(t, out, `"users"`)
	assert.NoDirExists(t, filepath.Join(dir, "migrations"))
}

func TestDiffCommandFlagOverridesConfig(t *testing.T) {
	dir := project(t)
	other := t.TempDir()

	_, err := execute(t, "migrate", "--config", filepath.Join(dir, "daogen.yaml"), "--migrations", other)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other, "latest.migration_state"))
	assert.NoDirExists(t, filepath.Join(dir, "migrations"))
}

func TestGenerateCommand(t *testing.T) {
	dir := project(t)

	out, err := execute(t, "generate", "--config", filepath.Join(dir, "daogen.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "gen", "users_table.go"))

	data, err := os.ReadFile(filepath.Join(dir, "gen", "users_table.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package models")
}

func TestDocsCommand(t *testing.T) {
	dir := project(t)
	cfg := filepath.Join(dir, "daogen.yaml")

	out, err := execute(t, "docs", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "TABLE public.users (PK: id)")

	out, err = execute(t, "docs", "--config", cfg, "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "## public.users")

	_, err = execute(t, "docs", "--config", cfg, "--format", "html")
	assert.Error(t, err)
}

func TestMissingRequiredConfig(t *testing.T) {
	_, err := execute(t, "docs", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInvalidDialectFlag(t *testing.T) {
	dir := project(t)
	_, err := execute(t, "diff", "--config", filepath.Join(dir, "daogen.yaml"), "--dialect", "go")
	assert.Error(t, err)
}

func TestImportRequiresURL(t *testing.T) {
	_, err := execute(t, "import")
	assert.Error(t, err)
}

func TestUnmappedTypes(t *testing.T) {
	raw := schema.RawSchema{Types: schema.Registry{
		"integer": {schema.DialectSQLite: "INTEGER", schema.DialectGo: "int64"},
		"text":    {schema.DialectSQLite: "TEXT", schema.DialectGo: "string"},
		"uuid":    {schema.DialectSQLite: "TEXT", schema.DialectPostgres: "UUID", schema.DialectGo: "string"},
	}}

	assert.Equal(t, []string{"integer", "text"}, unmappedTypes(raw, schema.DialectPostgres))
	assert.Empty(t, unmappedTypes(raw, schema.DialectSQLite))
}

func TestImportHelpMentionsDialectMappings(t *testing.T) {
	out, err := execute(t, "import", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "mapped only for the source database's dialect")
}
