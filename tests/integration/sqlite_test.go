//go:build integration
// +build integration

package integration

import (
	"os"
	"testing"

	"github.com/tordrt/daogen/internal/schema"
)

func sqliteURL() string {
	// Use environment variable if set, otherwise use default test database
	if path := os.Getenv("SQLITE_TEST_PATH"); path != "" {
		return "sqlite://" + path
	}
	return "sqlite://../../test.db"
}

func TestSQLiteImport(t *testing.T) {
	raw := importAndMigrate(t, sqliteURL(), schema.DialectSQLite, nil)

	verifyTablesExist(t, raw, []string{"users", "products", "orders"})
	verifyTypesRegistered(t, raw)

	table := findTable(raw, "users")
	if table == nil {
		t.Fatal("Users table not found")
	}
	verifyPrimaryKey(t, table, "id")
	verifyColumns(t, table, []string{"id", "username", "email", "status", "created_at"})
	verifyUniqueConstraint(t, raw, "users", "username")
}

func TestSQLiteSpecificTables(t *testing.T) {
	raw := importAndMigrate(t, sqliteURL(), schema.DialectSQLite, []string{"users", "products"})

	verifyTablesExist(t, raw, []string{"users", "products"})
	verifyTablesAbsent(t, raw, []string{"orders", "order_items"})
}
