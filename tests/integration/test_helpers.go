//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"github.com/tordrt/daogen"
	"github.com/tordrt/daogen/internal/schema"
)

// importAndMigrate imports the database at url, flattens the document in the
// database's own dialect d and generates the first migration from it.
func importAndMigrate(t *testing.T, url string, d schema.Dialect, tables []string) schema.RawSchema {
	t.Helper()
	ctx := context.Background()

	raw, err := daogen.ImportSchema(ctx, url, &daogen.ImportOptions{Tables: tables})
	if err != nil {
		t.Fatalf("Failed to import schema: %v", err)
	}

	s, err := raw.Flatten(d, nil)
	if err != nil {
		t.Fatalf("Imported schema does not resolve: %v", err)
	}

	art, err := daogen.GenerateMigration(ctx, s, &daogen.MigrationOptions{Dir: t.TempDir(), Label: "import", Dialect: d})
	if err != nil {
		t.Fatalf("Failed to generate migration: %v", err)
	}
	if art == nil || art.Version != 1 {
		t.Fatalf("Expected migration V1, got %+v", art)
	}
	return raw
}

// verifyTablesExist checks that all expected tables are present
func verifyTablesExist(t *testing.T, raw schema.RawSchema, expectedTables []string) {
	t.Helper()

	tableMap := make(map[string]bool)
	for _, table := range raw.Tables {
		tableMap[table.Name] = true
	}

	for _, tableName := range expectedTables {
		if !tableMap[tableName] {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyTablesAbsent checks that none of the given tables were imported
func verifyTablesAbsent(t *testing.T, raw schema.RawSchema, tables []string) {
	t.Helper()

	for _, tableName := range tables {
		if findTable(raw, tableName) != nil {
			t.Errorf("Table %s should not have been imported", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.RawTable, expectedColumns []string) {
	t.Helper()

	columnMap := make(map[string]bool)
	for _, f := range table.Fields {
		columnMap[f.Name] = true
	}

	for _, colName := range expectedColumns {
		if !columnMap[colName] {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyPrimaryKey checks that a table has the expected primary key field
func verifyPrimaryKey(t *testing.T, table *schema.RawTable, expectedPK string) {
	t.Helper()

	for _, f := range table.Fields {
		if f.IsPrimary {
			if f.Name != expectedPK {
				t.Errorf("Expected primary key %s, got %s", expectedPK, f.Name)
			}
			return
		}
	}
	t.Errorf("No primary key on table %s", table.Name)
}

// verifyUniqueConstraint checks that a column is marked unique
func verifyUniqueConstraint(t *testing.T, raw schema.RawSchema, tableName, columnName string) {
	t.Helper()

	table := findTable(raw, tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
		return
	}

	for _, f := range table.Fields {
		if f.Name == columnName {
			if f.IsUnique == nil || !*f.IsUnique {
				t.Errorf("Expected %s column to have unique constraint", columnName)
			}
			return
		}
	}

	t.Errorf("Column %s not found in table %s", columnName, tableName)
}

// verifyTypesRegistered checks that every field type has a registry entry
// with a Go mapping
func verifyTypesRegistered(t *testing.T, raw schema.RawSchema) {
	t.Helper()

	for _, table := range raw.Tables {
		for _, f := range table.Fields {
			typ, ok := raw.Types[f.Type]
			if !ok {
				t.Errorf("Type %s of %s.%s is not registered", f.Type, table.Name, f.Name)
				continue
			}
			if typ[schema.DialectGo] == "" {
				t.Errorf("Type %s has no Go mapping", f.Type)
			}
		}
	}
}

// findTable is a helper function to find a table by name in the document
func findTable(raw schema.RawSchema, tableName string) *schema.RawTable {
	for i := range raw.Tables {
		if raw.Tables[i].Name == tableName {
			return &raw.Tables[i]
		}
	}
	return nil
}
