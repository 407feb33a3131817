package schema

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRawSchemaMergeLastWriterWins(t *testing.T) {
	a := RawSchema{
		Tables: []RawTable{
			{Name: "users", Schema: "auth", Fields: []Field{{Name: "id", Type: "id", IsPrimary: true}}},
			{Name: "orders", Schema: "public", Fields: []Field{{Name: "id", Type: "id", IsPrimary: true}}},
		},
		Types: Registry{"id": {DialectPostgres: "INTEGER"}},
	}
	b := RawSchema{
		Tables: []RawTable{
			{Name: "users", Schema: "auth", Fields: []Field{{Name: "uid", Type: "id", IsPrimary: true}}},
		},
		Types: Registry{"id": {DialectPostgres: "BIGINT"}, "string": {DialectPostgres: "TEXT"}},
	}

	logger, logs := captureLogger()
	merged := a.Merge(b, logger)

	require.Len(t, merged.Tables, 2)
	assert.Equal(t, "users", merged.Tables[0].Name, "position of the first definition is kept")
	assert.Equal(t, "uid", merged.Tables[0].Fields[0].Name)
	assert.Equal(t, "BIGINT", merged.Types["id"][DialectPostgres])
	assert.Contains(t, merged.Types, "string")

	assert.Contains(t, logs.String(), "table=users")
	assert.Contains(t, logs.String(), "type=id")
	assert.Equal(t, "INTEGER", a.Types["id"][DialectPostgres], "inputs are not mutated")
}

func TestRawSchemaMergeIdenticalIsQuiet(t *testing.T) {
	a := RawSchema{Tables: []RawTable{{Name: "users", Schema: "auth"}}}

	logger, logs := captureLogger()
	merged := a.Merge(a, logger)

	assert.Len(t, merged.Tables, 1)
	assert.Empty(t, logs.String())
}

func TestSchemaMerge(t *testing.T) {
	users := Table{Name: "users", Schema: "auth", Fields: []TypedField{pgField("id", "id", true)}}
	users2 := Table{Name: "users", Schema: "auth", Fields: []TypedField{pgField("uid", "id", true)}}

	logger, logs := captureLogger()
	merged, err := pgSchema(users, ordersV1()).Merge(pgSchema(users2), logger)
	require.NoError(t, err)

	assert.Len(t, merged.Tables, 2)
	assert.Equal(t, "uid", merged.Tables["users"].Fields[0].Name)
	assert.Contains(t, logs.String(), "table=users")
}

func TestSchemaMergeRemapsOtherDialect(t *testing.T) {
	goSchema, err := pgSchema(ordersV1()).Remap(DialectGo)
	require.NoError(t, err)

	merged, err := Empty(DialectPostgres).Merge(goSchema, nil)
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, merged.Dialect)
	assert.Equal(t, "BIGINT", merged.Tables["orders"].Fields[0].PhysicalType)
}

func TestRawSchemaFlatten(t *testing.T) {
	raw := RawSchema{
		Tables: []RawTable{
			{Name: "Base", Abstract: true, Schema: "public", Fields: []Field{{Name: "id", Type: "id", IsPrimary: true}}},
			{Name: "orders", Extends: "Base", Fields: []Field{{Name: "total", Type: "money"}}},
		},
		Types: testRegistry(),
	}

	s, err := raw.Flatten(DialectGo, nil)
	require.NoError(t, err)
	assert.Equal(t, DialectGo, s.Dialect)
	assert.Equal(t, "string", s.Tables["orders"].Fields[1].PhysicalType)
	assert.True(t, s.Types.Equal(testRegistry()))
}

func TestSchemaRemapFallsBackToPhysicalLookup(t *testing.T) {
	s := pgSchema(Table{Name: "legacy", Schema: "public", Fields: []TypedField{
		{Name: "id", Type: "bigserial", PhysicalType: "BIGINT", IsPrimary: true},
	}})

	remapped, err := s.Remap(DialectGo)
	require.NoError(t, err)
	f := remapped.Tables["legacy"].Fields[0]
	assert.Equal(t, "id", f.Type)
	assert.Equal(t, "int64", f.PhysicalType)
}

func TestSchemaRemapUnknown(t *testing.T) {
	s := pgSchema(Table{Name: "legacy", Schema: "public", Fields: []TypedField{
		{Name: "id", Type: "uuid", PhysicalType: "UUID", IsPrimary: true},
	}})

	_, err := s.Remap(DialectGo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), "legacy")
}

func TestSchemaEqual(t *testing.T) {
	a := pgSchema(ordersV1())
	b := pgSchema(ordersV1())
	assert.True(t, a.Equal(b))

	b.Tables["orders"].Fields[1].Nullable = true
	assert.False(t, a.Equal(b))

	c := pgSchema(ordersV1())
	c.Types["extra"] = Type{DialectPostgres: "JSONB"}
	assert.False(t, a.Equal(c))
}
