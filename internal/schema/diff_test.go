package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pgField(name, logical string, primary bool) TypedField {
	physical, _ := testRegistry().Resolve(logical, DialectPostgres)
	return TypedField{Name: name, Type: logical, PhysicalType: physical, IsPrimary: primary}
}

func pgSchema(tables ...Table) Schema {
	s := Schema{Tables: map[string]Table{}, Types: testRegistry(), Dialect: DialectPostgres}
	for _, t := range tables {
		s.Tables[t.Name] = t
	}
	return s
}

func ordersV1() Table {
	return Table{Name: "orders", Schema: "public", Fields: []TypedField{
		pgField("id", "id", true),
		pgField("total", "money", false),
	}}
}

func TestDifferenceWithSelfIsEmpty(t *testing.T) {
	users := Table{Name: "users", Schema: "auth", Fields: []TypedField{
		pgField("id", "id", true),
		{Name: "email", Type: "string", PhysicalType: "TEXT", IsUnique: true, Default: strPtr("''")},
	}}
	s := pgSchema(ordersV1(), users)

	diff, err := s.Difference(s, DialectPostgres, nil)
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Empty(t, diff.Changed)
}

func TestTableDifferenceIgnoresFieldOrder(t *testing.T) {
	a := ordersV1()
	b := Table{Name: "orders", Schema: "public", Fields: []TypedField{a.Fields[1], a.Fields[0]}}

	_, changed := a.Difference(b, nil)
	assert.False(t, changed)
}

func TestTableDifferenceOrdersScenario(t *testing.T) {
	v2 := Table{Name: "orders", Schema: "public", Fields: []TypedField{
		pgField("id", "id", true),
		{Name: "currency", Type: "string", PhysicalType: "TEXT", Nullable: true},
	}}

	delta, ok := ordersV1().Difference(v2, nil)
	require.True(t, ok)

	require.Len(t, delta.Added, 1)
	assert.Equal(t, "currency", delta.Added[0].Name)
	assert.True(t, delta.Added[0].Nullable)
	require.Len(t, delta.Removed, 1)
	assert.Equal(t, "total", delta.Removed[0].Name)
	assert.Empty(t, delta.Changed)
}

func TestTableDifferencePrimaryKeyChangesSortFirst(t *testing.T) {
	v1 := Table{Name: "accounts", Schema: "public", Fields: []TypedField{
		{Name: "code", Type: "string", PhysicalType: "TEXT"},
		{Name: "email", Type: "string", PhysicalType: "TEXT"},
		pgField("id", "id", true),
	}}
	v2 := Table{Name: "accounts", Schema: "public", Fields: []TypedField{
		{Name: "code", Type: "string", PhysicalType: "TEXT", Nullable: true},
		{Name: "email", Type: "string", PhysicalType: "TEXT", IsPrimary: true},
		pgField("id", "id", false),
	}}

	delta, ok := v1.Difference(v2, nil)
	require.True(t, ok)
	require.Len(t, delta.Changed, 3)

	assert.Equal(t, "email", delta.Changed[0].Name)
	assert.Equal(t, "id", delta.Changed[1].Name)
	require.NotNil(t, delta.Changed[1].PrimaryKey)
	assert.False(t, *delta.Changed[1].PrimaryKey)
	assert.Nil(t, delta.Changed[1].Type)

	assert.Equal(t, "code", delta.Changed[2].Name)
	assert.Nil(t, delta.Changed[2].PrimaryKey)
	require.NotNil(t, delta.Changed[2].Nullable)
	assert.True(t, *delta.Changed[2].Nullable)
}

func TestNewChangedField(t *testing.T) {
	base := TypedField{Name: "total", Type: "money", PhysicalType: "NUMERIC(12,2)", Default: strPtr("0")}

	tests := []struct {
		name  string
		next  func(f TypedField) TypedField
		check func(t *testing.T, c ChangedField, ok bool)
	}{
		{
			name: "unchanged",
			next: func(f TypedField) TypedField { return f },
			check: func(t *testing.T, c ChangedField, ok bool) {
				assert.False(t, ok)
			},
		},
		{
			name: "type change is flagged",
			next: func(f TypedField) TypedField {
				f.Type, f.PhysicalType = "string", "TEXT"
				return f
			},
			check: func(t *testing.T, c ChangedField, ok bool) {
				require.True(t, ok)
				require.NotNil(t, c.Type)
				assert.Equal(t, "TEXT", *c.Type)
				assert.Equal(t, "NUMERIC(12,2)", c.PreviousType)
				assert.True(t, c.Unreconciled)
				assert.Nil(t, c.Default)
				assert.False(t, c.DropDefault)
			},
		},
		{
			name: "logical rename with same physical type",
			next: func(f TypedField) TypedField {
				f.Type = "amount"
				return f
			},
			check: func(t *testing.T, c ChangedField, ok bool) {
				assert.False(t, ok)
			},
		},
		{
			name: "default dropped",
			next: func(f TypedField) TypedField {
				f.Default = nil
				return f
			},
			check: func(t *testing.T, c ChangedField, ok bool) {
				require.True(t, ok)
				assert.True(t, c.DropDefault)
				assert.Nil(t, c.Default)
			},
		},
		{
			name: "default changed and unique added",
			next: func(f TypedField) TypedField {
				f.Default = strPtr("1")
				f.IsUnique = true
				return f
			},
			check: func(t *testing.T, c ChangedField, ok bool) {
				require.True(t, ok)
				require.NotNil(t, c.Default)
				assert.Equal(t, "1", *c.Default)
				require.NotNil(t, c.Unique)
				assert.True(t, *c.Unique)
				assert.Nil(t, c.Nullable)
				assert.Nil(t, c.PrimaryKey)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := NewChangedField(base, tt.next(base))
			tt.check(t, c, ok)
		})
	}
}

func TestSchemaDifferenceAddedRemovedChanged(t *testing.T) {
	users := Table{Name: "users", Schema: "auth", Fields: []TypedField{pgField("id", "id", true)}}
	audit := Table{Name: "audit", Schema: "ops", Fields: []TypedField{pgField("id", "id", true)}}
	orders2 := ordersV1()
	orders2.Fields = append(orders2.Fields, pgField("paid", "flag", false))

	prev := pgSchema(ordersV1(), users)
	next := pgSchema(orders2, audit)

	diff, err := prev.Difference(next, DialectPostgres, nil)
	require.NoError(t, err)

	require.Len(t, diff.Added, 1)
	assert.Equal(t, "audit", diff.Added[0].Name)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "users", diff.Removed[0].Name)
	require.Len(t, diff.Changed, 1)
	assert.Equal(t, "orders", diff.Changed[0].Name)
	require.Len(t, diff.Changed[0].Added, 1)
	assert.Equal(t, "paid", diff.Changed[0].Added[0].Name)
}

func TestSchemaDifferenceRenameIsAddAndRemove(t *testing.T) {
	renamed := ordersV1()
	renamed.Name = "purchases"

	diff, err := pgSchema(ordersV1()).Difference(pgSchema(renamed), DialectPostgres, nil)
	require.NoError(t, err)

	require.Len(t, diff.Added, 1)
	assert.Equal(t, "purchases", diff.Added[0].Name)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "orders", diff.Removed[0].Name)
	assert.Empty(t, diff.Changed)
}

func TestSchemaDifferenceSchemaNameMismatchIsSkipped(t *testing.T) {
	moved := ordersV1()
	moved.Schema = "sales"
	moved.Fields = append(moved.Fields, pgField("paid", "flag", false))

	diff, err := pgSchema(ordersV1()).Difference(pgSchema(moved), DialectPostgres, nil)
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
}

func TestSchemaDifferenceNormalizesDialect(t *testing.T) {
	prev := pgSchema(ordersV1())

	goSchema, err := prev.Remap(DialectGo)
	require.NoError(t, err)
	assert.Equal(t, "int64", goSchema.Tables["orders"].Fields[0].PhysicalType)

	diff, err := goSchema.Difference(prev, DialectPostgres, nil)
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
}
