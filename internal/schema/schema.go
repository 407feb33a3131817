// Package schema holds the table model: the type registry, raw and resolved
// tables, inheritance flattening, cross-file merging and schema diffing.
package schema

import (
	"fmt"
	"log/slog"
	"maps"
	"reflect"
)

// RawSchema is the content of one or more schema documents before
// flattening.
type RawSchema struct {
	Tables []RawTable `yaml:"tables" json:"tables"`
	Types  Registry   `yaml:"types,omitempty" json:"types,omitempty"`
}

// Merge folds other into s. On a name clash the entry from other wins and
// the discarded entry is logged.
func (s RawSchema) Merge(other RawSchema, logger *slog.Logger) RawSchema {
	if logger == nil {
		logger = slog.Default()
	}

	merged := RawSchema{
		Tables: make([]RawTable, 0, len(s.Tables)+len(other.Tables)),
		Types:  s.Types.Clone(),
	}
	position := make(map[string]int, len(s.Tables))
	for _, t := range append(append([]RawTable{}, s.Tables...), other.Tables...) {
		i, ok := position[t.Name]
		if !ok {
			position[t.Name] = len(merged.Tables)
			merged.Tables = append(merged.Tables, t)
			continue
		}
		if !reflect.DeepEqual(merged.Tables[i], t) {
			logger.Warn("table defined more than once, keeping the last definition",
				"table", t.Name, "discarded", fmt.Sprintf("%+v", merged.Tables[i]))
		}
		merged.Tables[i] = t
	}
	mergeTypes(merged.Types, other.Types, logger)
	return merged
}

// Flatten resolves every concrete table against the document types for
// dialect d. See Flatten for error semantics.
func (s RawSchema) Flatten(d Dialect, logger *slog.Logger) (Schema, error) {
	tables := make(map[string]RawTable, len(s.Tables))
	for _, t := range s.Tables {
		tables[t.Name] = t
	}
	flat, err := Flatten(tables, s.Types, d, logger)
	return Schema{Tables: flat, Types: s.Types.Clone(), Dialect: d}, err
}

// Schema is a set of resolved tables plus the type registry they were
// resolved with. Dialect records which vocabulary the physical types of the
// table fields are spelled in.
type Schema struct {
	Tables  map[string]Table `json:"tables" bson:"tables"`
	Types   Registry         `json:"types" bson:"types"`
	Dialect Dialect          `json:"typeMapping" bson:"typeMapping"`
}

// Empty returns a schema without tables or types for dialect d.
func Empty(d Dialect) Schema {
	return Schema{Tables: map[string]Table{}, Types: Registry{}, Dialect: d}
}

// Equal reports structural equality of tables, types and dialect.
func (s Schema) Equal(other Schema) bool {
	return s.Dialect == other.Dialect &&
		s.Types.Equal(other.Types) &&
		maps.EqualFunc(s.Tables, other.Tables, Table.Equal)
}

// Remap returns a copy of s whose field physical types are spelled in
// dialect d. Fields are re-resolved by logical name; a field whose logical
// name is gone from the registry is looked up by its current physical type.
func (s Schema) Remap(d Dialect) (Schema, error) {
	if s.Dialect == d {
		return s.clone(), nil
	}

	inverted := s.Types.Invert(s.Dialect)
	out := Schema{Tables: make(map[string]Table, len(s.Tables)), Types: s.Types.Clone(), Dialect: d}
	for name, table := range s.Tables {
		remapped := table.clone()
		for i, f := range remapped.Fields {
			logical := f.Type
			if _, ok := s.Types[logical]; !ok {
				if alias, ok := inverted[f.PhysicalType]; ok {
					logical = alias
				}
			}
			physical, err := s.Types.Resolve(logical, d)
			if err != nil {
				if ute, ok := err.(*UnknownTypeError); ok {
					ute.Table, ute.Field = name, f.Name
				}
				return Schema{}, fmt.Errorf("remap to %s: %w", d, err)
			}
			remapped.Fields[i].Type = logical
			remapped.Fields[i].PhysicalType = physical
		}
		out.Tables[name] = remapped
	}
	return out, nil
}

// Merge folds other into s. On a name clash the table or type from other
// wins and the discarded value is logged. other is remapped to s's dialect
// first when they differ.
func (s Schema) Merge(other Schema, logger *slog.Logger) (Schema, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if s.Dialect == "" {
		s.Dialect = other.Dialect
	}
	if other.Dialect != s.Dialect {
		remapped, err := other.Remap(s.Dialect)
		if err != nil {
			return Schema{}, fmt.Errorf("merge schemas: %w", err)
		}
		other = remapped
	}

	merged := s.clone()
	for name, table := range other.Tables {
		if prev, ok := merged.Tables[name]; ok && !prev.Equal(table) {
			logger.Warn("table defined more than once, keeping the last definition",
				"table", name, "discarded", fmt.Sprintf("%+v", prev))
		}
		merged.Tables[name] = table.clone()
	}
	mergeTypes(merged.Types, other.Types, logger)
	return merged, nil
}

// Difference computes the delta from s to next after remapping both into
// dialect d.
func (s Schema) Difference(next Schema, d Dialect, logger *slog.Logger) (SchemaDifference, error) {
	prev, err := s.Remap(d)
	if err != nil {
		return SchemaDifference{}, fmt.Errorf("previous schema: %w", err)
	}
	cur, err := next.Remap(d)
	if err != nil {
		return SchemaDifference{}, fmt.Errorf("current schema: %w", err)
	}
	return diffTables(prev.Tables, cur.Tables, logger), nil
}

func (s Schema) clone() Schema {
	out := Schema{Tables: make(map[string]Table, len(s.Tables)), Types: s.Types.Clone(), Dialect: s.Dialect}
	for name, t := range s.Tables {
		out.Tables[name] = t.clone()
	}
	return out
}

func mergeTypes(dst, src Registry, logger *slog.Logger) {
	for name, t := range src {
		if prev, ok := dst[name]; ok && !maps.Equal(prev, t) {
			logger.Warn("type defined more than once, keeping the last definition",
				"type", name, "discarded", fmt.Sprintf("%v", prev))
		}
		dst[name] = maps.Clone(t)
	}
}
