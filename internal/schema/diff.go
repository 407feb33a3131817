package schema

import (
	"log/slog"
	"sort"
)

// SchemaDifference is the structured delta between two schema snapshots.
type SchemaDifference struct {
	Added   []TableAdded   `json:"added"`
	Removed []TableRemoved `json:"removed"`
	Changed []TableChanged `json:"changed"`
}

// IsEmpty reports whether the difference carries no change at all.
func (d SchemaDifference) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// TableAdded wraps a table present only in the newer snapshot.
type TableAdded struct {
	Table
}

// TableRemoved wraps a table present only in the older snapshot.
type TableRemoved struct {
	Table
}

// TableChanged is the per-table field delta.
type TableChanged struct {
	Name    string         `json:"name"`
	Schema  string         `json:"schema"`
	Added   []TypedField   `json:"added"`
	Removed []TypedField   `json:"removed"`
	Changed []ChangedField `json:"changed"`
}

// IsEmpty reports whether the table delta carries no change.
func (c TableChanged) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// ChangedField records the attributes of a field that differ between two
// versions. A nil attribute is unchanged.
type ChangedField struct {
	Name       string  `json:"name"`
	PrimaryKey *bool   `json:"pk,omitempty"`
	Type       *string `json:"type,omitempty"`
	// PreviousType is the physical type before a type change.
	PreviousType string `json:"previousType,omitempty"`
	// Unreconciled marks a type change: no conversion between the two column
	// types is inferred and the rendered statement may need manual editing.
	Unreconciled bool    `json:"unreconciled,omitempty"`
	Default      *string `json:"default,omitempty"`
	DropDefault  bool    `json:"dropDefault,omitempty"`
	Nullable     *bool   `json:"nullable,omitempty"`
	Unique       *bool   `json:"unique,omitempty"`
}

// NewChangedField compares two versions of a field. It returns false when no
// recorded attribute differs.
func NewChangedField(prev, next TypedField) (ChangedField, bool) {
	c := ChangedField{Name: next.Name}
	changed := false

	if prev.IsPrimary != next.IsPrimary {
		v := next.IsPrimary
		c.PrimaryKey = &v
		changed = true
	}
	if prev.PhysicalType != next.PhysicalType {
		v := next.PhysicalType
		c.Type = &v
		c.PreviousType = prev.PhysicalType
		c.Unreconciled = true
		changed = true
	}
	if !equalDefault(prev.Default, next.Default) {
		if next.Default == nil {
			c.DropDefault = true
		} else {
			c.Default = cloneString(next.Default)
		}
		changed = true
	}
	if prev.Nullable != next.Nullable {
		v := next.Nullable
		c.Nullable = &v
		changed = true
	}
	if prev.IsUnique != next.IsUnique {
		v := next.IsUnique
		c.Unique = &v
		changed = true
	}
	return c, changed
}

// Difference computes the field delta from t to next. Fields are matched by
// name. It returns false when the tables differ in name or schema, or when
// nothing changed.
func (t Table) Difference(next Table, logger *slog.Logger) (TableChanged, bool) {
	if t.Name != next.Name || t.Schema != next.Schema {
		return TableChanged{}, false
	}
	if logger == nil {
		logger = slog.Default()
	}

	delta := TableChanged{Name: next.Name, Schema: next.Schema}
	for _, f := range next.Fields {
		prev, ok := t.Field(f.Name)
		if !ok {
			delta.Added = append(delta.Added, f)
			continue
		}
		if c, ok := NewChangedField(prev, f); ok {
			if c.Unreconciled {
				logger.Warn("column type change needs manual review",
					"table", next.Name, "field", f.Name, "from", prev.PhysicalType, "to", f.PhysicalType)
			}
			delta.Changed = append(delta.Changed, c)
		}
	}
	for _, f := range t.Fields {
		if _, ok := next.Field(f.Name); !ok {
			delta.Removed = append(delta.Removed, f)
		}
	}

	// Primary key alterations go first.
	sort.SliceStable(delta.Changed, func(i, j int) bool {
		return delta.Changed[i].PrimaryKey != nil && delta.Changed[j].PrimaryKey == nil
	})

	if delta.IsEmpty() {
		return TableChanged{}, false
	}
	return delta, true
}

// diffTables compares two table sets already expressed in one dialect.
// Result lists are ordered by table name.
func diffTables(prev, next map[string]Table, logger *slog.Logger) SchemaDifference {
	var diff SchemaDifference
	for _, name := range sortedTableNames(next) {
		table := next[name]
		old, ok := prev[name]
		if !ok {
			diff.Added = append(diff.Added, TableAdded{table.clone()})
			continue
		}
		if delta, ok := old.Difference(table, logger); ok {
			diff.Changed = append(diff.Changed, delta)
		}
	}
	for _, name := range sortedTableNames(prev) {
		if _, ok := next[name]; !ok {
			diff.Removed = append(diff.Removed, TableRemoved{prev[name].clone()})
		}
	}
	return diff
}

func sortedTableNames(tables map[string]Table) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
