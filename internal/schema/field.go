package schema

import "fmt"

// Field is a column as written in a schema document, before type resolution.
type Field struct {
	Name      string  `yaml:"name" json:"name"`
	Type      string  `yaml:"type" json:"type"`
	IsPrimary bool    `yaml:"isPrimary,omitempty" json:"isPrimary,omitempty"`
	Default   *string `yaml:"default,omitempty" json:"default,omitempty"`
	Nullable  *bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	IsUnique  *bool   `yaml:"isUnique,omitempty" json:"isUnique,omitempty"`
}

// TypedField is a Field resolved against a dialect. Optional flags are
// concrete here.
type TypedField struct {
	Name         string  `json:"name" bson:"name"`
	Type         string  `json:"type" bson:"type"`
	PhysicalType string  `json:"physicalType" bson:"physicalType"`
	IsPrimary    bool    `json:"isPrimary" bson:"isPrimary"`
	Nullable     bool    `json:"nullable" bson:"nullable"`
	IsUnique     bool    `json:"isUnique" bson:"isUnique"`
	Default      *string `json:"default,omitempty" bson:"default,omitempty"`
}

// Equal reports whether every attribute of both fields matches.
func (f TypedField) Equal(other TypedField) bool {
	return f.Name == other.Name &&
		f.Type == other.Type &&
		f.PhysicalType == other.PhysicalType &&
		f.IsPrimary == other.IsPrimary &&
		f.Nullable == other.Nullable &&
		f.IsUnique == other.IsUnique &&
		equalDefault(f.Default, other.Default)
}

// Raw converts the field back into its document form.
func (f TypedField) Raw() Field {
	nullable, unique := f.Nullable, f.IsUnique
	return Field{
		Name:      f.Name,
		Type:      f.Type,
		IsPrimary: f.IsPrimary,
		Default:   cloneString(f.Default),
		Nullable:  &nullable,
		IsUnique:  &unique,
	}
}

// ResolveFields resolves the fields of a concrete table against reg for
// dialect d. The table must carry exactly one primary key.
func ResolveFields(table string, fields []Field, reg Registry, d Dialect) ([]TypedField, error) {
	if err := checkFields(table, fields, 1, 1); err != nil {
		return nil, err
	}

	typed := make([]TypedField, 0, len(fields))
	for _, f := range fields {
		physical, err := reg.Resolve(f.Type, d)
		if err != nil {
			if ute, ok := err.(*UnknownTypeError); ok {
				ute.Table, ute.Field = table, f.Name
			}
			return nil, err
		}
		typed = append(typed, TypedField{
			Name:         f.Name,
			Type:         f.Type,
			PhysicalType: physical,
			IsPrimary:    f.IsPrimary,
			Nullable:     f.Nullable != nil && *f.Nullable,
			IsUnique:     f.IsUnique != nil && *f.IsUnique,
			Default:      cloneString(f.Default),
		})
	}
	return typed, nil
}

// checkFields enforces unique field names and a primary key count within
// [minPK, maxPK].
func checkFields(table string, fields []Field, minPK, maxPK int) error {
	seen := make(map[string]bool, len(fields))
	primary := 0
	for _, f := range fields {
		if f.Name == "" {
			return &IntegrityError{Table: table, Reason: "field with empty name"}
		}
		if seen[f.Name] {
			return &IntegrityError{Table: table, Reason: fmt.Sprintf("duplicate field %s", f.Name)}
		}
		seen[f.Name] = true
		if f.IsPrimary {
			primary++
		}
	}
	if primary < minPK || primary > maxPK {
		if minPK == maxPK {
			return &IntegrityError{Table: table, Reason: fmt.Sprintf("expected exactly %d primary key, found %d", minPK, primary)}
		}
		return &IntegrityError{Table: table, Reason: fmt.Sprintf("expected at most %d primary key, found %d", maxPK, primary)}
	}
	return nil
}

func equalDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
