package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is matched by errors for fields referencing a type
	// absent from the registry.
	ErrUnknownType = errors.New("unknown type")
	// ErrSchemaIntegrity is matched by errors for tables that cannot be
	// materialized: missing schema name, bad primary key cardinality,
	// duplicate field names.
	ErrSchemaIntegrity = errors.New("schema integrity violation")
	// ErrDanglingInheritance is matched by errors for tables whose extends
	// chain references an unknown table or loops.
	ErrDanglingInheritance = errors.New("dangling inheritance")
)

// UnknownTypeError reports a type name that failed to resolve.
type UnknownTypeError struct {
	Table   string
	Field   string
	Type    string
	Dialect Dialect // set when the type exists but lacks this dialect
}

func (e *UnknownTypeError) Error() string {
	msg := fmt.Sprintf("unknown type %q", e.Type)
	if e.Dialect != "" {
		msg = fmt.Sprintf("type %q has no %s mapping", e.Type, e.Dialect)
	}
	switch {
	case e.Table != "" && e.Field != "":
		return fmt.Sprintf("table %s, field %s: %s", e.Table, e.Field, msg)
	case e.Table != "":
		return fmt.Sprintf("table %s: %s", e.Table, msg)
	}
	return msg
}

func (e *UnknownTypeError) Is(target error) bool { return target == ErrUnknownType }

// IntegrityError reports a table that violates a structural invariant.
type IntegrityError struct {
	Table  string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("table %s: %s", e.Table, e.Reason)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrSchemaIntegrity }

// DanglingInheritanceError reports an extends reference that could not be
// followed.
type DanglingInheritanceError struct {
	Table  string
	Parent string
	Cycle  bool

	// Invalid is set when Parent exists but was itself dropped.
	Invalid bool
}

func (e *DanglingInheritanceError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("table %s: inheritance cycle through %s", e.Table, e.Parent)
	}
	if e.Invalid {
		return fmt.Sprintf("table %s extends invalid table %s", e.Table, e.Parent)
	}
	return fmt.Sprintf("table %s extends unknown table %s", e.Table, e.Parent)
}

func (e *DanglingInheritanceError) Is(target error) bool { return target == ErrDanglingInheritance }
