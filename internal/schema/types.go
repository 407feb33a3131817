package schema

import (
	"fmt"
	"maps"
	"sort"
)

// Dialect names a type-mapping target: either a SQL engine's native type
// vocabulary or the host language's.
type Dialect string

const (
	DialectGo       Dialect = "go"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// Dialects lists the dialects known to the tool.
var Dialects = []Dialect{DialectGo, DialectPostgres, DialectMySQL, DialectSQLite}

// ParseDialect returns the dialect with the given name.
func ParseDialect(s string) (Dialect, error) {
	for _, d := range Dialects {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dialect %q (must be one of go, postgres, mysql, sqlite)", s)
}

// Type holds the physical spelling of one logical type per dialect.
type Type map[Dialect]string

// Registry maps logical type names to their per-dialect physical types.
type Registry map[string]Type

// Resolve returns the physical type for name in dialect d.
func (r Registry) Resolve(name string, d Dialect) (string, error) {
	t, ok := r[name]
	if !ok {
		return "", &UnknownTypeError{Type: name}
	}
	physical, ok := t[d]
	if !ok || physical == "" {
		return "", &UnknownTypeError{Type: name, Dialect: d}
	}
	return physical, nil
}

// Invert builds a physical-to-logical name table for dialect d. When several
// logical types share a physical spelling the alphabetically first name wins.
func (r Registry) Invert(d Dialect) map[string]string {
	inverted := make(map[string]string, len(r))
	for _, name := range r.Names() {
		physical, ok := r[name][d]
		if !ok || physical == "" {
			continue
		}
		if _, taken := inverted[physical]; !taken {
			inverted[physical] = name
		}
	}
	return inverted
}

// Translate maps physical types of dialect from onto physical types of
// dialect to, going through the logical name.
func (r Registry) Translate(from, to Dialect) map[string]string {
	out := make(map[string]string, len(r))
	for physical, name := range r.Invert(from) {
		if target, ok := r[name][to]; ok && target != "" {
			out[physical] = target
		}
	}
	return out
}

// Names returns the logical type names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the registry.
func (r Registry) Clone() Registry {
	out := make(Registry, len(r))
	for name, t := range r {
		out[name] = maps.Clone(t)
	}
	return out
}

// Equal reports whether both registries hold the same mappings.
func (r Registry) Equal(other Registry) bool {
	return maps.EqualFunc(r, other, func(a, b Type) bool { return maps.Equal(a, b) })
}
