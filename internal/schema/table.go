package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
)

// RawTable is a table as written in a schema document.
type RawTable struct {
	Name     string  `yaml:"name" json:"name"`
	Abstract bool    `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Extends  string  `yaml:"extends,omitempty" json:"extends,omitempty"`
	Schema   string  `yaml:"schema,omitempty" json:"schema,omitempty"`
	Fields   []Field `yaml:"fields" json:"fields"`
}

// inherit merges parent into t: parent fields come before t's own fields and
// the parent's schema name is taken only when t has none.
func (t RawTable) inherit(parent RawTable) RawTable {
	fields := make([]Field, 0, len(parent.Fields)+len(t.Fields))
	fields = append(fields, parent.Fields...)
	fields = append(fields, t.Fields...)
	t.Fields = fields
	if t.Schema == "" {
		t.Schema = parent.Schema
	}
	return t
}

// Resolve materializes a concrete table.
func (t RawTable) Resolve(reg Registry, d Dialect) (Table, error) {
	if t.Schema == "" {
		return Table{}, &IntegrityError{Table: t.Name, Reason: "schema name is required"}
	}
	fields, err := ResolveFields(t.Name, t.Fields, reg, d)
	if err != nil {
		return Table{}, err
	}
	return Table{Name: t.Name, Schema: t.Schema, Fields: fields}, nil
}

// Table is a resolved, concrete table.
type Table struct {
	Name   string       `json:"name" bson:"name"`
	Schema string       `json:"schema" bson:"schema"`
	Fields []TypedField `json:"fields" bson:"fields"`
}

// Field returns the field with the given name.
func (t Table) Field(name string) (TypedField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return TypedField{}, false
}

// PrimaryKey returns the table's primary key field.
func (t Table) PrimaryKey() (TypedField, bool) {
	for _, f := range t.Fields {
		if f.IsPrimary {
			return f, true
		}
	}
	return TypedField{}, false
}

// Equal reports whether both tables have the same name, schema and fields in
// the same order.
func (t Table) Equal(other Table) bool {
	return t.Name == other.Name &&
		t.Schema == other.Schema &&
		slices.EqualFunc(t.Fields, other.Fields, TypedField.Equal)
}

// Raw converts the table back into its document form.
func (t Table) Raw() RawTable {
	fields := make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = f.Raw()
	}
	return RawTable{Name: t.Name, Schema: t.Schema, Fields: fields}
}

func (t Table) clone() Table {
	fields := make([]TypedField, len(t.Fields))
	for i, f := range t.Fields {
		f.Default = cloneString(f.Default)
		fields[i] = f
	}
	t.Fields = fields
	return t
}

// inheritanceGraph stores raw tables in a slice with extends edges resolved
// through a name index, so chain walks can be bounded by the node count.
type inheritanceGraph struct {
	nodes []RawTable
	index map[string]int
}

func newInheritanceGraph(tables map[string]RawTable) *inheritanceGraph {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	g := &inheritanceGraph{
		nodes: make([]RawTable, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, name := range names {
		g.index[name] = len(g.nodes)
		g.nodes = append(g.nodes, tables[name])
	}
	return g
}

// ancestors returns the extends chain of node i, nearest parent first. A walk
// longer than the number of nodes can only be a cycle.
func (g *inheritanceGraph) ancestors(i int) ([]int, error) {
	var chain []int
	table := g.nodes[i].Name
	parent := g.nodes[i].Extends
	for steps := 0; parent != ""; steps++ {
		if steps >= len(g.nodes) {
			return nil, &DanglingInheritanceError{Table: table, Parent: parent, Cycle: true}
		}
		j, ok := g.index[parent]
		if !ok {
			return nil, &DanglingInheritanceError{Table: table, Parent: parent}
		}
		chain = append(chain, j)
		parent = g.nodes[j].Extends
	}
	return chain, nil
}

// Flatten completes abstract tables along their whole extends chain, then
// merges each concrete table with its direct parent and resolves it against
// reg for dialect d.
//
// Tables with dangling or cyclic inheritance are logged and left out. Tables
// that fail resolution are left out too; their errors are joined into the
// returned error, which may be non-nil alongside a usable partial result.
func Flatten(tables map[string]RawTable, reg Registry, d Dialect, logger *slog.Logger) (map[string]Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := newInheritanceGraph(tables)

	var errs []error
	abstract := make(map[string]RawTable)
	for i, node := range g.nodes {
		if !node.Abstract {
			continue
		}
		chain, err := g.ancestors(i)
		if err != nil {
			logger.Warn("skipping abstract table", "table", node.Name, "err", err)
			continue
		}
		completed := node
		for _, j := range chain {
			completed = completed.inherit(g.nodes[j])
		}
		if err := checkFields(node.Name, completed.Fields, 0, 1); err != nil {
			errs = append(errs, err)
			continue
		}
		abstract[node.Name] = completed
	}

	flat := make(map[string]Table)
	for _, node := range g.nodes {
		if node.Abstract {
			continue
		}
		completed := node
		if node.Extends != "" {
			parent, ok := abstract[node.Extends]
			if !ok {
				j, exists := g.index[node.Extends]
				if !exists || g.nodes[j].Abstract {
					logger.Warn("skipping table", "table", node.Name,
						"err", &DanglingInheritanceError{Table: node.Name, Parent: node.Extends, Invalid: exists})
					continue
				}
				parent = g.nodes[j]
			}
			completed = completed.inherit(parent)
		}
		table, err := completed.Resolve(reg, d)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve table %s: %w", node.Name, err))
			continue
		}
		flat[node.Name] = table
	}

	return flat, errors.Join(errs...)
}
