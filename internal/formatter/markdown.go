package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/daogen/internal/schema"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s schema.Schema) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range sortedTables(s) {
		f.FormatTable(table)
	}
	f.FormatTypes(s.Types)
	return nil
}

// FormatTable formats a single table (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatTable(table schema.Table) {
	_, _ = fmt.Fprintf(f.writer, "## %s.%s\n\n", table.Schema, table.Name)
	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	for _, field := range table.Fields {
		typeStr := fmt.Sprintf("`%s`", field.PhysicalType)
		if field.Type != field.PhysicalType {
			typeStr += fmt.Sprintf(" (%s)", field.Type)
		}

		if constraints := formatConstraints(field); constraints != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", field.Name, typeStr, constraints)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", field.Name, typeStr)
		}
	}
	_, _ = fmt.Fprintln(f.writer)
}

// FormatTypes writes the type registry as a table with one column per
// dialect.
func (f *MarkdownFormatter) FormatTypes(reg schema.Registry) {
	if len(reg) == 0 {
		return
	}

	_, _ = fmt.Fprintln(f.writer, "## Types")
	_, _ = fmt.Fprintln(f.writer)

	header := []string{"type"}
	for _, d := range schema.Dialects {
		header = append(header, string(d))
	}
	_, _ = fmt.Fprintf(f.writer, "| %s |\n", strings.Join(header, " | "))
	_, _ = fmt.Fprintf(f.writer, "|%s\n", strings.Repeat("---|", len(header)))

	for _, name := range reg.Names() {
		row := []string{name}
		for _, d := range schema.Dialects {
			row = append(row, reg[name][d])
		}
		_, _ = fmt.Fprintf(f.writer, "| %s |\n", strings.Join(row, " | "))
	}
	_, _ = fmt.Fprintln(f.writer)
}

func formatConstraints(field schema.TypedField) string {
	var constraints []string
	if field.IsPrimary {
		constraints = append(constraints, "primary key")
	}
	if field.IsUnique {
		constraints = append(constraints, "unique")
	}
	if field.Nullable {
		constraints = append(constraints, "nullable")
	}
	if field.Default != nil {
		constraints = append(constraints, fmt.Sprintf("default `%s`", *field.Default))
	}
	return strings.Join(constraints, ", ")
}
