package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/daogen/internal/schema"
)

// Formatter writes documentation for a resolved schema.
type Formatter interface {
	Format(s schema.Schema) error
}

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s schema.Schema) error {
	for i, table := range sortedTables(s) {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.FormatTable(table)
	}
	return nil
}

// FormatTable writes a single table.
func (f *TextFormatter) FormatTable(table schema.Table) {
	pkStr := ""
	if pk, ok := table.PrimaryKey(); ok {
		pkStr = fmt.Sprintf(" (PK: %s)", pk.Name)
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s.%s%s\n", table.Schema, table.Name, pkStr)

	for _, field := range table.Fields {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatField(field))
	}
}

func formatField(field schema.TypedField) string {
	parts := []string{field.Name + ":", field.PhysicalType}
	if field.Type != field.PhysicalType {
		parts = append(parts, "["+field.Type+"]")
	}

	if field.IsUnique {
		parts = append(parts, "UNIQUE")
	}
	if !field.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if field.Default != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *field.Default))
	}

	return strings.Join(parts, " ")
}
