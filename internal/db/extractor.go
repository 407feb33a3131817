// Package db introspects live databases and turns their tables into schema
// documents that can be adopted as the starting point of a project.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/tordrt/daogen/internal/schema"
)

// Column is a column as reported by the database catalog.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	IsUnique bool
	Default  *string
}

// TableInfo is a table as reported by the database catalog.
type TableInfo struct {
	Name       string
	Schema     string
	Columns    []Column
	PrimaryKey []string
}

// Extractor reads table metadata from one database.
type Extractor interface {
	// Dialect is the dialect the reported column types are spelled in.
	Dialect() schema.Dialect
	// ExtractTables returns the requested tables, or every base table when
	// tables is empty.
	ExtractTables(ctx context.Context, tables []string) ([]TableInfo, error)
}

// Extract reads tables through e and converts them into a schema document.
func Extract(ctx context.Context, e Extractor, tables []string, logger *slog.Logger) (schema.RawSchema, error) {
	infos, err := e.ExtractTables(ctx, tables)
	if err != nil {
		return schema.RawSchema{}, err
	}
	return ToRawSchema(e.Dialect(), infos, logger), nil
}

// ToRawSchema builds a schema document from catalog tables. Every distinct
// column type becomes a logical type mapped for dialect d and for go. Tables
// without exactly one primary key column are skipped.
func ToRawSchema(d schema.Dialect, tables []TableInfo, logger *slog.Logger) schema.RawSchema {
	if logger == nil {
		logger = slog.Default()
	}

	sorted := make([]TableInfo, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	out := schema.RawSchema{Types: schema.Registry{}}
	for _, t := range sorted {
		if len(t.PrimaryKey) != 1 {
			logger.Warn("skipping table without a single-column primary key",
				"table", t.Name, "primary_key", strings.Join(t.PrimaryKey, ","))
			continue
		}

		raw := schema.RawTable{Name: t.Name, Schema: t.Schema}
		for _, col := range t.Columns {
			logical := LogicalTypeName(col.Type)
			if _, ok := out.Types[logical]; !ok {
				out.Types[logical] = schema.Type{d: col.Type, schema.DialectGo: GoType(d, col.Type)}
			}

			f := schema.Field{
				Name:      col.Name,
				Type:      logical,
				IsPrimary: col.Name == t.PrimaryKey[0],
				Default:   col.Default,
			}
			if col.Nullable && !f.IsPrimary {
				f.Nullable = boolPtr(true)
			}
			if col.IsUnique && !f.IsPrimary {
				f.IsUnique = boolPtr(true)
			}
			raw.Fields = append(raw.Fields, f)
		}
		out.Tables = append(out.Tables, raw)
	}
	return out
}

// LogicalTypeName derives a logical type name from a physical column type,
// e.g. "varchar(255)" becomes "varchar_255".
func LogicalTypeName(physical string) string {
	s := strings.ToLower(strings.TrimSpace(physical))
	s = strings.ReplaceAll(s, "[]", " array")

	var sb strings.Builder
	sep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	if sb.Len() == 0 {
		return "unknown"
	}
	return sb.String()
}

// GoType guesses the Go spelling of a physical column type of dialect d.
func GoType(d schema.Dialect, physical string) string {
	p := strings.ToLower(strings.TrimSpace(physical))
	if elem, ok := strings.CutSuffix(p, "[]"); ok {
		return "[]" + GoType(d, elem)
	}
	if p == "tinyint(1)" {
		return "bool"
	}

	base, _, _ := strings.Cut(p, "(")
	base = strings.TrimSpace(strings.TrimSuffix(base, " unsigned"))
	switch base {
	case "integer", "int":
		if d == schema.DialectSQLite {
			return "int64"
		}
		return "int32"
	case "smallint", "int2", "tinyint", "mediumint", "int4", "serial", "smallserial":
		return "int32"
	case "bigint", "int8", "bigserial":
		return "int64"
	case "real", "float4", "float":
		return "float32"
	case "double", "double precision", "float8":
		return "float64"
	case "boolean", "bool":
		return "bool"
	case "timestamp", "timestamptz", "datetime", "date", "time", "timetz":
		return "time.Time"
	case "bytea", "blob", "binary", "varbinary", "tinyblob", "mediumblob", "longblob":
		return "[]byte"
	case "json", "jsonb":
		return "json.RawMessage"
	default:
		return "string"
	}
}

func boolPtr(b bool) *bool { return &b }

func quoteSQLiteIdent(name string) string {
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(name, `"`, `""`))
}
