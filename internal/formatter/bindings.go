package formatter

import (
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tordrt/daogen/internal/schema"
)

// IndexFile is the generated file listing every table.
const IndexFile = "tables.go"

// indexIdent is the identifier declared by the index template.
const indexIdent = "Tables"

// tableFileSuffix ends every per-table file name. It keeps the names clear of
// IndexFile and of the _test and GOOS/GOARCH suffixes the go tool interprets.
const tableFileSuffix = "_table.go"

// BindingsData is handed to the table template.
type BindingsData struct {
	Package string
	Table   schema.Table
}

// IndexData is handed to the index template.
type IndexData struct {
	Package string
	Tables  []schema.Table
}

// BindingsWriter writes one Go source file per table plus an index file.
type BindingsWriter struct {
	OutputDir string
	Package   string
	Renderer  *TemplateRenderer
}

// NewBindingsWriter creates a new bindings writer
func NewBindingsWriter(outputDir, pkg string, r *TemplateRenderer) *BindingsWriter {
	return &BindingsWriter{OutputDir: outputDir, Package: pkg, Renderer: r}
}

// Format remaps s to the go dialect and writes the bindings. It returns the
// written paths in order.
func (w *BindingsWriter) Format(s schema.Schema) ([]string, error) {
	goSchema, err := s.Remap(schema.DialectGo)
	if err != nil {
		return nil, err
	}

	tables := sortedTables(goSchema)
	files, err := bindingFiles(tables)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(w.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for i, table := range tables {
		path := filepath.Join(w.OutputDir, files[i])
		if err := w.write(path, TemplateTable, BindingsData{Package: w.Package, Table: table}); err != nil {
			return written, fmt.Errorf("failed to write bindings for %s: %w", table.Name, err)
		}
		written = append(written, path)
	}

	path := filepath.Join(w.OutputDir, IndexFile)
	if err := w.write(path, TemplateIndex, IndexData{Package: w.Package, Tables: tables}); err != nil {
		return written, fmt.Errorf("failed to write index: %w", err)
	}
	return append(written, path), nil
}

func (w *BindingsWriter) write(path, templateID string, data any) error {
	src, err := w.Renderer.Render(templateID, data)
	if err != nil {
		return err
	}
	formatted, err := format.Source([]byte(src))
	if err != nil {
		return fmt.Errorf("generated code does not parse: %w", err)
	}
	return os.WriteFile(path, formatted, 0644)
}

var fileUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// BindingFileName returns the file name generated for table name.
func BindingFileName(name string) string {
	stem := strings.Trim(fileUnsafe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if stem == "" {
		stem = "x"
	}
	return stem + tableFileSuffix
}

// bindingFiles maps tables to file names and rejects tables whose file or
// type name would clash with another table or with the index.
func bindingFiles(tables []schema.Table) ([]string, error) {
	files := make([]string, len(tables))
	byFile := make(map[string]string, len(tables))
	byIdent := map[string]string{indexIdent: IndexFile}
	for i, table := range tables {
		file := BindingFileName(table.Name)
		if other, ok := byFile[file]; ok {
			return nil, fmt.Errorf("tables %s and %s both generate %s", other, table.Name, file)
		}
		ident := GoName(table.Name)
		if other, ok := byIdent[ident]; ok {
			return nil, fmt.Errorf("table %s generates type %s, already declared by %s", table.Name, ident, other)
		}
		if err := checkFieldNames(table); err != nil {
			return nil, err
		}
		byFile[file] = table.Name
		byIdent[ident] = table.Name
		files[i] = file
	}
	return files, nil
}

// checkFieldNames rejects fields whose struct field name clashes with another
// field or with a generated method.
func checkFieldNames(table schema.Table) error {
	seen := map[string]string{"TableName": "", "PrimaryKey": "", "Columns": ""}
	for _, f := range table.Fields {
		ident := GoName(f.Name)
		if other, ok := seen[ident]; ok {
			if other == "" {
				return fmt.Errorf("field %s.%s generates %s, which is a generated method", table.Name, f.Name, ident)
			}
			return fmt.Errorf("fields %s.%s and %s.%s both generate %s", table.Name, other, table.Name, f.Name, ident)
		}
		seen[ident] = f.Name
	}
	return nil
}

// sortedTables returns the tables of s ordered by name.
func sortedTables(s schema.Schema) []schema.Table {
	tables := make([]schema.Table, 0, len(s.Tables))
	for _, t := range s.Tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})
	return tables
}
