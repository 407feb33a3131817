package formatter

import (
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"github.com/tordrt/daogen/internal/schema"
)

// Template ids understood by TemplateRenderer.
const (
	TemplateMigration = "migration"
	TemplateTable     = "table"
	TemplateIndex     = "index"
)

const templateExt = ".tmpl"

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// TemplateRenderer renders the built-in templates, optionally overridden by
// same-named files from a directory.
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer parses the built-in templates. When overrideDir is not
// empty, every *.tmpl file in it replaces the built-in template of the same
// name or adds a new one.
func NewTemplateRenderer(overrideDir string) (*TemplateRenderer, error) {
	tmpl, err := template.New("daogen").Funcs(templateFuncs).ParseFS(builtinTemplates, "templates/*"+templateExt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in templates: %w", err)
	}

	if overrideDir != "" {
		matches, err := filepath.Glob(filepath.Join(overrideDir, "*"+templateExt))
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
				return nil, fmt.Errorf("failed to parse templates in %s: %w", overrideDir, err)
			}
		}
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

// Render executes the template with the given id.
func (r *TemplateRenderer) Render(templateID string, data any) (string, error) {
	t := r.tmpl.Lookup(templateID + templateExt)
	if t == nil {
		return "", fmt.Errorf("template %q not found", templateID)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", templateID, err)
	}
	return sb.String(), nil
}

var templateFuncs = template.FuncMap{
	"quote":          quoteIdent,
	"qualified":      qualified,
	"constraint":     constraintName,
	"columnDef":      columnDef,
	"flag":           func(b *bool) bool { return b != nil && *b },
	"text":           func(s *string) string { return deref(s) },
	"goName":         GoName,
	"goType":         goType,
	"primaryKeyName": primaryKeyName,
	"imports":        goImports,
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func qualified(schemaName, table string) string {
	if schemaName == "" {
		return quoteIdent(table)
	}
	return quoteIdent(schemaName) + "." + quoteIdent(table)
}

func constraintName(parts ...string) string {
	return quoteIdent(strings.Join(parts, "_"))
}

func columnDef(f schema.TypedField) string {
	parts := []string{quoteIdent(f.Name), f.PhysicalType}
	switch {
	case f.IsPrimary:
		parts = append(parts, "PRIMARY KEY")
	case !f.Nullable:
		parts = append(parts, "NOT NULL")
	}
	if f.IsUnique && !f.IsPrimary {
		parts = append(parts, "UNIQUE")
	}
	if f.Default != nil {
		parts = append(parts, "DEFAULT "+*f.Default)
	}
	return strings.Join(parts, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func primaryKeyName(t schema.Table) string {
	pk, _ := t.PrimaryKey()
	return pk.Name
}

var initialisms = map[string]string{
	"api":  "API",
	"http": "HTTP",
	"id":   "ID",
	"ip":   "IP",
	"json": "JSON",
	"sql":  "SQL",
	"url":  "URL",
	"uuid": "UUID",
}

// GoName converts a table or column name into an exported Go identifier.
func GoName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var sb strings.Builder
	for _, w := range words {
		if up, ok := initialisms[strings.ToLower(w)]; ok {
			sb.WriteString(up)
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}

	out := sb.String()
	if out == "" {
		return "X"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}

// goType returns the Go type of a field whose physical type is spelled in
// the go dialect. Nullable scalars become pointers.
func goType(f schema.TypedField) string {
	t := f.PhysicalType
	if !f.Nullable || strings.HasPrefix(t, "*") || strings.HasPrefix(t, "[]") || strings.HasPrefix(t, "map[") {
		return t
	}
	return "*" + t
}

var packagePaths = map[string]string{
	"big":   "math/big",
	"json":  "encoding/json",
	"netip": "net/netip",
	"sql":   "database/sql",
	"time":  "time",
	"uuid":  "github.com/google/uuid",
}

// goImports collects the import paths needed by qualified field types such
// as time.Time.
func goImports(t schema.Table) []string {
	seen := map[string]bool{}
	for _, f := range t.Fields {
		typ := strings.TrimLeft(f.PhysicalType, "*[]")
		pkg, _, ok := strings.Cut(typ, ".")
		if !ok {
			continue
		}
		path, known := packagePaths[pkg]
		if !known {
			path = pkg
		}
		seen[path] = true
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
