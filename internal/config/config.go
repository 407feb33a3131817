// Package config loads the project file daogen.yaml.
//
// Example:
//
//	schemas: ./schemas
//	migrations: ./migrations
//	bindings: ./internal/tables
//	package: tables
//	dialect: postgres
//	label: migration
//	strict: false
package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/daogen/internal/schema"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "daogen.yaml"

// Config is the project configuration. Relative paths are resolved against
// the directory holding the configuration file.
type Config struct {
	// Schemas is the directory holding the schema documents.
	Schemas string `yaml:"schemas"`
	// Migrations holds the state file and generated scripts.
	Migrations string `yaml:"migrations"`
	// Bindings is the output directory of generated Go code.
	Bindings string `yaml:"bindings"`
	// Package is the Go package name of generated code.
	Package string `yaml:"package"`
	// Templates optionally overrides built-in templates by file name.
	Templates string `yaml:"templates,omitempty"`
	// Dialect is the canonical dialect schemas are compared and written in.
	Dialect schema.Dialect `yaml:"dialect"`
	// Label names migration scripts when no label is given.
	Label string `yaml:"label"`
	// Strict makes per-table resolution errors fatal.
	Strict bool `yaml:"strict"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Schemas:    "schemas",
		Migrations: "migrations",
		Bindings:   filepath.Join("internal", "tables"),
		Package:    "tables",
		Dialect:    schema.DialectPostgres,
		Label:      "migration",
	}
}

// Load reads the configuration at path. A missing file yields the defaults
// unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.resolve(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Schemas == "" {
		c.Schemas = def.Schemas
	}
	if c.Migrations == "" {
		c.Migrations = def.Migrations
	}
	if c.Bindings == "" {
		c.Bindings = def.Bindings
	}
	if c.Package == "" {
		c.Package = def.Package
	}
	if c.Dialect == "" {
		c.Dialect = def.Dialect
	}
	if c.Label == "" {
		c.Label = def.Label
	}
}

func (c *Config) resolve(base string) {
	for _, p := range []*string{&c.Schemas, &c.Migrations, &c.Bindings, &c.Templates} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Validate checks the configuration for values the tool cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Schemas == "" {
		errs = append(errs, errors.New("schemas directory is required"))
	}
	if c.Migrations == "" {
		errs = append(errs, errors.New("migrations directory is required"))
	}
	if _, err := schema.ParseDialect(string(c.Dialect)); err != nil {
		errs = append(errs, err)
	} else if c.Dialect == schema.DialectGo {
		errs = append(errs, errors.New("dialect go cannot be used for migrations"))
	}
	if c.Package != "" && !token.IsIdentifier(c.Package) {
		errs = append(errs, fmt.Errorf("package %q is not a valid Go identifier", c.Package))
	}
	return errors.Join(errs...)
}
