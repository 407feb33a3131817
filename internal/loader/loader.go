// Package loader reads schema definition documents from disk.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/daogen/internal/schema"
)

// Options configures schema loading.
type Options struct {
	// Dialect is the vocabulary field types are resolved to. Defaults to
	// postgres.
	Dialect schema.Dialect

	// Strict turns unparsable documents and per-table resolution errors into
	// a failed load instead of logged, skipped entries.
	Strict bool

	Logger *slog.Logger
}

var extensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// Load reads every schema document in dir, merges them in file name order
// and flattens the result.
func Load(dir string, opts Options) (schema.Schema, error) {
	if opts.Dialect == "" {
		opts.Dialect = schema.DialectPostgres
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := ReadDir(dir, opts.Strict, logger)
	if err != nil {
		return schema.Schema{}, err
	}

	s, err := raw.Flatten(opts.Dialect, logger)
	if err != nil {
		if opts.Strict {
			return schema.Schema{}, fmt.Errorf("failed to resolve schema: %w", err)
		}
		logger.Warn("some tables were skipped", "err", err)
	}
	return s, nil
}

// ReadDir reads and merges all schema documents in dir. Later files win on
// name clashes. A document that fails to parse is skipped with a warning
// unless strict is set; I/O errors always fail.
func ReadDir(dir string, strict bool, logger *slog.Logger) (schema.RawSchema, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return schema.RawSchema{}, fmt.Errorf("failed to read schema directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var merged schema.RawSchema
	for _, entry := range entries {
		if entry.IsDir() || !extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		doc, err := ReadFile(path)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) && !strict {
				logger.Warn("failed to parse schema file, skipping", "file", path, "err", perr.Err)
				continue
			}
			return schema.RawSchema{}, err
		}
		logger.Debug("read schema file", "file", path, "tables", len(doc.Tables), "types", len(doc.Types))
		merged = merged.Merge(doc, logger)
	}
	return merged, nil
}

// ParseError reports a schema document that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Path, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// ReadFile decodes one schema document. Unknown keys are rejected.
func ReadFile(path string) (schema.RawSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.RawSchema{}, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Decode(path, data)
}

// Decode decodes one schema document from data. path is only used in
// errors.
func Decode(path string, data []byte) (schema.RawSchema, error) {
	var doc schema.RawSchema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return schema.RawSchema{}, &ParseError{Path: path, Err: err}
	}
	return doc, nil
}

// Encode writes doc to w as YAML.
func Encode(w io.Writer, doc schema.RawSchema) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

// WriteFile encodes doc as YAML at path, creating parent directories.
func WriteFile(path string, doc schema.RawSchema) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	return nil
}
