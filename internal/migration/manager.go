// Package migration keeps the persisted migration state of a project and
// turns schema changes into numbered migration scripts.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tordrt/daogen/internal/schema"
)

const (
	// StateFileName is the state file inside the migrations directory.
	StateFileName = "latest.migration_state"
	// DefaultLabel names migration scripts when no label is given.
	DefaultLabel = "migration"
	// MigrationTemplate is the template id rendered into migration scripts.
	MigrationTemplate = "migration"

	stateExt = ".migration_state"
)

// ErrScriptExists is returned when the next migration script is already on
// disk, typically because the state file was lost or unreadable.
var ErrScriptExists = errors.New("migration script already exists")

// Renderer turns structured data into text. The manager never formats SQL
// itself.
type Renderer interface {
	Render(templateID string, data any) (string, error)
}

// ScriptData is handed to the migration template.
type ScriptData struct {
	Version  int
	Label    string
	Checksum string
	Dialect  schema.Dialect
	Diff     schema.SchemaDifference
}

// Plan describes the migration the next run would produce.
type Plan struct {
	// Changed is false when the schema matches the persisted snapshot.
	Changed  bool
	Version  int
	Previous State
	Current  schema.Schema
	Checksum string
	Diff     schema.SchemaDifference
}

// Artifact describes the files written by a run that produced a migration.
type Artifact struct {
	Version      int
	ScriptPath   string
	StatePath    string
	ArchivedPath string
	Checksum     string
	Diff         schema.SchemaDifference
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialect sets the canonical dialect schemas are normalized to before
// comparing and that migration scripts are written in.
func WithDialect(d schema.Dialect) Option {
	return func(m *Manager) { m.dialect = d }
}

// WithLogger sets the logger for the manager.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDecoders replaces the ordered list of state decoders.
func WithDecoders(decoders ...Decoder) Option {
	return func(m *Manager) { m.decoders = decoders }
}

// Manager owns one migrations directory. It assumes a single writer: no
// locking is done on the state file.
type Manager struct {
	dir      string
	renderer Renderer
	dialect  schema.Dialect
	decoders []Decoder
	logger   *slog.Logger
}

// NewManager creates a Manager for the migrations directory dir.
func NewManager(dir string, renderer Renderer, opts ...Option) *Manager {
	m := &Manager{
		dir:      dir,
		renderer: renderer,
		dialect:  schema.DialectPostgres,
		decoders: DefaultDecoders,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StatePath returns the path of the current state file.
func (m *Manager) StatePath() string {
	return filepath.Join(m.dir, StateFileName)
}

// Load reads the persisted state. A missing or unreadable state file yields
// version 0 with an empty schema.
func (m *Manager) Load() State {
	fresh := State{State: schema.Empty(m.dialect)}

	data, err := os.ReadFile(m.StatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Info("no previous state found, starting from scratch")
		} else {
			m.logger.Warn("failed to read migration state, starting from scratch", "err", err)
		}
		return fresh
	}

	st, err := DecodeState(data, m.decoders)
	if err != nil {
		m.logger.Warn("failed to decode migration state, starting from scratch", "err", err)
		return fresh
	}
	if st.State.Tables == nil {
		st.State.Tables = map[string]schema.Table{}
	}
	if st.State.Types == nil {
		st.State.Types = schema.Registry{}
	}
	return st
}

// Plan compares current against the persisted snapshot without writing
// anything.
func (m *Manager) Plan(current schema.Schema) (*Plan, error) {
	prev := m.Load()

	cur, err := current.Remap(m.dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize current schema: %w", err)
	}
	if prev.State.Dialect == "" {
		prev.State.Dialect = m.dialect
	}
	snapshot, err := prev.State.Remap(m.dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize persisted schema: %w", err)
	}

	plan := &Plan{Previous: prev, Current: cur, Version: prev.Latest, Checksum: Fingerprint(cur)}
	if cur.Equal(snapshot) {
		return plan, nil
	}

	diff, err := snapshot.Difference(cur, m.dialect, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compute schema difference: %w", err)
	}
	plan.Changed = true
	plan.Version = prev.Latest + 1
	plan.Diff = diff
	return plan, nil
}

// Render renders the migration script for plan.
func (m *Manager) Render(plan *Plan, label string) (string, error) {
	out, err := m.renderer.Render(MigrationTemplate, ScriptData{
		Version:  plan.Version,
		Label:    ScriptLabel(label),
		Checksum: plan.Checksum,
		Dialect:  m.dialect,
		Diff:     plan.Diff,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render migration: %w", err)
	}
	return out, nil
}

// Run generates the next migration for current. It returns nil when current
// matches the persisted snapshot. The script is written before the state, so
// a failure in between never advances the version without a script on disk.
func (m *Manager) Run(ctx context.Context, current schema.Schema, label string) (*Artifact, error) {
	plan, err := m.Plan(current)
	if err != nil {
		return nil, err
	}
	if !plan.Changed {
		m.logger.Info("no changes in schema", "version", plan.Version)
		return nil, nil
	}

	script, err := m.Render(plan, label)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	art := &Artifact{
		Version:    plan.Version,
		ScriptPath: filepath.Join(m.dir, ScriptName(plan.Version, label)),
		StatePath:  m.StatePath(),
		Checksum:   plan.Checksum,
		Diff:       plan.Diff,
	}
	if err := writeFileAtomic(art.ScriptPath, []byte(script), false); err != nil {
		if errors.Is(err, os.ErrExist) {
			m.logger.Warn("refusing to overwrite migration script, check the state file",
				"file", art.ScriptPath, "state", art.StatePath, "version", art.Version)
			return nil, fmt.Errorf("%w: %s", ErrScriptExists, art.ScriptPath)
		}
		return nil, fmt.Errorf("failed to write migration script: %w", err)
	}
	m.logger.Info("migration generated", "version", art.Version, "file", art.ScriptPath)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if plan.Previous.Latest != 0 {
		archived, err := m.archive(plan.Previous.Latest)
		if err != nil {
			return nil, err
		}
		art.ArchivedPath = archived
	}

	data, err := EncodeState(State{Latest: plan.Version, Checksum: plan.Checksum, State: plan.Current})
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(art.StatePath, data, true); err != nil {
		return nil, fmt.Errorf("failed to write migration state: %w", err)
	}
	m.logger.Info("latest state saved", "version", art.Version, "checksum", art.Checksum)
	return art, nil
}

// archive moves the current state file aside under a version-stamped name.
func (m *Manager) archive(version int) (string, error) {
	src := m.StatePath()
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat migration state: %w", err)
	}
	dst := filepath.Join(m.dir, fmt.Sprintf("V%d%s", version, stateExt))
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("failed to archive migration state: %w", err)
	}
	return dst, nil
}

var labelUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ScriptLabel normalizes a caller supplied label for use in file names.
func ScriptLabel(label string) string {
	label = strings.Trim(labelUnsafe.ReplaceAllString(strings.TrimSpace(label), "_"), "_")
	if label == "" {
		return DefaultLabel
	}
	return label
}

// ScriptName returns the file name of the migration script for version.
func ScriptName(version int, label string) string {
	return fmt.Sprintf("V%d__%s.sql", version, ScriptLabel(label))
}

// writeFileAtomic writes data to a temp file next to path and moves it into
// place. Without replace an existing path is left alone and the returned
// error matches os.ErrExist.
func writeFileAtomic(path string, data []byte, replace bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if !replace {
		return os.Link(tmp.Name(), path)
	}
	return os.Rename(tmp.Name(), path)
}
