package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/daogen"
	"github.com/tordrt/daogen/internal/config"
	"github.com/tordrt/daogen/internal/schema"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	schemas    string
	migrations string
	dialect    string
	logLevel   string
	strict     bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "daogen",
		Short: "Generate SQL migrations and Go bindings from schema documents",
		Long: `daogen reads declarative YAML/JSON schema documents, flattens table inheritance,
and turns every change into a numbered SQL migration script. It also generates Go
table bindings, schema documentation, and can bootstrap documents from a live database.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", config.DefaultFile, "Project configuration file")
	pf.StringVar(&g.schemas, "schemas", "", "Schema document directory (overrides config)")
	pf.StringVar(&g.migrations, "migrations", "", "Migrations directory (overrides config)")
	pf.StringVar(&g.dialect, "dialect", "", "Canonical dialect: postgres, mysql or sqlite (overrides config)")
	pf.StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.BoolVar(&g.strict, "strict", false, "Fail on unparsable documents and unresolvable tables")

	rootCmd.AddCommand(
		newMigrateCmd(g),
		newDiffCmd(g),
		newGenerateCmd(g),
		newDocsCmd(g),
		newImportCmd(g),
	)
	return rootCmd
}

// load resolves the configuration file, applies flag overrides and builds the
// logger.
func (g *globalFlags) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	logger, err := newLogger(g.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, err
	}

	cfg, err := config.Load(g.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return config.Config{}, nil, err
	}

	if g.schemas != "" {
		cfg.Schemas = g.schemas
	}
	if g.migrations != "" {
		cfg.Migrations = g.migrations
	}
	if g.dialect != "" {
		cfg.Dialect = schema.Dialect(g.dialect)
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = g.strict
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func (g *globalFlags) loadSchema(cmd *cobra.Command) (config.Config, schema.Schema, *slog.Logger, error) {
	cfg, logger, err := g.load(cmd)
	if err != nil {
		return cfg, schema.Schema{}, nil, err
	}
	s, err := daogen.LoadSchema(cfg.Schemas, &daogen.Options{Dialect: cfg.Dialect, Strict: cfg.Strict, Logger: logger})
	if err != nil {
		return cfg, schema.Schema{}, nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return cfg, s, logger, nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// parseTableList splits a comma-separated table list.
func parseTableList(tables string) []string {
	if tables == "" {
		return nil
	}
	tableList := strings.Split(tables, ",")
	for i, t := range tableList {
		tableList[i] = strings.TrimSpace(t)
	}
	return tableList
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
