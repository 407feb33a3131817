package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tordrt/daogen"
	"github.com/tordrt/daogen/internal/watch"
)

func newMigrateCmd(g *globalFlags) *cobra.Command {
	var label string
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Write the next migration script if the schema changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			if label == "" {
				label = cfg.Label
			}

			runOnce := func(ctx context.Context) error {
				s, err := daogen.LoadSchema(cfg.Schemas, &daogen.Options{Dialect: cfg.Dialect, Strict: cfg.Strict, Logger: logger})
				if err != nil {
					return fmt.Errorf("failed to load schema: %w", err)
				}
				art, err := daogen.GenerateMigration(ctx, s, &daogen.MigrationOptions{
					Dir:       cfg.Migrations,
					Label:     label,
					Dialect:   cfg.Dialect,
					Templates: cfg.Templates,
					Logger:    logger,
				})
				if err != nil {
					return err
				}
				if art == nil {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No changes in schema")
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Generated %s (version %d)\n", art.ScriptPath, art.Version)
				return nil
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := runOnce(ctx); err != nil {
				return err
			}
			if !watchMode {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
			return watch.New(cfg.Schemas, runOnce, watch.WithLogger(logger)).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Label used in the script file name (default from config)")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Regenerate whenever the schema directory changes")
	return cmd
}

func newDiffCmd(g *globalFlags) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Print the migration the next migrate would write",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, logger, err := g.loadSchema(cmd)
			if err != nil {
				return err
			}
			if label == "" {
				label = cfg.Label
			}

			script, _, err := daogen.PreviewMigration(s, &daogen.MigrationOptions{
				Dir:       cfg.Migrations,
				Label:     label,
				Dialect:   cfg.Dialect,
				Templates: cfg.Templates,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			if script == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No changes in schema")
				return nil
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), script)
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Label shown in the script header")
	return cmd
}
