package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tordrt/daogen"
	"github.com/tordrt/daogen/internal/loader"
	"github.com/tordrt/daogen/internal/schema"
)

func newImportCmd(g *globalFlags) *cobra.Command {
	var dbURL, tables, exclude, schemaName, outputFile string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Write a schema document describing a live database",
		Long: `Import introspects a PostgreSQL, MySQL or SQLite database and writes a schema
document with one logical type per distinct column type. Tables without a
single-column primary key are skipped.

Each generated type is mapped only for the source database's dialect and for
go. Importing from MySQL or SQLite while the project's canonical dialect is
postgres leaves the postgres column empty: add those mappings to the document
before running migrate or diff, or they fail with an unknown type error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			raw, err := daogen.ImportSchema(ctx, dbURL, &daogen.ImportOptions{
				Tables:        parseTableList(tables),
				ExcludeTables: parseTableList(exclude),
				SchemaName:    schemaName,
				Logger:        logger,
			})
			if err != nil {
				return fmt.Errorf("failed to import schema: %w", err)
			}

			if missing := unmappedTypes(raw, cfg.Dialect); len(missing) > 0 {
				logger.Warn("imported types have no mapping for the canonical dialect, add them before migrating",
					"dialect", cfg.Dialect, "types", missing)
			}

			if outputFile == "" {
				return loader.Encode(cmd.OutOrStdout(), raw)
			}
			if err := loader.WriteFile(outputFile, raw); err != nil {
				return err
			}
			logger.Info("schema imported", "file", outputFile, "tables", len(raw.Tables), "types", len(raw.Types))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db-url", "", "Database URL (postgres://, mysql:// or sqlite://)")
	cmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().StringVarP(&exclude, "exclude", "x", "", "Tables to skip (comma-separated, optional)")
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	_ = cmd.MarkFlagRequired("db-url")
	return cmd
}

// unmappedTypes lists the document types without a mapping for dialect d.
func unmappedTypes(raw schema.RawSchema, d schema.Dialect) []string {
	var missing []string
	for name, typ := range raw.Types {
		if typ[d] == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
