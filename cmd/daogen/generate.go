package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/daogen"
	"github.com/tordrt/daogen/internal/formatter"
)

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var outputDir, pkg string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go table bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, _, err := g.loadSchema(cmd)
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.Bindings
			}
			if pkg == "" {
				pkg = cfg.Package
			}

			written, err := daogen.GenerateBindings(s, &daogen.BindingsOptions{
				OutputDir: outputDir,
				Package:   pkg,
				Templates: cfg.Templates,
			})
			if err != nil {
				return fmt.Errorf("failed to generate bindings: %w", err)
			}
			for _, path := range written {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "Go package name (default from config)")
	return cmd
}

func newDocsCmd(g *globalFlags) *cobra.Command {
	var outputFile, outputDir, format string

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Print schema documentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatter.FormatText && format != formatter.FormatMarkdown {
				return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", format)
			}
			if outputDir != "" && outputFile != "" {
				return fmt.Errorf("cannot use both --output-dir and --output flags")
			}

			_, s, _, err := g.loadSchema(cmd)
			if err != nil {
				return err
			}

			opts := &daogen.OutputOptions{Writer: cmd.OutOrStdout(), OutputDir: outputDir, Format: format}
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() {
					if err := f.Close(); err != nil {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close output file: %v\n", err)
					}
				}()
				opts.Writer = f
			}

			if err := daogen.FormatSchema(s, opts); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	cmd.Flags().StringVarP(&format, "format", "f", formatter.FormatText, "Output format: text or markdown")
	return cmd
}
