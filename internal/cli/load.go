package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mapql/internal/harness"
	"github.com/roach88/mapql/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	DB string // database path
}

// LoadSummary describes the graph written by the load command.
type LoadSummary struct {
	Database  string            `json:"database"`
	Instances int               `json:"instances"`
	Types     []store.TypeCount `json:"types"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <schema-dir> <fixture.yaml>",
		Short: "Load a fixture graph into a database",
		Long: `Build the object graph described by a fixture file and save it.

Instances are upserted: loading the same fixture twice leaves one copy
of every instance. Map entries of each saved owner are replaced.

Examples:
  mapql load --db graph.db ./schema ./fixtures/many2many.yaml
  mapql load --db graph.db ./schema ./fixtures/many2many.yaml --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLoad(opts *LoadOptions, schemaDir, fixturePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	reg, code, message := loadRegistry(schemaDir)
	if reg == nil {
		return loadCommandError(formatter, code, message)
	}
	formatter.VerboseLog("Loaded %d entity type(s) from %s", len(reg.Names()), schemaDir)

	fixture, err := harness.LoadFixture(fixturePath)
	if err != nil {
		return loadCommandError(formatter, ErrCodeFixture, err.Error())
	}
	instances, err := fixture.Build(reg)
	if err != nil {
		return loadCommandError(formatter, ErrCodeFixture, err.Error())
	}

	st, err := store.Open(opts.DB, reg)
	if err != nil {
		return loadCommandError(formatter, ErrCodeStoreOpen, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	if err := st.Save(ctx, instances...); err != nil {
		return loadCommandError(formatter, ErrCodeStoreWrite, err.Error())
	}
	logger.Debug("fixture saved", "db", opts.DB, "instances", len(instances))

	stats, err := st.Stats(ctx)
	if err != nil {
		return loadCommandError(formatter, ErrCodeStoreOpen, err.Error())
	}

	summary := LoadSummary{Database: opts.DB, Types: stats}
	for _, tc := range stats {
		summary.Instances += tc.Count
	}

	if opts.Format == "json" {
		return formatter.Success(summary)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Loaded %d instance(s) into %s\n\n", summary.Instances, summary.Database)
	for _, tc := range summary.Types {
		fmt.Fprintf(w, "  %s: %d\n", tc.Type, tc.Count)
	}
	return nil
}

// loadCommandError outputs an error and returns a command-level exit error.
func loadCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
