package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/mapql/internal/engine"
	"github.com/roach88/mapql/internal/eval"
	"github.com/roach88/mapql/internal/ir"
	"github.com/roach88/mapql/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	DB      string   // database path
	Params  []string // positional parameters, ?1 first
	MaxRows int      // row quota
}

// QueryOutput is the JSON payload of a successful query.
// The query id travels in the response envelope.
type QueryOutput struct {
	Columns []string `json:"columns"`
	Rows    []any    `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <schema-dir> <query>",
		Short: "Run a map association query",
		Long: `Resolve and evaluate a query against a loaded database.

Parameters are bound positionally with --param: the first is ?1.
Values parse as integers, true/false, null, or else as strings.

Exit codes:
  0 - Query succeeded
  1 - Query rejected (syntax or resolution error, row quota)
  2 - Command error (schema, database)

Examples:
  mapql query --db graph.db ./schema "SELECT KEY(x), VALUE(x) FROM PhoneNumber p, IN(p.emps) x"
  mapql query --db graph.db ./schema "SELECT ENTRY(x) FROM PhoneNumber p, IN(p.emps) x ORDER BY x" --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "positional query parameter (repeatable)")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", engine.DefaultMaxRows, "maximum rows per query (0 disables)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *QueryOptions, schemaDir, query string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	params, err := parseParams(opts.Params)
	if err != nil {
		return loadCommandError(formatter, ErrCodeInvalidParam, err.Error())
	}

	reg, code, message := loadRegistry(schemaDir)
	if reg == nil {
		return loadCommandError(formatter, code, message)
	}

	// Opening a missing path would create an empty database
	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		return loadCommandError(formatter, ErrCodeDBNotFound, fmt.Sprintf("database not found: %s", opts.DB))
	}

	st, err := store.Open(opts.DB, reg)
	if err != nil {
		return loadCommandError(formatter, ErrCodeStoreOpen, err.Error())
	}
	defer st.Close()

	exec := engine.New(reg, st,
		engine.WithLogger(logger),
		engine.WithMaxRows(opts.MaxRows),
	)

	result, err := exec.Submit(cmd.Context(), query, params...)
	if err != nil {
		return formatter.QueryFailure(query, err)
	}

	if opts.Format == "json" {
		return formatter.SuccessWithQueryID(result.QueryID, QueryOutput{
			Columns: result.Columns,
			Rows:    ir.ToAny(result.IR()["rows"]).([]any),
		})
	}

	return outputQueryText(cmd, result)
}

// parseParams converts --param strings to query parameters.
func parseParams(raw []string) ([]any, error) {
	params := make([]any, len(raw))
	for i, s := range raw {
		params[i] = parseParam(s)
		if _, err := ir.FromAny(params[i]); err != nil {
			return nil, fmt.Errorf("param %d: %w", i+1, err)
		}
	}
	return params, nil
}

func parseParam(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return s
}

// outputQueryText prints the rows as an aligned table.
func outputQueryText(cmd *cobra.Command, result *engine.Result) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = formatCell(c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	noun := "rows"
	if len(result.Rows) == 1 {
		noun = "row"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "(%d %s)\n", len(result.Rows), noun)
	return nil
}

// formatCell renders a cell for the text table: Division(1), 42,
// Division(1)=Employee(2), or NULL.
func formatCell(c eval.Cell) string {
	switch c.Kind {
	case eval.CellInstance:
		return formatInstance(c.Instance)
	case eval.CellScalar:
		if ir.IsNull(c.Scalar) {
			return "NULL"
		}
		return fmt.Sprint(ir.ToAny(c.Scalar))
	case eval.CellEntry:
		return formatInstance(c.Entry.Key) + "=" + formatInstance(c.Entry.Value)
	case eval.CellType:
		if c.Type == nil {
			return "NULL"
		}
		return c.Type.Name
	default:
		return "?"
	}
}

func formatInstance(inst *ir.Instance) string {
	if inst == nil {
		return "NULL"
	}
	return fmt.Sprintf("%s(%v)", inst.Type.Name, ir.ToAny(inst.ID))
}
