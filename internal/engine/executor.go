package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/mapql/internal/eval"
	"github.com/roach88/mapql/internal/ir"
	"github.com/roach88/mapql/internal/queryir"
	"github.com/roach88/mapql/internal/store"
)

// Executor resolves and evaluates queries against a schema and a Supplier.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine when the Supplier and IDGenerator are
//   - the schema is read-only after construction
type Executor struct {
	schema   queryir.Schema
	supplier store.Supplier
	ids      IDGenerator
	logger   *slog.Logger
	maxRows  int
}

// ExecutorOption allows configuration of executor parameters.
type ExecutorOption func(*Executor)

// WithIDGenerator sets the query id generator.
//
// Default: UUIDv7Generator.
// Use testutil.NewFixedIDGenerator for golden tests.
func WithIDGenerator(ids IDGenerator) ExecutorOption {
	return func(e *Executor) {
		e.ids = ids
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMaxRows sets the row quota per query.
//
// Default: 100000 rows (DefaultMaxRows). Zero or negative disables the quota.
func WithMaxRows(maxRows int) ExecutorOption {
	return func(e *Executor) {
		e.maxRows = maxRows
	}
}

// New creates an Executor over the given schema and instance supplier.
func New(schema queryir.Schema, supplier store.Supplier, opts ...ExecutorOption) *Executor {
	e := &Executor{
		schema:   schema,
		supplier: supplier,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		maxRows:  DefaultMaxRows,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Result is the outcome of one successful submission.
type Result struct {
	QueryID string
	Query   string
	Columns []string
	Rows    []eval.Row
}

// IR renders the result as a canonical IR object:
//
//	{"columns": ["KEY(x)", ...], "rows": [[<cell>, ...], ...]}
//
// The query id is omitted so that renderings are stable across runs.
func (r *Result) IR() ir.IRObject {
	cols := make(ir.IRArray, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = ir.IRString(c)
	}
	rows := make(ir.IRArray, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = row.IR()
	}
	return ir.IRObject{
		"columns": cols,
		"rows":    rows,
	}
}

// Submit parses, resolves and evaluates query with the given positional
// parameters (?1 is params[0]).
//
// Parameters may be scalars accepted by ir.FromAny or *ir.Instance values.
// Errors are returned without a partial result:
//   - *queryir.SyntaxError or *queryir.ResolutionError for rejected queries
//   - *QueryError for parameter binding failures
//   - *RowsExceededError when the row quota is exceeded
//   - the Supplier's error, unchanged, when reading instances fails
func (e *Executor) Submit(ctx context.Context, query string, params ...any) (*Result, error) {
	queryID := e.ids.Generate()
	log := e.logger.With("query_id", queryID)

	log.Debug("query submitted",
		"query", query,
		"params", len(params),
	)

	path, err := queryir.ParseAndResolve(query, e.schema)
	if err != nil {
		log.Info("query rejected", "error", err)
		return nil, fmt.Errorf("query %s: %w", queryID, err)
	}

	if err := bindParams(queryID, path, params); err != nil {
		log.Info("query rejected", "error", err)
		return nil, err
	}

	log.Debug("query resolved",
		"root", path.Root.Name,
		"map_field", path.MapField.Name,
		"columns", path.Labels(),
		"ordered", path.Order != nil,
	)

	quota := NewRowQuota(e.maxRows)
	var rows []eval.Row
	for row, err := range eval.Evaluate(path, e.supplier.Instances(ctx, path.Root.Name)) {
		if err != nil {
			log.Error("query evaluation failed", "error", err, "rows_read", quota.Current())
			return nil, fmt.Errorf("query %s: %w", queryID, err)
		}
		if err := quota.Check(queryID); err != nil {
			log.Error("max rows quota exceeded",
				"rows", quota.Current(),
				"max_rows", quota.MaxRows(),
			)
			return nil, err
		}
		rows = append(rows, row)
	}

	log.Info("query completed",
		"root", path.Root.Name,
		"rows", len(rows),
	)

	return &Result{
		QueryID: queryID,
		Query:   query,
		Columns: path.Labels(),
		Rows:    rows,
	}, nil
}

// bindParams checks that every referenced parameter is bound to a value the
// IR can carry and binds the comparison's parameter into the path.
func bindParams(queryID string, path *queryir.AssociationPath, params []any) error {
	if len(params) < path.MaxParam {
		return NewMissingParameterError(queryID, len(params), path.MaxParam)
	}

	values := make([]ir.IRValue, len(params))
	for i, p := range params {
		if _, ok := p.(*ir.Instance); ok {
			continue
		}
		v, err := ir.FromAny(p)
		if err != nil {
			return NewInvalidParameterError(queryID, i+1, err)
		}
		values[i] = v
	}

	w := path.Where
	if w == nil || w.Param == 0 {
		return nil
	}
	v := values[w.Param-1]
	if v == nil {
		return NewInvalidParameterError(queryID, w.Param,
			fmt.Errorf("%s compares a scalar field, got an entity", w.Label))
	}
	w.Value = v
	return nil
}
