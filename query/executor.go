package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/logging"
)

// ExecutionContext holds the state of one plan execution
type ExecutionContext struct {
	// RunID identifies the execution in logs
	RunID string

	ctx   context.Context
	log   *slog.Logger
	scans map[*scanNode]*frame.Table
	rows  map[node]int
}

// NewExecutionContext creates an execution context with a fresh run id
func NewExecutionContext(ctx context.Context) *ExecutionContext {
	id := uuid.NewString()
	return &ExecutionContext{
		RunID: id,
		ctx:   ctx,
		log:   logging.WithRun(id),
		scans: make(map[*scanNode]*frame.Table),
		rows:  make(map[node]int),
	}
}

// Collect evaluates the plan and returns the result table
func (lf LazyFrame) Collect() (*frame.Table, error) {
	return lf.CollectContext(context.Background())
}

// CollectContext evaluates the plan. The schema is resolved first, then all
// sources are read, then operators run leaf first. Cancellation is checked
// between operators. On error no partial table is returned.
func (lf LazyFrame) CollectContext(ctx context.Context) (*frame.Table, error) {
	if _, err := lf.Schema(); err != nil {
		return nil, err
	}
	ec := NewExecutionContext(ctx)
	return ec.Execute(lf)
}

// Execute materializes the plan's scans and evaluates it
func (ec *ExecutionContext) Execute(lf LazyFrame) (*frame.Table, error) {
	if lf.root == nil {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
	}
	start := time.Now()
	if err := ec.materializeScans(lf.root); err != nil {
		return nil, fmt.Errorf("failed to materialize sources: %w", err)
	}
	t, err := ec.run(lf.root)
	if err != nil {
		ec.log.Debug("plan failed", "error", err, "elapsed", time.Since(start))
		return nil, err
	}
	ec.log.Debug("plan done", "rows", t.NumRows(), "columns", t.NumColumns(), "elapsed", time.Since(start))
	return t, nil
}

// materializeScans reads every source of the plan once, so no I/O happens
// while operators run. A source whose data does not match the schema it
// reported fails with ErrSchemaMismatch.
func (ec *ExecutionContext) materializeScans(root node) error {
	var visit func(n node) error
	visit = func(n node) error {
		if s, ok := n.(*scanNode); ok {
			if _, done := ec.scans[s]; done {
				return nil
			}
			if err := ec.ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			t, err := s.src.Read()
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", s.src, err)
			}
			declared, err := s.src.Schema()
			if err != nil {
				return err
			}
			if got := t.Schema(); !got.Equal(declared) {
				return fmt.Errorf("%w: %s read %s, declared %s", ErrSchemaMismatch, s.src, got, declared)
			}
			ec.scans[s] = t
			ec.log.Debug("source read", "source", s.src.String(), "rows", t.NumRows(), "elapsed", time.Since(start))
			return nil
		}
		for _, in := range n.inputs() {
			if err := visit(in); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root)
}

// run evaluates one operator and logs its cardinalities
func (ec *ExecutionContext) run(n node) (*frame.Table, error) {
	if err := ec.ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	t, err := n.execute(ec)
	if err != nil {
		return nil, err
	}
	rowsIn := 0
	for _, in := range n.inputs() {
		rowsIn += ec.rows[in]
	}
	ec.rows[n] = t.NumRows()
	ec.log.Debug("operator done",
		"op", n.op(),
		"rows_in", rowsIn,
		"rows_out", t.NumRows(),
		"elapsed", time.Since(start),
	)
	return t, nil
}
