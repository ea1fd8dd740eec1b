// Package executor runs bound statements against the dataset view.
// Catalog-sourced and ad-hoc statements share one execution path;
// ad-hoc SQL must first pass the read-only gate.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finopslabs/focus-mcp/internal/bind"
	"github.com/finopslabs/focus-mcp/internal/dataset"
	"github.com/finopslabs/focus-mcp/internal/duck"
)

const DefaultTimeout = 30 * time.Second

// ErrTimeout reports an execution that exceeded the configured ceiling.
// The query is abandoned; no partial result is returned.
var ErrTimeout = errors.New("query timed out")

// UnsafeQueryError reports an ad-hoc statement rejected by the
// read-only gate before reaching the engine.
type UnsafeQueryError struct {
	Keyword string
}

func (e *UnsafeQueryError) Error() string {
	return fmt.Sprintf("statement rejected: %q is not allowed on a read-only dataset", e.Keyword)
}

// ExecError wraps an engine-level diagnostic surfaced at execution
// time. It is reported verbatim and never retried automatically.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

type Config struct {
	Logger *slog.Logger
	DB     duck.DB

	// View, when set, is materialized before each execution. Nil means
	// the relation is expected to exist already.
	View *dataset.View

	Timeout time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.DB == nil {
		return fmt.Errorf("database is required")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

type Executor struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate executor config: %w", err)
	}
	return &Executor{log: cfg.Logger, cfg: cfg}, nil
}

type Result struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Count   int      `json:"count"`
}

type Row map[string]any

// Run executes one statement and returns its tabular result. Unvetted
// statements pass the read-only gate first; every statement then runs
// through the same engine path with bound parameters.
func (e *Executor) Run(ctx context.Context, stmt bind.Statement) (Result, error) {
	if !stmt.Vetted {
		if err := CheckReadOnly(stmt.SQL); err != nil {
			return Result{}, err
		}
	}

	if e.cfg.View != nil {
		if err := e.cfg.View.Ensure(ctx); err != nil {
			return Result{}, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	e.log.Debug("executor: running statement", "sql", stmt.SQL, "args", len(stmt.Args))

	conn, err := e.cfg.DB.Conn(ctx)
	if err != nil {
		if isDeadline(ctx, err) {
			return Result{}, fmt.Errorf("%w after %s", ErrTimeout, e.cfg.Timeout)
		}
		return Result{}, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		if isDeadline(ctx, err) {
			return Result{}, fmt.Errorf("%w after %s", ErrTimeout, e.cfg.Timeout)
		}
		return Result{}, &ExecError{Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, &ExecError{Err: err}
	}

	var resultRows []Row
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return Result{}, &ExecError{Err: err}
		}

		row := make(Row)
		for i, col := range columns {
			val := values[i]
			if val == nil {
				row[col] = nil
			} else {
				switch v := val.(type) {
				case []byte:
					row[col] = string(v)
				default:
					row[col] = val
				}
			}
		}
		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		if isDeadline(ctx, err) {
			return Result{}, fmt.Errorf("%w after %s", ErrTimeout, e.cfg.Timeout)
		}
		return Result{}, &ExecError{Err: err}
	}

	return Result{
		Columns: columns,
		Rows:    resultRows,
		Count:   len(resultRows),
	}, nil
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}
