// Package leads wraps the relational store holding the shared leads table.
// The security core treats it as an opaque executor; every statement arriving
// here has already passed the policy engine.
package leads

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Table is an ordered tabular result.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ExecutionError wraps a failure inside the relational engine. It is a user
// error (bad SQL that passed authorization), never a security event.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("leads: execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// PGExecutor runs authorized statements against PostgreSQL.
type PGExecutor struct {
	pool *pgxpool.Pool
}

// NewPGExecutor constructs an executor over the given pool.
func NewPGExecutor(pool *pgxpool.Pool) *PGExecutor {
	return &PGExecutor{pool: pool}
}

// Execute runs one statement and materializes the result.
func (e *PGExecutor) Execute(ctx context.Context, stmt string) (Table, error) {
	rows, err := e.pool.Query(ctx, stmt)
	if err != nil {
		return Table{}, &ExecutionError{Err: err}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	table := Table{Columns: make([]string, 0, len(fields))}
	for _, f := range fields {
		table.Columns = append(table.Columns, string(f.Name))
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Table{}, &ExecutionError{Err: err}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return Table{}, &ExecutionError{Err: err}
	}
	return table, nil
}

// Describe returns the column structure of a table from the information
// schema. The table name is bound as a parameter, never interpolated.
func (e *PGExecutor) Describe(ctx context.Context, table string) (Table, error) {
	const query = `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`

	rows, err := e.pool.Query(ctx, query, table)
	if err != nil {
		return Table{}, &ExecutionError{Err: err}
	}
	defer rows.Close()

	out := Table{Columns: []string{"column_name", "data_type", "is_nullable"}}
	for rows.Next() {
		var name, dtype, nullable string
		if err := rows.Scan(&name, &dtype, &nullable); err != nil {
			return Table{}, &ExecutionError{Err: err}
		}
		out.Rows = append(out.Rows, []any{name, dtype, nullable})
	}
	if err := rows.Err(); err != nil {
		return Table{}, &ExecutionError{Err: err}
	}
	return out, nil
}
