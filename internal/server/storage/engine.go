// Package storage implements a generic persistence engine over a static
// schema descriptor. It builds parameterized SQL from the descriptor, logs
// every statement before execution, and leaves transaction boundaries to the
// caller: no call is ever wrapped in an implicit transaction.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/elegance/identity-provider/internal/dbx"
	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/shared"
)

// redacted replaces sensitive bound values in statement logs.
const redacted = "****"

// Engine provides create/read/update/delete operations for one entity type.
type Engine[E any] struct {
	sqlDB *sql.DB
	run   dbx.DBTX
	desc  *Descriptor[E]
	log   logging.Logger
}

func New[E any](db *sql.DB, desc *Descriptor[E], log logging.Logger) *Engine[E] {
	return &Engine[E]{sqlDB: db, run: db, desc: desc, log: log}
}

// Bind returns an engine that executes against the given handle, typically a
// transaction obtained from dbx.Begin. The caller keeps ownership of the
// transaction and decides when to commit or roll back.
func (e *Engine[E]) Bind(run dbx.DBTX) *Engine[E] {
	return &Engine[E]{sqlDB: e.sqlDB, run: run, desc: e.desc, log: e.log}
}

// InTx runs fn with a transaction-bound engine, committing on success and
// rolling back on error or panic.
func (e *Engine[E]) InTx(ctx context.Context, fn func(tx *Engine[E]) error) error {
	return dbx.WithTx(ctx, e.sqlDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(e.Bind(tx))
	})
}

// Find looks a single row up by its surrogate key.
func (e *Engine[E]) Find(ctx context.Context, id int64) (*E, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 LIMIT 1", e.selectList(), e.desc.Table)
	args := []any{id}

	e.logStatement(ctx, query, args)
	row := e.run.QueryRowContext(ctx, query, args...)
	ent, err := e.scanEntity(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, e.fail(ctx, query, args, err)
	}
	return ent, nil
}

// FindWhere returns the first row matching the given condition, or
// shared.ErrNotFound. The condition uses positional placeholders ($1, ...).
func (e *Engine[E]) FindWhere(ctx context.Context, cond string, args ...any) (*E, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", e.selectList(), e.desc.Table, cond)

	e.logStatement(ctx, query, args)
	row := e.run.QueryRowContext(ctx, query, args...)
	ent, err := e.scanEntity(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, e.fail(ctx, query, args, err)
	}
	return ent, nil
}

// All returns every row of the table, materialized eagerly.
func (e *Engine[E]) All(ctx context.Context) ([]*E, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", e.selectList(), e.desc.Table)

	e.logStatement(ctx, query, nil)
	rows, err := e.run.QueryContext(ctx, query)
	if err != nil {
		return nil, e.fail(ctx, query, nil, err)
	}
	defer rows.Close()

	var out []*E
	for rows.Next() {
		ent, err := e.scanEntity(rows.Scan)
		if err != nil {
			return nil, e.fail(ctx, query, nil, err)
		}
		out = append(out, ent)
	}
	if err := rows.Err(); err != nil {
		return nil, e.fail(ctx, query, nil, err)
	}
	return out, nil
}

// CountWhere runs an aggregate count with the given condition.
func (e *Engine[E]) CountWhere(ctx context.Context, cond string, args ...any) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", e.desc.Table, cond)

	e.logStatement(ctx, query, args)
	var n int64
	if err := e.run.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, e.fail(ctx, query, args, err)
	}
	return n, nil
}

// Save dispatches to an insert when the entity has no id yet, and to an
// update otherwise.
func (e *Engine[E]) Save(ctx context.Context, ent *E) error {
	if *e.desc.ID(ent) == 0 {
		return e.insert(ctx, ent)
	}
	return e.update(ctx, ent)
}

func (e *Engine[E]) insert(ctx context.Context, ent *E) error {
	cols := e.desc.Columns
	if len(cols) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNothingToPersist, e.desc.Table)
	}

	args, display, err := e.bindValues(ent)
	if err != nil {
		return err
	}

	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		e.desc.Table, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	e.logStatement(ctx, query, display)
	var id int64
	if err := e.run.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return e.fail(ctx, query, display, err)
	}
	*e.desc.ID(ent) = id
	return nil
}

func (e *Engine[E]) update(ctx context.Context, ent *E) error {
	id := *e.desc.ID(ent)
	if id == 0 {
		panic(fmt.Sprintf("storage: update on %s without an id", e.desc.Table))
	}

	cols := e.desc.Columns
	if len(cols) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNothingToPersist, e.desc.Table)
	}

	args, display, err := e.bindValues(ent)
	if err != nil {
		return err
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c.Name, i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		e.desc.Table, strings.Join(sets, ", "), len(cols)+1)
	args = append(args, id)
	display = append(display, id)

	e.logStatement(ctx, query, display)
	if _, err := e.run.ExecContext(ctx, query, args...); err != nil {
		return e.fail(ctx, query, display, err)
	}
	return nil
}

// Delete removes the entity's row and clears its identity. Calling Delete on
// an unsaved entity is a caller bug and panics.
func (e *Engine[E]) Delete(ctx context.Context, ent *E) error {
	id := *e.desc.ID(ent)
	if id == 0 {
		panic(fmt.Sprintf("storage: delete on %s without an id", e.desc.Table))
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", e.desc.Table)
	args := []any{id}

	e.logStatement(ctx, query, args)
	if _, err := e.run.ExecContext(ctx, query, args...); err != nil {
		return e.fail(ctx, query, args, err)
	}
	*e.desc.ID(ent) = 0
	return nil
}

// bindValues encodes the entity's attributes for binding and produces the
// redacted view used in logs.
func (e *Engine[E]) bindValues(ent *E) (args []any, display []any, err error) {
	cols := e.desc.Columns
	vals := e.desc.Values(ent)
	if len(vals) != len(cols) {
		return nil, nil, fmt.Errorf("descriptor %s: %d values for %d columns", e.desc.Table, len(vals), len(cols))
	}

	args = make([]any, len(cols))
	display = make([]any, len(cols))
	for i, c := range cols {
		v, err := encode(c, vals[i])
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
		if c.Sensitive {
			display[i] = redacted
		} else {
			display[i] = v
		}
	}
	return args, display, nil
}

func (e *Engine[E]) selectList() string {
	names := make([]string, 0, len(e.desc.Columns)+1)
	names = append(names, "id")
	for _, c := range e.desc.Columns {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

func (e *Engine[E]) scanEntity(scan func(dest ...any) error) (*E, error) {
	n := len(e.desc.Columns)

	var id int64
	raw := make([]any, n)
	dests := make([]any, 0, n+1)
	dests = append(dests, &id)
	for i := range raw {
		dests = append(dests, &raw[i])
	}

	if err := scan(dests...); err != nil {
		return nil, err
	}

	vals := make([]any, n)
	for i, c := range e.desc.Columns {
		v, err := decode(c, raw[i])
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	ent := new(E)
	if err := e.desc.Assign(ent, vals); err != nil {
		return nil, err
	}
	*e.desc.ID(ent) = id
	return ent, nil
}

func (e *Engine[E]) logStatement(ctx context.Context, query string, params []any) {
	e.log.Debug(ctx, "executing statement", "query", query, "params", params)
}

// fail records a storage fault with its full diagnostic context and hands it
// back to the caller; the engine never swallows one.
func (e *Engine[E]) fail(ctx context.Context, query string, params []any, err error) error {
	e.log.Error(ctx, "statement failed", "query", query, "params", params, "error", err.Error())
	return fmt.Errorf("db error: %w", err)
}
