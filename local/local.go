// Package local is the embedded backend: it drives an in-process engine
// through database/sql. Two engines are wired in, selected by the
// descriptor scheme: sqlite (schemes "file", "sqlite", plain paths and
// ":memory:") and duckdb (scheme "duckdb").
//
// Every call prepares the statement, binds its parameters, steps the
// result rows into the uniform model and finalizes the prepared statement
// before returning. Batches run inside an explicit transaction and roll
// back fully on the first error. The embedded session handle is not safe
// to share, so the backend serializes calls internally.
package local

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	stratum "github.com/stratumdb/stratum-go"
)

func init() {
	for _, scheme := range []string{"file", "sqlite", "duckdb"} {
		stratum.Register(scheme, driver{})
	}
}

type driver struct{}

func (driver) Connect(ctx context.Context, cfg stratum.Config) (stratum.Backend, error) {
	name := "sqlite3"
	if cfg.Scheme == "duckdb" {
		name = "duckdb"
	}
	db, err := sql.Open(name, cfg.Path)
	if err != nil {
		return nil, stratum.ConfigError("cannot open %s database %q: %v", cfg.Scheme, cfg.Path, err)
	}
	// One underlying engine session. database/sql would otherwise open a
	// second connection mid-transaction, which for :memory: databases is a
	// different database entirely.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, stratum.ConfigError("cannot open %s database %q: %v", cfg.Scheme, cfg.Path, err)
	}
	return &Backend{db: db}, nil
}

// Backend is an embedded-engine session.
type Backend struct {
	mu sync.Mutex
	db *sql.DB
}

// Open connects an embedded backend directly, bypassing the registry.
func Open(ctx context.Context, cfg stratum.Config) (*Backend, error) {
	b, err := driver{}.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return b.(*Backend), nil
}

// preparer is satisfied by both *sql.DB and *sql.Tx.
type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Execute runs one statement against the embedded engine.
func (b *Backend) Execute(ctx context.Context, stmt *stratum.Statement) (*stratum.ResultSet, error) {
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return runStatement(ctx, b.db, stmt)
}

// Batch runs statements in order inside one transaction. On any failure
// the transaction rolls back and the first error is returned; no prior
// effect from the batch survives.
func (b *Backend) Batch(ctx context.Context, stmts []*stratum.Statement) ([]*stratum.ResultSet, error) {
	for _, stmt := range stmts {
		if err := stmt.Validate(); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, stratum.ExecutionError(err, "begin transaction")
	}
	results := make([]*stratum.ResultSet, 0, len(stmts))
	for _, stmt := range stmts {
		rs, err := runStatement(ctx, tx, stmt)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		results = append(results, rs)
	}
	if err := tx.Commit(); err != nil {
		return nil, stratum.ExecutionError(err, "commit transaction")
	}
	return results, nil
}

// Close releases the engine session.
func (b *Backend) Close() error {
	return b.db.Close()
}

func runStatement(ctx context.Context, p preparer, stmt *stratum.Statement) (*stratum.ResultSet, error) {
	prepared, err := p.PrepareContext(ctx, stmt.SQL)
	if err != nil {
		return nil, wrapEngineErr(ctx, err, stmt.SQL)
	}
	// Finalize before returning; no prepared-statement state leaks across
	// calls.
	defer prepared.Close()

	args := bindArgs(stmt)
	if stmt.ReturnsRows() {
		rows, err := prepared.QueryContext(ctx, args...)
		if err != nil {
			return nil, wrapEngineErr(ctx, err, stmt.SQL)
		}
		defer rows.Close()
		return scanRows(ctx, rows)
	}

	res, err := prepared.ExecContext(ctx, args...)
	if err != nil {
		return nil, wrapEngineErr(ctx, err, stmt.SQL)
	}
	rs := &stratum.ResultSet{}
	if n, err := res.RowsAffected(); err == nil {
		rs.RowsAffected = n
	}
	// duckdb reports no rowid; the field stays zero there.
	if id, err := res.LastInsertId(); err == nil {
		rs.LastInsertID = id
	}
	return rs, nil
}

func bindArgs(stmt *stratum.Statement) []any {
	if len(stmt.Named) > 0 {
		args := make([]any, len(stmt.Named))
		for i, n := range stmt.Named {
			args[i] = sql.Named(n.Name, n.Value.Native())
		}
		return args
	}
	args := make([]any, len(stmt.Args))
	for i, v := range stmt.Args {
		args[i] = v.Native()
	}
	return args
}

func scanRows(ctx context.Context, rows *sql.Rows) (*stratum.ResultSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, stratum.ExecutionError(err, "read column metadata")
	}
	rs := &stratum.ResultSet{Columns: make([]stratum.Column, len(types))}
	for i, t := range types {
		rs.Columns[i] = stratum.Column{Name: t.Name(), DeclType: t.DatabaseTypeName()}
	}

	for rows.Next() {
		dest := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, stratum.ExecutionError(err, "scan row")
		}
		row := make([]stratum.Value, len(dest))
		for i, d := range dest {
			v, err := stratum.ValueOf(d)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapEngineErr(ctx, err, "")
	}
	return rs, nil
}

// wrapEngineErr classifies an engine failure: context expiry is a timeout,
// everything else is a SQL-level execution error.
func wrapEngineErr(ctx context.Context, err error, sql string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stratum.TimeoutError(err, "statement timed out")
	}
	if sql != "" {
		return stratum.ExecutionError(err, "execute %q", sql)
	}
	return stratum.ExecutionError(err, "execute statement")
}
