package stratum

import (
	"context"
	"errors"
)

// ErrNoRows is returned by QueryRow when the statement produced no rows.
var ErrNoRows = errors.New("no rows in result set")

// Client is the user-facing connection façade. It wraps one Backend and
// forwards execute/batch calls after validating statement shape, so no
// malformed statement ever reaches a transport.
//
// The backend handle is owned exclusively by its Client. Unless the backend
// package documents otherwise, sharing one Client across goroutines
// requires the caller to serialize access.
type Client struct {
	backend Backend
	cfg     Config
}

// Open parses a connection descriptor and connects the backend its scheme
// selects. The matching backend package must be imported (package
// stratum/all imports every backend).
func Open(ctx context.Context, rawURL string) (*Client, error) {
	cfg, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return FromConfig(ctx, cfg)
}

// FromConfig connects the backend selected by an already-built Config.
func FromConfig(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.checkAuth(); err != nil {
		return nil, err
	}
	driver, err := lookupDriver(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	backend, err := driver.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{backend: backend, cfg: cfg}, nil
}

// NewClient wraps an already-constructed Backend. Useful for tests and for
// deployments that build backends directly.
func NewClient(backend Backend) *Client {
	return &Client{backend: backend}
}

// Execute runs one statement built from SQL text and positional
// parameters.
func (c *Client) Execute(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	return c.ExecuteStatement(ctx, NewStatement(sql, args...))
}

// ExecuteStatement runs one prepared Statement.
func (c *Client) ExecuteStatement(ctx context.Context, stmt *Statement) (*ResultSet, error) {
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	return c.backend.Execute(ctx, stmt)
}

// Batch runs statements in order under the backend's transaction
// semantics: all of them commit or none do, except where the backend
// package documents best-effort behavior. Every statement is validated
// before the first one is sent.
func (c *Client) Batch(ctx context.Context, stmts []*Statement) ([]*ResultSet, error) {
	if len(stmts) == 0 {
		return nil, UsageError("empty batch")
	}
	for _, stmt := range stmts {
		if err := stmt.Validate(); err != nil {
			return nil, err
		}
	}
	return c.backend.Batch(ctx, stmts)
}

// Transaction is Batch under its transactional name.
func (c *Client) Transaction(ctx context.Context, stmts []*Statement) ([]*ResultSet, error) {
	return c.Batch(ctx, stmts)
}

// QueryRow runs a statement and returns its first row, or ErrNoRows.
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) ([]Value, error) {
	rs, err := c.Execute(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rs.Rows) == 0 {
		return nil, ErrNoRows
	}
	return rs.Rows[0], nil
}

// Config returns the descriptor the Client was opened with.
func (c *Client) Config() Config { return c.cfg }

// Close releases the backend's session state.
func (c *Client) Close() error { return c.backend.Close() }
