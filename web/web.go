// Package web is the stateless HTTP backend. Every Execute or Batch call
// is one independent POST carrying the statements as JSON; no session state
// persists between calls beyond the endpoint and auth header.
//
// Batch forwards all statements in a single request so the server can
// apply them atomically when it supports a transactional batch endpoint.
// Against a server without one, batch atomicity is best effort: a network
// failure mid-request may leave partial effects, and callers must not
// assume otherwise.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	stratum "github.com/stratumdb/stratum-go"
	"github.com/stratumdb/stratum-go/wire"
)

func init() {
	stratum.Register("http", driver{})
	stratum.Register("https", driver{})
}

type driver struct{}

func (driver) Connect(ctx context.Context, cfg stratum.Config) (stratum.Backend, error) {
	return New(cfg)
}

const defaultTimeout = 30 * time.Second

// Backend is a stateless HTTP adapter. The underlying http.Client pools
// connections and may safely serve concurrent callers.
type Backend struct {
	endpoint string
	// queryEndpoint, when set, receives read-only statements.
	queryEndpoint string
	token         string
	client        *http.Client
}

// New builds a backend with a default client. Platform variants that need
// their own transport, TLS setup or timeout policy use NewWithClient.
func New(cfg stratum.Config) (*Backend, error) {
	return NewWithClient(cfg, &http.Client{Timeout: defaultTimeout})
}

// NewWithClient builds a backend around a caller-supplied http.Client.
func NewWithClient(cfg stratum.Config, client *http.Client) (*Backend, error) {
	if cfg.URL == "" {
		return nil, stratum.ConfigError("HTTP backend requires an endpoint URL")
	}
	if client == nil {
		return nil, stratum.ConfigError("HTTP backend requires a client")
	}
	return &Backend{
		endpoint:      cfg.URL,
		queryEndpoint: cfg.QueryURL,
		token:         cfg.AuthToken,
		client:        client,
	}, nil
}

// Execute posts a single-statement batch and returns its one result.
func (b *Backend) Execute(ctx context.Context, stmt *stratum.Statement) (*stratum.ResultSet, error) {
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	url := b.endpoint
	if b.queryEndpoint != "" && stmt.IsReadOnly() {
		url = b.queryEndpoint
	}
	results, err := b.post(ctx, url, []*stratum.Statement{stmt})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Batch posts every statement in one request and returns the per-statement
// results in request order. Fewer or more results than statements is a
// protocol violation, never silently truncated.
func (b *Backend) Batch(ctx context.Context, stmts []*stratum.Statement) ([]*stratum.ResultSet, error) {
	for _, stmt := range stmts {
		if err := stmt.Validate(); err != nil {
			return nil, err
		}
	}
	return b.post(ctx, b.endpoint, stmts)
}

// Close is a no-op beyond dropping idle pooled connections; there is no
// session to tear down.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func (b *Backend) post(ctx context.Context, url string, stmts []*stratum.Statement) ([]*stratum.ResultSet, error) {
	payload := wire.HTTPRequest{Statements: make([]wire.Stmt, len(stmts))}
	for i, stmt := range stmts {
		payload.Statements[i] = wire.FromStatement(stmt)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, stratum.ProtocolError("encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, stratum.ConfigError("bad endpoint URL %q: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, classifyNetErr(err, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, stratum.ConfigError("server rejected credentials (HTTP %d)", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetErr(err, url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, stratum.ExecutionError(
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(raw)),
			"request to %s failed", url)
	}

	var results []wire.HTTPResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, stratum.ProtocolError("malformed response body: %v", err)
	}
	if len(results) != len(stmts) {
		return nil, stratum.ProtocolError("server returned %d results for %d statements", len(results), len(stmts))
	}

	out := make([]*stratum.ResultSet, len(results))
	for i, r := range results {
		if r.Error != nil {
			return nil, stratum.ExecutionError(errors.New(r.Error.Message), "execute %q", stmts[i].SQL)
		}
		if r.Results == nil {
			return nil, stratum.ProtocolError("statement %d has neither results nor error", i)
		}
		rs, err := r.Results.ToResultSet()
		if err != nil {
			return nil, err
		}
		out[i] = rs
	}
	return out, nil
}

func classifyNetErr(err error, url string) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return stratum.TimeoutError(err, "request to %s timed out", url)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return stratum.TimeoutError(err, "request to %s timed out", url)
	}
	return stratum.TransportError(err, "request to %s failed", url)
}
