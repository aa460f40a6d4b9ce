// Package pipeline is the remote pipelined backend: a stateful TCP (or
// TLS, scheme "stratums") session speaking newline-delimited JSON messages.
// A batch travels as one wire exchange containing every statement, and the
// server brackets it in a transaction, so batch atomicity is a property of
// a single round trip rather than of N sequential calls.
//
// The session is owned by the backend and guarded by a mutex; concurrent
// callers are serialized rather than interleaved on the wire.
package pipeline

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	stratum "github.com/stratumdb/stratum-go"
	"github.com/stratumdb/stratum-go/wire"
)

func init() {
	stratum.Register("stratum", driver{})
	stratum.Register("stratums", driver{})
}

type driver struct{}

func (driver) Connect(ctx context.Context, cfg stratum.Config) (stratum.Backend, error) {
	return Connect(ctx, cfg)
}

const dialTimeout = 10 * time.Second

// Backend is one pipelined-protocol session.
type Backend struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	session string
	closed  bool
}

// Connect dials the endpoint and performs the hello handshake, sending the
// auth token from the descriptor. A rejected token surfaces as a
// configuration error.
func Connect(ctx context.Context, cfg stratum.Config) (*Backend, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, classifyNetErr(err, "dial %s", cfg.Addr)
	}
	if cfg.TLS {
		host, _, splitErr := net.SplitHostPort(cfg.Addr)
		if splitErr != nil {
			host = cfg.Addr
		}
		tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, classifyNetErr(err, "TLS handshake with %s", cfg.Addr)
		}
		conn = tlsConn
	}

	b := &Backend{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		session: uuid.NewString(),
	}
	resp, err := b.roundTrip(ctx, wire.Request{
		Type:    wire.MsgHello,
		Session: b.session,
		Token:   cfg.AuthToken,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	switch resp.Type {
	case wire.MsgHelloOK:
		return b, nil
	case wire.MsgError:
		conn.Close()
		if resp.Error != nil && resp.Error.Code == wire.CodeAuth {
			return nil, stratum.ConfigError("server rejected credentials: %s", resp.Error.Message)
		}
		return nil, stratum.ProtocolError("session open failed: %s", respErrMessage(resp))
	default:
		conn.Close()
		return nil, stratum.ProtocolError("unexpected %q reply to hello", resp.Type)
	}
}

// Execute sends one statement and reads its result.
func (b *Backend) Execute(ctx context.Context, stmt *stratum.Statement) (*stratum.ResultSet, error) {
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ws := wire.FromStatement(stmt)
	resp, err := b.roundTrip(ctx, wire.Request{Type: wire.MsgExecute, Stmt: &ws})
	if err != nil {
		return nil, err
	}
	switch resp.Type {
	case wire.MsgResult:
		if resp.Result == nil {
			return nil, stratum.ProtocolError("result message without a result body")
		}
		return resp.Result.ToResultSet()
	case wire.MsgError:
		return nil, stratum.ExecutionError(errors.New(respErrMessage(resp)), "execute %q", stmt.SQL)
	default:
		return nil, stratum.ProtocolError("unexpected %q reply to execute", resp.Type)
	}
}

// Batch sends every statement in one request. The server executes them in
// order inside a transaction; on failure it rolls back and reports the
// first error, so no partial effects survive. A response whose result
// count differs from the request count is a protocol violation, reported
// distinctly from SQL-level failures.
func (b *Backend) Batch(ctx context.Context, stmts []*stratum.Statement) ([]*stratum.ResultSet, error) {
	steps := make([]wire.Stmt, len(stmts))
	for i, stmt := range stmts {
		if err := stmt.Validate(); err != nil {
			return nil, err
		}
		steps[i] = wire.FromStatement(stmt)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	resp, err := b.roundTrip(ctx, wire.Request{Type: wire.MsgBatch, Steps: steps})
	if err != nil {
		return nil, err
	}
	switch resp.Type {
	case wire.MsgBatchResult:
		if len(resp.Results) != len(stmts) {
			return nil, stratum.ProtocolError("server returned %d results for %d statements", len(resp.Results), len(stmts))
		}
		results := make([]*stratum.ResultSet, len(resp.Results))
		for i, r := range resp.Results {
			rs, err := r.ToResultSet()
			if err != nil {
				return nil, err
			}
			results[i] = rs
		}
		return results, nil
	case wire.MsgError:
		return nil, stratum.ExecutionError(errors.New(respErrMessage(resp)), "batch of %d statements rolled back", len(stmts))
	default:
		return nil, stratum.ProtocolError("unexpected %q reply to batch", resp.Type)
	}
}

// Close tells the server the session is done and drops the connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	// Best effort; the connection teardown is what matters.
	if data, err := wire.EncodeRequest(wire.Request{Type: wire.MsgClose}); err == nil {
		b.conn.SetWriteDeadline(time.Now().Add(time.Second))
		b.conn.Write(data)
	}
	return b.conn.Close()
}

// roundTrip writes one request line and reads one response line. The
// context deadline, when present, becomes the connection deadline for the
// whole exchange. Callers hold b.mu.
func (b *Backend) roundTrip(ctx context.Context, req wire.Request) (wire.Response, error) {
	if b.closed {
		return wire.Response{}, stratum.TransportError(net.ErrClosed, "session closed")
	}
	if deadline, ok := ctx.Deadline(); ok {
		b.conn.SetDeadline(deadline)
	} else {
		b.conn.SetDeadline(time.Time{})
	}

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return wire.Response{}, stratum.ProtocolError("encode request: %v", err)
	}
	if _, err := b.conn.Write(data); err != nil {
		b.fail()
		return wire.Response{}, classifyNetErr(err, "write to %s", b.conn.RemoteAddr())
	}
	line, err := b.reader.ReadBytes('\n')
	if err != nil {
		b.fail()
		return wire.Response{}, classifyNetErr(err, "read from %s", b.conn.RemoteAddr())
	}
	resp, err := wire.DecodeResponse(line)
	if err != nil {
		return wire.Response{}, stratum.ProtocolError("malformed response: %v", err)
	}
	return resp, nil
}

// fail marks the session broken and drops the connection. After a
// transport-level failure mid-exchange the stream framing cannot be
// trusted: a late response may still arrive and would be misread as the
// answer to the next request. Callers hold b.mu.
func (b *Backend) fail() {
	if b.closed {
		return
	}
	b.closed = true
	b.conn.Close()
}

func respErrMessage(resp wire.Response) string {
	if resp.Error == nil {
		return "unknown server error"
	}
	return resp.Error.Message
}

func classifyNetErr(err error, format string, args ...any) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return stratum.TimeoutError(err, format, args...)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return stratum.TimeoutError(err, format, args...)
	}
	return stratum.TransportError(err, format, args...)
}
