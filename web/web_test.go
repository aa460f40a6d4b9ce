package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	stratum "github.com/stratumdb/stratum-go"
	"github.com/stratumdb/stratum-go/wire"
)

// resultFor builds a canned single-column result.
func resultFor(v stratum.Value) wire.StmtResult {
	return wire.FromResultSet(&stratum.ResultSet{
		Columns: []stratum.Column{{Name: "value"}},
		Rows:    [][]stratum.Value{{v}},
	})
}

func decodeStatements(t *testing.T, r *http.Request) []wire.Stmt {
	t.Helper()
	var req wire.HTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("Failed to decode request body: %v", err)
	}
	return req.Statements
}

func writeResults(t *testing.T, w http.ResponseWriter, results []wire.HTTPResult) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		t.Fatalf("Failed to encode response: %v", err)
	}
}

func TestWebExecute(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		stmts := decodeStatements(t, r)
		if len(stmts) != 1 {
			t.Errorf("Expected 1 statement, got %d", len(stmts))
		}
		res := resultFor(stratum.Integer(42))
		writeResults(t, w, []wire.HTTPResult{{Results: &res}})
	}))
	defer server.Close()

	b, err := New(stratum.Config{URL: server.URL, AuthToken: "tok"})
	if err != nil {
		t.Fatalf("Failed to build backend: %v", err)
	}
	defer b.Close()

	rs, err := b.Execute(context.Background(), stratum.NewStatement("SELECT 42"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(rs.Rows) != 1 || !rs.Rows[0][0].Equal(stratum.Integer(42)) {
		t.Errorf("Expected [42], got %v", rs.Rows)
	}
	if gotAuth.Load() != "Bearer tok" {
		t.Errorf("Expected bearer token header, got %q", gotAuth.Load())
	}
}

func TestWebBatchOrderPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stmts := decodeStatements(t, r)
		results := make([]wire.HTTPResult, len(stmts))
		for i := range stmts {
			res := resultFor(stratum.Integer(int64(i)))
			results[i] = wire.HTTPResult{Results: &res}
		}
		writeResults(t, w, results)
	}))
	defer server.Close()

	b, err := New(stratum.Config{URL: server.URL})
	if err != nil {
		t.Fatalf("Failed to build backend: %v", err)
	}
	defer b.Close()

	results, err := b.Batch(context.Background(), []*stratum.Statement{
		stratum.NewStatement("SELECT 0"),
		stratum.NewStatement("SELECT 1"),
		stratum.NewStatement("SELECT 2"),
	})
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	for i, rs := range results {
		if !rs.Rows[0][0].Equal(stratum.Integer(int64(i))) {
			t.Errorf("Result %d out of order: %v", i, rs.Rows[0][0])
		}
	}
}

func TestWebResultCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stmts := decodeStatements(t, r)
		// Return fewer results than statements sent.
		writeResults(t, w, make([]wire.HTTPResult, 0, len(stmts)))
	}))
	defer server.Close()

	b, err := New(stratum.Config{URL: server.URL})
	if err != nil {
		t.Fatalf("Failed to build backend: %v", err)
	}
	defer b.Close()

	_, err = b.Batch(context.Background(), []*stratum.Statement{
		stratum.NewStatement("SELECT 1"),
		stratum.NewStatement("SELECT 2"),
	})
	if !errors.Is(err, stratum.ErrProtocol) {
		t.Errorf("Expected ErrProtocol for truncated response, got %v", err)
	}
}

func TestWebExecutionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResults(t, w, []wire.HTTPResult{{Error: &wire.Error{Message: "no such table: missing"}}})
	}))
	defer server.Close()

	b, err := New(stratum.Config{URL: server.URL})
	if err != nil {
		t.Fatalf("Failed to build backend: %v", err)
	}
	defer b.Close()

	_, err = b.Execute(context.Background(), stratum.NewStatement("SELECT * FROM missing"))
	if !errors.Is(err, stratum.ErrExecution) {
		t.Errorf("Expected ErrExecution, got %v", err)
	}
}

func TestWebUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	b, err := New(stratum.Config{URL: server.URL, AuthToken: "expired"})
	if err != nil {
		t.Fatalf("Failed to build backend: %v", err)
	}
	defer b.Close()

	_, err = b.Execute(context.Background(), stratum.NewStatement("SELECT 1"))
	if !errors.Is(err, stratum.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for HTTP 401, got %v", err)
	}
}

func TestWebQueryURLRouting(t *testing.T) {
	var writeHits, readHits atomic.Int64
	handler := func(hits *atomic.Int64) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			stmts := decodeStatements(t, r)
			results := make([]wire.HTTPResult, len(stmts))
			for i := range stmts {
				res := resultFor(stratum.Null())
				results[i] = wire.HTTPResult{Results: &res}
			}
			writeResults(t, w, results)
		}
	}
	writeServer := httptest.NewServer(handler(&writeHits))
	defer writeServer.Close()
	readServer := httptest.NewServer(handler(&readHits))
	defer readServer.Close()

	b, err := New(stratum.Config{URL: writeServer.URL, QueryURL: readServer.URL})
	if err != nil {
		t.Fatalf("Failed to build backend: %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	if _, err := b.Execute(ctx, stratum.NewStatement("SELECT 1")); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, err := b.Execute(ctx, stratum.NewStatement("INSERT INTO t VALUES (1)")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if readHits.Load() != 1 {
		t.Errorf("Expected 1 read-endpoint hit, got %d", readHits.Load())
	}
	if writeHits.Load() != 1 {
		t.Errorf("Expected 1 write-endpoint hit, got %d", writeHits.Load())
	}
}

func TestWebTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // connection now refused

	b, err := New(stratum.Config{URL: url})
	if err != nil {
		t.Fatalf("Failed to build backend: %v", err)
	}
	defer b.Close()

	_, err = b.Execute(context.Background(), stratum.NewStatement("SELECT 1"))
	if !errors.Is(err, stratum.ErrTransport) {
		t.Errorf("Expected ErrTransport for refused connection, got %v", err)
	}
}

func TestNewWithClientValidation(t *testing.T) {
	if _, err := New(stratum.Config{}); !errors.Is(err, stratum.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for missing URL, got %v", err)
	}
	if _, err := NewWithClient(stratum.Config{URL: "http://x"}, nil); !errors.Is(err, stratum.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for nil client, got %v", err)
	}
}
