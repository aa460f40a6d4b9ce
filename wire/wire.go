// Package wire defines the JSON shapes the remote backends exchange with
// their servers: tagged values, statements, per-statement results, and the
// message envelopes of the pipelined protocol.
//
// Pipelined messages are newline-delimited JSON, one message per line.
// Integers travel as strings so 64-bit values survive JSON number handling;
// blobs travel base64-encoded.
package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	stratum "github.com/stratumdb/stratum-go"
)

// Message types of the pipelined protocol.
const (
	MsgHello   = "hello"
	MsgExecute = "execute"
	MsgBatch   = "batch"
	MsgClose   = "close"

	MsgHelloOK     = "hello_ok"
	MsgResult      = "result"
	MsgBatchResult = "batch_result"
	MsgError       = "error"
)

// Error codes a server may attach to an error response.
const (
	CodeAuth = "AUTH"
	CodeSQL  = "SQL"
)

// Value is a database scalar in wire form.
type Value struct {
	V stratum.Value
}

type valueJSON struct {
	Type   string          `json:"type"`
	Value  json.RawMessage `json:"value,omitempty"`
	Base64 string          `json:"base64,omitempty"`
}

// MarshalJSON encodes the value with a type tag.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.V.Type() {
	case stratum.TypeNull:
		return json.Marshal(valueJSON{Type: "null"})
	case stratum.TypeInteger:
		i, _ := v.V.Int64()
		raw, _ := json.Marshal(strconv.FormatInt(i, 10))
		return json.Marshal(valueJSON{Type: "integer", Value: raw})
	case stratum.TypeReal:
		f, _ := v.V.Float64()
		// JSON has no representation for NaN or infinities; reject them
		// loudly instead of emitting a payload-less value.
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite real %v cannot be encoded", f)
		}
		raw, err := json.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("encode real %v: %w", f, err)
		}
		return json.Marshal(valueJSON{Type: "real", Value: raw})
	case stratum.TypeText:
		s, _ := v.V.Text()
		raw, _ := json.Marshal(s)
		return json.Marshal(valueJSON{Type: "text", Value: raw})
	case stratum.TypeBlob:
		b, _ := v.V.Bytes()
		return json.Marshal(valueJSON{Type: "blob", Base64: base64.StdEncoding.EncodeToString(b)})
	default:
		return nil, fmt.Errorf("unencodable value type %v", v.V.Type())
	}
}

// UnmarshalJSON decodes a tagged value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw valueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "null", "":
		v.V = stratum.Null()
	case "integer":
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("integer value is not a string: %w", err)
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("bad integer value %q: %w", s, err)
		}
		v.V = stratum.Integer(i)
	case "real":
		var f float64
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return fmt.Errorf("bad real value: %w", err)
		}
		v.V = stratum.Real(f)
	case "text":
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("bad text value: %w", err)
		}
		v.V = stratum.Text(s)
	case "blob":
		b, err := base64.StdEncoding.DecodeString(raw.Base64)
		if err != nil {
			return fmt.Errorf("bad blob value: %w", err)
		}
		v.V = stratum.Blob(b)
	default:
		return fmt.Errorf("unknown value type %q", raw.Type)
	}
	return nil
}

// NamedArg is a named statement parameter in wire form.
type NamedArg struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Stmt is a statement in wire form.
type Stmt struct {
	SQL       string     `json:"sql"`
	Args      []Value    `json:"args,omitempty"`
	NamedArgs []NamedArg `json:"named_args,omitempty"`
	WantRows  bool       `json:"want_rows"`
}

// FromStatement converts a client statement to its wire form.
func FromStatement(stmt *stratum.Statement) Stmt {
	out := Stmt{SQL: stmt.SQL, WantRows: stmt.ReturnsRows()}
	for _, arg := range stmt.Args {
		out.Args = append(out.Args, Value{V: arg})
	}
	for _, n := range stmt.Named {
		out.NamedArgs = append(out.NamedArgs, NamedArg{Name: n.Name, Value: Value{V: n.Value}})
	}
	return out
}

// ToStatement converts a wire statement back to the client model. Servers
// use this on the receiving side.
func (s Stmt) ToStatement() *stratum.Statement {
	stmt := stratum.NewStatement(s.SQL)
	for _, arg := range s.Args {
		stmt.Bind(arg.V)
	}
	for _, n := range s.NamedArgs {
		stmt.BindNamed(n.Name, n.Value.V)
	}
	return stmt
}

// Col describes one result column.
type Col struct {
	Name     string `json:"name"`
	DeclType string `json:"decltype,omitempty"`
}

// StmtResult is the result of one statement in wire form.
type StmtResult struct {
	Cols         []Col     `json:"cols"`
	Rows         [][]Value `json:"rows"`
	AffectedRows int64     `json:"affected_rows"`
	LastInsertID int64     `json:"last_insert_id,omitempty"`
}

// ToResultSet converts a wire result to the client model, checking the
// row-width invariant. A row whose width differs from the column count is a
// protocol violation.
func (r StmtResult) ToResultSet() (*stratum.ResultSet, error) {
	rs := &stratum.ResultSet{
		RowsAffected: r.AffectedRows,
		LastInsertID: r.LastInsertID,
	}
	for _, c := range r.Cols {
		rs.Columns = append(rs.Columns, stratum.Column{Name: c.Name, DeclType: c.DeclType})
	}
	for i, row := range r.Rows {
		if len(row) != len(r.Cols) {
			return nil, stratum.ProtocolError("row %d has %d values for %d columns", i, len(row), len(r.Cols))
		}
		vals := make([]stratum.Value, len(row))
		for j, v := range row {
			vals[j] = v.V
		}
		rs.Rows = append(rs.Rows, vals)
	}
	return rs, nil
}

// FromResultSet converts a client result to wire form. Servers use this on
// the sending side.
func FromResultSet(rs *stratum.ResultSet) StmtResult {
	out := StmtResult{
		AffectedRows: rs.RowsAffected,
		LastInsertID: rs.LastInsertID,
	}
	for _, c := range rs.Columns {
		out.Cols = append(out.Cols, Col{Name: c.Name, DeclType: c.DeclType})
	}
	for _, row := range rs.Rows {
		vals := make([]Value, len(row))
		for j, v := range row {
			vals[j] = Value{V: v}
		}
		out.Rows = append(out.Rows, vals)
	}
	return out
}

// Error is a server-reported failure.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Request is a client-to-server message of the pipelined protocol.
type Request struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Token   string `json:"token,omitempty"`
	Stmt    *Stmt  `json:"stmt,omitempty"`
	Steps   []Stmt `json:"steps,omitempty"`
}

// Response is a server-to-client message of the pipelined protocol.
type Response struct {
	Type    string       `json:"type"`
	Error   *Error       `json:"error,omitempty"`
	Result  *StmtResult  `json:"result,omitempty"`
	Results []StmtResult `json:"results,omitempty"`
}

// EncodeRequest serializes a request, newline-terminated for line framing.
func EncodeRequest(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses one request line.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}

// EncodeResponse serializes a response, newline-terminated for line framing.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeResponse parses one response line.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	err := json.Unmarshal(data, &resp)
	return resp, err
}

// HTTPRequest is the body of a stateless HTTP batch call.
type HTTPRequest struct {
	Statements []Stmt `json:"statements"`
}

// HTTPResult is one element of a stateless HTTP response body. The body is
// a JSON array with one element per submitted statement, in order.
type HTTPResult struct {
	Results *StmtResult `json:"results,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}
