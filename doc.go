// Package stratum is a unifying SQL client: one statement/result data model
// and one connection contract over interchangeable transports. The backend
// that actually executes the work (an embedded engine, a stateful pipelined
// protocol session, or a stateless HTTP endpoint) is selected from the
// connection descriptor's URL scheme at open time, so application code stays
// transport-agnostic.
//
// # Quick Start
//
// Import the backends the deployment needs (stratum/all pulls in every one)
// and open a connection:
//
//	import (
//	    "github.com/stratumdb/stratum-go"
//	    _ "github.com/stratumdb/stratum-go/all"
//	)
//
//	client, err := stratum.Open(ctx, "file:app.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.Execute(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
//	client.Execute(ctx, "INSERT INTO users (name) VALUES (?)", "Alice")
//
//	rs, _ := client.Execute(ctx, "SELECT id, name FROM users")
//	for _, row := range rs.Rows {
//	    fmt.Println(row[0], row[1])
//	}
//
// Remote endpoints use the same calls with a different descriptor:
//
//	stratum.Open(ctx, "stratums://db.example.com?jwt="+token)
//	stratum.Open(ctx, "https://db.example.com/v1?jwt="+token)
//
// # Batches
//
// Batch submits statements in order under one atomicity expectation: the
// embedded and pipelined backends roll everything back when any statement
// fails. The stateless HTTP backend forwards the batch in a single request
// and inherits whatever atomicity the server provides; see package web.
//
//	_, err = client.Batch(ctx, []*stratum.Statement{
//	    stratum.NewStatement("INSERT INTO users (name) VALUES (?)", "Bob"),
//	    stratum.NewStatement("INSERT INTO audit (msg) VALUES (?)", "added bob"),
//	})
//
// # Errors
//
// Failures carry a kind matched with errors.Is: ErrConfiguration and
// ErrUsage are raised before any I/O, ErrTransport and ErrTimeout cover the
// network, ErrProtocol flags a contract violation by a remote server, and
// ErrExecution carries the engine's own SQL-level message. Nothing is
// retried internally; retrying a non-idempotent batch is a caller decision.
package stratum
