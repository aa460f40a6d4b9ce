package stratum

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Backend is the contract every transport adapter implements. Application
// code never branches on which concrete backend is in use.
//
// Execute runs one statement. Batch runs statements in order under a single
// atomicity expectation: the embedded and pipelined backends roll back every
// prior effect on failure; the stateless HTTP backend's atomicity depends on
// the server and is documented as best effort by that package.
type Backend interface {
	Execute(ctx context.Context, stmt *Statement) (*ResultSet, error)
	Batch(ctx context.Context, stmts []*Statement) ([]*ResultSet, error)
	Close() error
}

// Driver constructs a Backend from a parsed connection descriptor. Backend
// packages register a Driver for each URL scheme they serve; importing the
// package is what enables it, in the database/sql manner.
type Driver interface {
	Connect(ctx context.Context, cfg Config) (Backend, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a Driver available under the given URL scheme. It panics
// when the scheme is already taken, which points at a duplicate import.
func Register(scheme string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("stratum: Register driver is nil")
	}
	if _, dup := drivers[scheme]; dup {
		panic(fmt.Sprintf("stratum: Register called twice for scheme %q", scheme))
	}
	drivers[scheme] = driver
}

func lookupDriver(scheme string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[scheme]
	if !ok {
		return nil, ConfigError("unsupported scheme %q (registered: %v)", scheme, registeredSchemes())
	}
	return d, nil
}

// registeredSchemes returns the sorted scheme list; callers hold driversMu.
func registeredSchemes() []string {
	schemes := make([]string, 0, len(drivers))
	for s := range drivers {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}
