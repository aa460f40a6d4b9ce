// Package all enables every backend by importing each backend package for
// its registration side effect. Deployments that only need a subset import
// the individual packages instead; the factory's scheme matching is the
// same either way.
package all

import (
	_ "github.com/stratumdb/stratum-go/local"
	_ "github.com/stratumdb/stratum-go/pipeline"
	_ "github.com/stratumdb/stratum-go/web"
)
