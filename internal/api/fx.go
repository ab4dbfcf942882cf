// Package api is the HTTP server in front of the hub.
//
// It decodes and validates requests, hands them to the ingestion pipeline or
// the repository and renders the results.
package api

import (
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Provide(
		NewServer,
	),
)
