// Package gateway provides the public API for embedding the followings
// gateway. This is the stable API for external consumers; everything under
// internal/ may change without notice.
package gateway

import (
	"github.com/handlegraph/followings-gateway/internal/runtime"
)

// Gateway runs the resolution pipeline behind an HTTP server.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// New creates a new Gateway with the given options.
// Example:
//
//	gw, err := gateway.New(
//	    gateway.WithConfigFile("config.yaml"),
//	)
var New = runtime.New

// Configuration options
var (
	WithConfigFile      = runtime.WithConfigFile
	WithLogger          = runtime.WithLogger
	WithResolutionStore = runtime.WithResolutionStore
)
