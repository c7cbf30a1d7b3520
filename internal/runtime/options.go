package runtime

import (
	"log/slog"

	"github.com/handlegraph/followings-gateway/internal/storage"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithConfigFile points the gateway at a YAML config file to load and watch.
// The file does not have to exist; defaults plus environment variables then
// apply.
func WithConfigFile(path string) Option {
	return func(g *Gateway) error {
		g.configPath = path
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// WithResolutionStore overrides the config-selected audit store. The gateway
// takes ownership and closes it on shutdown.
func WithResolutionStore(store storage.ResolutionStore) Option {
	return func(g *Gateway) error {
		g.store = store
		return nil
	}
}
