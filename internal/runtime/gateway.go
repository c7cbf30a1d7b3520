// Package runtime assembles the gateway from configuration and manages its
// lifecycle: the upstream adapter, resolution pipeline, audit store,
// telemetry, HTTP server, and config hot-reload.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/handlegraph/followings-gateway/internal/config"
	"github.com/handlegraph/followings-gateway/internal/frontdoor"
	"github.com/handlegraph/followings-gateway/internal/pipeline"
	"github.com/handlegraph/followings-gateway/internal/pkg/safehttp"
	"github.com/handlegraph/followings-gateway/internal/server"
	"github.com/handlegraph/followings-gateway/internal/storage"
	"github.com/handlegraph/followings-gateway/internal/storage/memory"
	"github.com/handlegraph/followings-gateway/internal/storage/sqlite"
	"github.com/handlegraph/followings-gateway/internal/telemetry"
	"github.com/handlegraph/followings-gateway/internal/upstream"
)

// serviceName labels traces, metrics, and server spans for this service.
const serviceName = "followings-gateway"

// Gateway wires configuration, the resolution pipeline, storage, and the
// HTTP server into one runnable unit. It can be embedded in a larger program
// or run standalone from cmd/gateway.
type Gateway struct {
	config   *config.Provider
	store    storage.ResolutionStore
	resolver *resolverHandle
	srv      *server.Server
	logger   *slog.Logger

	configPath string

	// telemetryShutdowns flushes exporters on shutdown.
	telemetryShutdowns []func(context.Context) error

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New creates a Gateway. A config file is required.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger:   slog.Default(),
		resolver: &resolverHandle{},
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.config == nil {
		if gw.configPath == "" {
			return nil, fmt.Errorf("config file required (use WithConfigFile)")
		}
		provider, err := config.NewProvider(gw.configPath, gw.logger)
		if err != nil {
			return nil, fmt.Errorf("create config provider: %w", err)
		}
		gw.config = provider
	}

	return gw, nil
}

// Start loads configuration, builds the pipeline, and begins serving. It
// returns once the listener is launched; listener failures surface in logs.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ctx, g.cancel = context.WithCancel(ctx)

	cfg, err := g.config.Load(g.ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := g.initTelemetry(cfg); err != nil {
		return err
	}

	if g.store == nil {
		store, err := buildStore(cfg)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		g.store = store
	}

	resolver, err := BuildResolver(cfg, g.logger)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}
	g.resolver.swap(resolver)

	g.srv = server.New(cfg.Server.Port, cfg.Server.RequestTimeout, g.logger)
	g.mountRoutes(frontdoor.NewHandler(g.resolver, g.store, g.logger))

	go func() {
		if err := g.srv.Start(); err != nil {
			g.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	go g.watchConfig()

	g.logger.Info("gateway started",
		slog.Int("port", cfg.Server.Port),
		slog.String("adapter", cfg.Upstream.Adapter),
		slog.String("storage", cfg.Storage.Type))

	return nil
}

// Shutdown drains the server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("shutting down gateway")

	if g.cancel != nil {
		g.cancel()
	}

	if g.srv != nil {
		if err := g.srv.Shutdown(ctx); err != nil {
			g.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}

	if g.store != nil {
		if err := g.store.Close(); err != nil {
			g.logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}

	for _, shutdown := range g.telemetryShutdowns {
		if err := shutdown(ctx); err != nil {
			g.logger.Error("failed to flush telemetry", slog.String("error", err.Error()))
		}
	}

	if g.config != nil {
		if err := g.config.Close(); err != nil {
			g.logger.Error("failed to close config watcher", slog.String("error", err.Error()))
		}
	}

	g.logger.Info("gateway shutdown complete")
	return nil
}

// initTelemetry starts the exporters enabled by config.
func (g *Gateway) initTelemetry(cfg *config.Config) error {
	if cfg.Telemetry.Tracing {
		shutdown, err := telemetry.InitTracer(serviceName, g.logger)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		g.telemetryShutdowns = append(g.telemetryShutdowns, shutdown)
	}

	if cfg.Telemetry.Metrics {
		shutdown, err := telemetry.InitMeter(serviceName, g.logger)
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		g.telemetryShutdowns = append(g.telemetryShutdowns, shutdown)
	}

	return nil
}

// mountRoutes registers the frontdoor's routes on the server router.
func (g *Gateway) mountRoutes(h *frontdoor.Handler) {
	for _, reg := range h.Routes() {
		method := reg.Method
		if method == "" {
			method = http.MethodGet
		}

		switch method {
		case http.MethodGet:
			g.srv.Router.Get(reg.Path, reg.Handler)
		case http.MethodPost:
			g.srv.Router.Post(reg.Path, reg.Handler)
		default:
			g.srv.Router.Method(method, reg.Path, http.HandlerFunc(reg.Handler))
		}

		g.logger.Info("registered handler",
			slog.String("method", method),
			slog.String("path", reg.Path))
	}
}

// watchConfig rebuilds the pipeline when the config file changes.
func (g *Gateway) watchConfig() {
	onChange := func(cfg *config.Config) {
		if err := g.reload(cfg); err != nil {
			g.logger.Error("failed to reload", slog.String("error", err.Error()))
		}
	}

	if err := g.config.Watch(g.ctx, onChange); err != nil {
		if !errors.Is(err, context.Canceled) {
			g.logger.Error("config watch failed", slog.String("error", err.Error()))
		}
	}
}

// reload rebuilds the resolver from new configuration and swaps it in.
// Server, storage, and telemetry settings apply at startup only; a reload
// rotates the upstream adapter, credentials, client, and identity cache.
func (g *Gateway) reload(cfg *config.Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	resolver, err := BuildResolver(cfg, g.logger)
	if err != nil {
		return fmt.Errorf("rebuild resolver: %w", err)
	}
	g.resolver.swap(resolver)

	g.logger.Info("reload complete", slog.String("adapter", cfg.Upstream.Adapter))
	return nil
}

// BuildResolver constructs the resolution pipeline for the configured
// upstream adapter. It is exported for one-shot callers such as cmd/resolve.
func BuildResolver(cfg *config.Config, logger *slog.Logger) (*pipeline.Resolver, error) {
	adapter, err := upstream.CreateAdapter(cfg.Upstream.Adapter, adapterSettings(cfg))
	if err != nil {
		return nil, fmt.Errorf("create upstream adapter: %w", err)
	}

	clientOpts := []upstream.ClientOption{
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithLogger(logger),
	}
	if cfg.Upstream.Retry.MaxAttempts > 0 {
		clientOpts = append(clientOpts,
			upstream.WithRetry(cfg.Upstream.Retry.MaxAttempts, cfg.Upstream.Retry.MaxInterval))
	}
	if cfg.Upstream.GuardPrivateAddresses {
		clientOpts = append(clientOpts,
			upstream.WithHTTPClient(&http.Client{Transport: safehttp.GuardedTransport()}))
	}

	resolverOpts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.Cache.IdentityTTL > 0 {
		resolverOpts = append(resolverOpts,
			pipeline.WithIdentityCache(cfg.Cache.Size, cfg.Cache.IdentityTTL))
	}

	return pipeline.NewResolver(adapter, upstream.NewClient(clientOpts...), resolverOpts...), nil
}

// adapterSettings maps the config block for the selected convention onto the
// factory settings. Unknown adapter names fail later in CreateAdapter.
func adapterSettings(cfg *config.Config) upstream.AdapterSettings {
	if cfg.Upstream.Adapter == "apikey" {
		return upstream.AdapterSettings{
			BaseURL:    cfg.Upstream.APIKey.BaseURL,
			Credential: cfg.Upstream.APIKey.Key,
			Header:     cfg.Upstream.APIKey.Header,
			PageSize:   cfg.Upstream.PageSize,
		}
	}
	return upstream.AdapterSettings{
		BaseURL:    cfg.Upstream.Bearer.BaseURL,
		Credential: cfg.Upstream.Bearer.Token,
		PageSize:   cfg.Upstream.PageSize,
	}
}

// buildStore creates the audit store named by config. Type "none" leaves the
// store nil and no records are kept.
func buildStore(cfg *config.Config) (storage.ResolutionStore, error) {
	switch cfg.Storage.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.New(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage directory: %w", err)
			}
		}
		return sqlite.New(cfg.Storage.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
