package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/handlegraph/followings-gateway/internal/domain"
	"github.com/handlegraph/followings-gateway/internal/telemetry"
	"github.com/handlegraph/followings-gateway/internal/upstream"
)

// Step names used in spans, metrics, and logs.
const (
	stepIdentity  = "lookup_identity"
	stepRelations = "resolve_relations"
)

// NormalizeHandle strips surrounding whitespace and one leading "@" from a
// caller-supplied handle. The normalized form is what goes upstream and what
// error messages echo back.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// Option configures the resolver.
type Option func(*Resolver)

// WithLogger sets the logger for the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithIdentityCache enables memoization of identity lookups for the given
// TTL. A non-positive TTL leaves the cache disabled; relations are never
// cached either way.
func WithIdentityCache(size int, ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cache = newIdentityCache(size, ttl)
		}
	}
}

// Resolver runs the two-step resolution flow against one adapter convention.
// It is safe for concurrent use; resolutions share nothing but the adapter,
// the client, and the optional identity cache.
type Resolver struct {
	adapter upstream.Adapter
	client  *upstream.Client
	cache   *identityCache
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewResolver creates a resolver bound to an adapter and an upstream client.
func NewResolver(adapter upstream.Adapter, client *upstream.Client, opts ...Option) *Resolver {
	r := &Resolver{
		adapter: adapter,
		client:  client,
		logger:  slog.Default(),
		tracer:  otel.Tracer("gateway.pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AdapterName identifies the adapter convention this resolver is bound to.
func (r *Resolver) AdapterName() string {
	return r.adapter.Name()
}

// Resolve runs the full flow for one handle: identity lookup, then relation
// fetch, then handle extraction. Any failure is terminal for the request; a
// relation-step failure discards the already-resolved identity.
func (r *Resolver) Resolve(ctx context.Context, handle string) (*domain.Resolution, *domain.APIError) {
	ctx, span := r.tracer.Start(ctx, "pipeline.resolve", trace.WithAttributes(
		attribute.String("upstream.adapter", r.adapter.Name()),
	))
	defer span.End()

	start := time.Now()
	resolution, apiErr := r.resolve(ctx, handle)

	outcome := domain.OutcomeOK
	followings := 0
	if apiErr != nil {
		outcome = string(apiErr.Type)
		span.SetStatus(codes.Error, apiErr.Message)
	} else {
		followings = len(resolution.Followings)
	}
	span.SetAttributes(attribute.String("resolution.outcome", outcome))

	telemetry.RecordResolution(ctx, telemetry.ResolutionMetrics{
		Adapter:    r.adapter.Name(),
		Outcome:    outcome,
		Followings: followings,
		Duration:   time.Since(start),
	})

	return resolution, apiErr
}

func (r *Resolver) resolve(ctx context.Context, handle string) (*domain.Resolution, *domain.APIError) {
	// Pre-flight: a missing credential must never produce an upstream call.
	if err := r.adapter.Configured(); err != nil {
		r.logger.Error("upstream adapter is not configured",
			slog.String("adapter", r.adapter.Name()),
			slog.String("error", err.Error()),
		)
		return nil, domain.ErrConfiguration("External API credentials are not configured.")
	}

	identity, apiErr := r.lookupIdentity(ctx, handle)
	if apiErr != nil {
		return nil, apiErr
	}

	followings, apiErr := r.resolveRelations(ctx, identity)
	if apiErr != nil {
		return nil, apiErr
	}

	return &domain.Resolution{Identity: identity, Followings: followings}, nil
}

// lookupIdentity resolves the handle to its canonical identifier. A 404 here
// means the handle does not exist; the relation step is never reached.
func (r *Resolver) lookupIdentity(ctx context.Context, handle string) (domain.Identity, *domain.APIError) {
	ctx, span := r.tracer.Start(ctx, "pipeline.lookup_identity")
	defer span.End()

	if id, ok := r.cache.get(handle); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return domain.Identity{Handle: handle, ID: id}, nil
	}

	req, err := r.adapter.IdentityRequest(ctx, handle)
	if err != nil {
		return domain.Identity{}, failSpan(span, domain.ErrTransport("Could not build the identity request."))
	}

	res, apiErr := r.exchange(ctx, stepIdentity, req)
	if apiErr != nil {
		return domain.Identity{}, failSpan(span, apiErr)
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if !res.OK {
		if res.StatusCode == http.StatusNotFound {
			return domain.Identity{}, failSpan(span, domain.ErrHandleNotFound(handle).WithDetails(res.Details()))
		}
		return domain.Identity{}, failSpan(span, upstream.ClassifyError(res))
	}

	id, extractErr := upstream.ExtractIdentifier(res)
	if extractErr != nil {
		return domain.Identity{}, failSpan(span, extractErr)
	}

	r.cache.put(handle, id)

	return domain.Identity{Handle: handle, ID: id}, nil
}

// resolveRelations fetches the accounts the identity follows and maps them to
// handles, preserving upstream order and duplicates.
func (r *Resolver) resolveRelations(ctx context.Context, identity domain.Identity) ([]string, *domain.APIError) {
	ctx, span := r.tracer.Start(ctx, "pipeline.resolve_relations")
	defer span.End()

	req, err := r.adapter.RelationsRequest(ctx, identity.ID, identity.Handle)
	if err != nil {
		return nil, failSpan(span, domain.ErrTransport("Could not build the relations request."))
	}

	res, apiErr := r.exchange(ctx, stepRelations, req)
	if apiErr != nil {
		return nil, failSpan(span, apiErr)
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if !res.OK {
		return nil, failSpan(span, upstream.ClassifyError(res))
	}

	handles, extractErr := upstream.ExtractHandles(res, r.logger)
	if extractErr != nil {
		return nil, failSpan(span, extractErr)
	}

	span.SetAttributes(attribute.Int("followings.count", len(handles)))

	return handles, nil
}

// exchange runs one upstream call and records its metric. Transport faults
// come back as the canonical 503; non-2xx responses are results, classified
// by the caller.
func (r *Resolver) exchange(ctx context.Context, step string, req *http.Request) (*upstream.Result, *domain.APIError) {
	res, err := r.client.Do(ctx, req)

	status := 0
	if res != nil {
		status = res.StatusCode
	}
	telemetry.RecordUpstreamCall(ctx, telemetry.UpstreamCallMetrics{
		Adapter: r.adapter.Name(),
		Step:    step,
		Status:  status,
	})

	if err != nil {
		r.logger.Error("upstream call failed",
			slog.String("step", step),
			slog.String("adapter", r.adapter.Name()),
			slog.String("error", err.Error()),
		)
		return nil, domain.ErrTransport("Could not reach the upstream service.")
	}

	return res, nil
}

func failSpan(span trace.Span, apiErr *domain.APIError) *domain.APIError {
	span.RecordError(apiErr)
	span.SetStatus(codes.Error, apiErr.Message)
	return apiErr
}
