package upstream

import (
	"context"
	"net/http"
)

// Adapter builds the two upstream requests for one provider convention. The
// observed upstreams disagree on endpoint layout and credential placement, so
// each convention lives behind this interface and the pipeline stays
// convention-agnostic.
type Adapter interface {
	// Name identifies the adapter in config, logs, and audit records.
	Name() string

	// Configured reports whether the adapter can reach the upstream at all.
	// The pipeline checks this before building any request so a missing
	// credential never produces an upstream call.
	Configured() error

	// IdentityRequest builds the identity-lookup request for a handle.
	IdentityRequest(ctx context.Context, handle string) (*http.Request, error)

	// RelationsRequest builds the relation-fetch request for a resolved
	// identifier. The handle rides along for conventions whose relations
	// endpoint is keyed by handle rather than identifier.
	RelationsRequest(ctx context.Context, id, handle string) (*http.Request, error)
}
