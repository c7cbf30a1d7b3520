// Package bearer implements the bearer-token two-step upstream convention:
// identity lookup keyed by handle, relations keyed by the resolved numeric
// identifier, credential carried in the Authorization header.
package bearer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// AdapterName is the config identifier for this convention.
	AdapterName = "bearer"

	defaultBaseURL  = "https://api.twitter.com/1.1"
	defaultPageSize = 200
)

// Option configures the adapter.
type Option func(*Adapter)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithPageSize sets the relations page size.
func WithPageSize(size int) Option {
	return func(a *Adapter) {
		if size > 0 {
			a.pageSize = size
		}
	}
}

// Adapter builds requests for the bearer-token two-step convention.
type Adapter struct {
	token    string
	baseURL  string
	pageSize int
}

// New creates a bearer adapter. An empty token is allowed; the adapter then
// reports unconfigured on every request instead of failing at startup.
func New(token string, opts ...Option) *Adapter {
	a := &Adapter{
		token:    token,
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return AdapterName }

// Configured reports whether the bearer token is present.
func (a *Adapter) Configured() error {
	if a.token == "" {
		return errors.New("bearer token is not set")
	}
	return nil
}

// IdentityRequest builds the identity lookup keyed by handle.
func (a *Adapter) IdentityRequest(ctx context.Context, handle string) (*http.Request, error) {
	q := url.Values{}
	q.Set("screen_name", handle)
	return a.get(ctx, "/users/show.json", q)
}

// RelationsRequest builds the relation fetch keyed by identifier. The handle
// is unused; this convention keys relations by identifier only.
func (a *Adapter) RelationsRequest(ctx context.Context, id, handle string) (*http.Request, error) {
	q := url.Values{}
	q.Set("user_id", id)
	q.Set("count", strconv.Itoa(a.pageSize))
	q.Set("skip_status", "true")
	return a.get(ctx, "/friends/list.json", q)
}

func (a *Adapter) get(ctx context.Context, path string, q url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
