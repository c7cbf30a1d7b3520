// Package apikey implements the handle-keyed upstream convention: both
// endpoints are keyed by username and the credential travels in a
// configurable API-key header.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// AdapterName is the config identifier for this convention.
	AdapterName = "apikey"

	defaultHeader = "X-API-Key"
)

// Option configures the adapter.
type Option func(*Adapter)

// WithHeader sets the credential header name.
func WithHeader(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.header = name
		}
	}
}

// Adapter builds requests for the API-key handle-keyed convention.
type Adapter struct {
	key     string
	baseURL string
	header  string
}

// New creates an apikey adapter. This convention has no well-known host, so
// the base URL is required configuration; like the credential it is verified
// per request, not at startup.
func New(key, baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		key:     key,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		header:  defaultHeader,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return AdapterName }

// Configured reports whether the key and base URL are present.
func (a *Adapter) Configured() error {
	if a.key == "" {
		return errors.New("api key is not set")
	}
	if a.baseURL == "" {
		return errors.New("base url is not set")
	}
	return nil
}

// IdentityRequest builds the identity lookup keyed by handle.
func (a *Adapter) IdentityRequest(ctx context.Context, handle string) (*http.Request, error) {
	q := url.Values{}
	q.Set("username", handle)
	return a.get(ctx, "/user", q)
}

// RelationsRequest builds the relation fetch. The endpoint is keyed by
// handle; the resolved identifier rides along so the upstream can
// disambiguate renamed accounts.
func (a *Adapter) RelationsRequest(ctx context.Context, id, handle string) (*http.Request, error) {
	q := url.Values{}
	q.Set("username", handle)
	q.Set("user_id", id)
	return a.get(ctx, "/following", q)
}

func (a *Adapter) get(ctx context.Context, path string, q url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(a.header, a.key)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
