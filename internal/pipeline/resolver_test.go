package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handlegraph/followings-gateway/internal/domain"
	"github.com/handlegraph/followings-gateway/internal/upstream"
)

// stubAdapter routes the two pipeline steps to fixed paths on a test server.
type stubAdapter struct {
	baseURL      string
	configureErr error
}

func (a *stubAdapter) Name() string      { return "stub" }
func (a *stubAdapter) Configured() error { return a.configureErr }

func (a *stubAdapter) IdentityRequest(ctx context.Context, handle string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/identity?handle="+url.QueryEscape(handle), nil)
}

func (a *stubAdapter) RelationsRequest(ctx context.Context, id, handle string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/relations?id="+url.QueryEscape(id), nil)
}

// upstreamStub fakes the two upstream endpoints with per-step call counters.
type upstreamStub struct {
	identityStatus  int
	identityBody    string
	relationsStatus int
	relationsBody   string

	identityCalls  atomic.Int32
	relationsCalls atomic.Int32
}

func (s *upstreamStub) server(t *testing.T) *httptest.Server {
	t.Helper()

	serve := func(calls *atomic.Int32, status int, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			fmt.Fprint(w, body)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/identity", serve(&s.identityCalls, s.identityStatus, s.identityBody))
	mux.HandleFunc("/relations", serve(&s.relationsCalls, s.relationsStatus, s.relationsBody))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestResolver(t *testing.T, stub *upstreamStub, opts ...Option) *Resolver {
	t.Helper()
	srv := stub.server(t)
	return NewResolver(&stubAdapter{baseURL: srv.URL}, upstream.NewClient(), opts...)
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"  alice\t", "alice"},
		{"@alice", "alice"},
		{" @alice ", "alice"},
		{"@@alice", "@alice"},
		{"@", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeHandle(tt.in); got != tt.want {
			t.Errorf("NormalizeHandle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve_TwoStepSuccess(t *testing.T) {
	stub := &upstreamStub{
		identityBody:  `{"data": {"id_str": "123"}}`,
		relationsBody: `{"data": [{"screen_name": "bob"}, {"username": "carol"}, {"nickname": "dave"}]}`,
	}
	r := newTestResolver(t, stub)

	res, apiErr := r.Resolve(context.Background(), "alice")
	if apiErr != nil {
		t.Fatalf("Resolve() error = %v", apiErr)
	}

	if res.Identity.Handle != "alice" || res.Identity.ID != "123" {
		t.Errorf("Identity = %+v, want {alice 123}", res.Identity)
	}
	want := []string{"bob", "carol"}
	if len(res.Followings) != len(want) {
		t.Fatalf("Followings = %v, want %v", res.Followings, want)
	}
	for i := range want {
		if res.Followings[i] != want[i] {
			t.Errorf("Followings[%d] = %q, want %q", i, res.Followings[i], want[i])
		}
	}
}

func TestResolve_RelationsKeyedByResolvedID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/identity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id_str": "9007199254740993"}`)
	})
	mux.HandleFunc("/relations", func(w http.ResponseWriter, r *http.Request) {
		// Identifiers wider than 53 bits must arrive undamaged.
		if got := r.URL.Query().Get("id"); got != "9007199254740993" {
			t.Errorf("relations id = %q, want 9007199254740993", got)
		}
		fmt.Fprint(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewResolver(&stubAdapter{baseURL: srv.URL}, upstream.NewClient())

	res, apiErr := r.Resolve(context.Background(), "wide")
	if apiErr != nil {
		t.Fatalf("Resolve() error = %v", apiErr)
	}
	if res.Identity.ID != "9007199254740993" {
		t.Errorf("Identity.ID = %q, want 9007199254740993", res.Identity.ID)
	}
}

func TestResolve_HandleNotFound(t *testing.T) {
	stub := &upstreamStub{
		identityStatus: http.StatusNotFound,
		identityBody:   `{"message": "Not Found"}`,
	}
	r := newTestResolver(t, stub)

	_, apiErr := r.Resolve(context.Background(), "ghost")
	if apiErr == nil {
		t.Fatal("Resolve() error = nil, want handle_not_found")
	}

	if apiErr.Type != domain.ErrorTypeHandleNotFound {
		t.Errorf("Type = %q, want handle_not_found", apiErr.Type)
	}
	if apiErr.HTTPStatusCode() != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.HTTPStatusCode())
	}
	if apiErr.Message != `User "ghost" not found.` {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["message"] != "Not Found" {
		t.Errorf("Details = %v, want upstream body", apiErr.Details)
	}
	if got := stub.relationsCalls.Load(); got != 0 {
		t.Errorf("relations calls = %d, want 0 after a failed lookup", got)
	}
}

func TestResolve_UnconfiguredAdapterSkipsUpstream(t *testing.T) {
	stub := &upstreamStub{}
	srv := stub.server(t)
	adapter := &stubAdapter{baseURL: srv.URL, configureErr: fmt.Errorf("token is not set")}
	r := NewResolver(adapter, upstream.NewClient())

	_, apiErr := r.Resolve(context.Background(), "alice")
	if apiErr == nil {
		t.Fatal("Resolve() error = nil, want configuration")
	}

	if apiErr.Type != domain.ErrorTypeConfiguration {
		t.Errorf("Type = %q, want configuration", apiErr.Type)
	}
	if apiErr.HTTPStatusCode() != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", apiErr.HTTPStatusCode())
	}
	if got := stub.identityCalls.Load() + stub.relationsCalls.Load(); got != 0 {
		t.Errorf("upstream calls = %d, want 0 when unconfigured", got)
	}
}

func TestResolve_IdentityWithoutIdentifierIsSchemaError(t *testing.T) {
	stub := &upstreamStub{
		identityBody: `{"name": "Alice", "verified": true}`,
	}
	r := newTestResolver(t, stub)

	_, apiErr := r.Resolve(context.Background(), "alice")
	if apiErr == nil {
		t.Fatal("Resolve() error = nil, want upstream_schema")
	}

	if apiErr.Type != domain.ErrorTypeUpstreamSchema {
		t.Errorf("Type = %q, want upstream_schema", apiErr.Type)
	}
	if apiErr.HTTPStatusCode() != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apiErr.HTTPStatusCode())
	}
	if got := stub.relationsCalls.Load(); got != 0 {
		t.Errorf("relations calls = %d, want 0", got)
	}
}

func TestResolve_AuthFailurePassesStatusThrough(t *testing.T) {
	stub := &upstreamStub{
		identityStatus: http.StatusForbidden,
		identityBody:   `{"error": "forbidden"}`,
	}
	r := newTestResolver(t, stub)

	_, apiErr := r.Resolve(context.Background(), "alice")
	if apiErr == nil {
		t.Fatal("Resolve() error = nil, want upstream_auth")
	}

	if apiErr.Type != domain.ErrorTypeUpstreamAuth {
		t.Errorf("Type = %q, want upstream_auth", apiErr.Type)
	}
	if apiErr.HTTPStatusCode() != http.StatusForbidden {
		t.Errorf("status = %d, want 403 passthrough", apiErr.HTTPStatusCode())
	}
	if apiErr.Message != "forbidden" {
		t.Errorf("Message = %q, want forbidden", apiErr.Message)
	}
}

func TestResolve_RelationsFailureDiscardsIdentity(t *testing.T) {
	stub := &upstreamStub{
		identityBody:    `{"data": {"id_str": "123"}}`,
		relationsStatus: http.StatusTooManyRequests,
		relationsBody:   `{"message": "rate limited"}`,
	}
	r := newTestResolver(t, stub)

	res, apiErr := r.Resolve(context.Background(), "alice")
	if apiErr == nil {
		t.Fatal("Resolve() error = nil, want upstream")
	}
	if res != nil {
		t.Errorf("Resolution = %+v, want nil on a relation-step failure", res)
	}

	if apiErr.Type != domain.ErrorTypeUpstream {
		t.Errorf("Type = %q, want upstream", apiErr.Type)
	}
	if apiErr.HTTPStatusCode() != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 passthrough", apiErr.HTTPStatusCode())
	}
	if got := stub.identityCalls.Load(); got != 1 {
		t.Errorf("identity calls = %d, want 1", got)
	}
}

func TestResolve_TransportFault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	r := NewResolver(&stubAdapter{baseURL: srv.URL}, upstream.NewClient())

	_, apiErr := r.Resolve(context.Background(), "alice")
	if apiErr == nil {
		t.Fatal("Resolve() error = nil, want transport")
	}

	if apiErr.Type != domain.ErrorTypeTransport {
		t.Errorf("Type = %q, want transport", apiErr.Type)
	}
	if apiErr.HTTPStatusCode() != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", apiErr.HTTPStatusCode())
	}
}

func TestResolve_EmptyRelationListIsNotAnError(t *testing.T) {
	stub := &upstreamStub{
		identityBody:  `{"id": 123}`,
		relationsBody: `{"users": []}`,
	}
	r := newTestResolver(t, stub)

	res, apiErr := r.Resolve(context.Background(), "loner")
	if apiErr != nil {
		t.Fatalf("Resolve() error = %v", apiErr)
	}
	if len(res.Followings) != 0 {
		t.Errorf("Followings = %v, want empty", res.Followings)
	}
}

func TestResolve_IdentityCacheSkipsSecondLookup(t *testing.T) {
	stub := &upstreamStub{
		identityBody:  `{"data": {"id_str": "123"}}`,
		relationsBody: `{"data": [{"screen_name": "bob"}]}`,
	}
	r := newTestResolver(t, stub, WithIdentityCache(16, time.Minute))

	for i := 0; i < 2; i++ {
		if _, apiErr := r.Resolve(context.Background(), "alice"); apiErr != nil {
			t.Fatalf("Resolve() #%d error = %v", i+1, apiErr)
		}
	}

	if got := stub.identityCalls.Load(); got != 1 {
		t.Errorf("identity calls = %d, want 1 with a warm cache", got)
	}
	if got := stub.relationsCalls.Load(); got != 2 {
		t.Errorf("relations calls = %d, want 2 (relations are never cached)", got)
	}
}

func TestResolve_ZeroTTLDisablesCache(t *testing.T) {
	stub := &upstreamStub{
		identityBody:  `{"data": {"id_str": "123"}}`,
		relationsBody: `[]`,
	}
	r := newTestResolver(t, stub, WithIdentityCache(16, 0))

	for i := 0; i < 2; i++ {
		if _, apiErr := r.Resolve(context.Background(), "alice"); apiErr != nil {
			t.Fatalf("Resolve() #%d error = %v", i+1, apiErr)
		}
	}

	if got := stub.identityCalls.Load(); got != 2 {
		t.Errorf("identity calls = %d, want 2 with the cache disabled", got)
	}
}

func TestResolver_AdapterName(t *testing.T) {
	r := NewResolver(&stubAdapter{}, upstream.NewClient())
	if got := r.AdapterName(); got != "stub" {
		t.Errorf("AdapterName() = %q, want stub", got)
	}
}
