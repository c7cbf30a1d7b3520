// Package frontdoor exposes the gateway's HTTP surface: the followings
// endpoint, liveness, and the audit listing.
package frontdoor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/handlegraph/followings-gateway/internal/domain"
	"github.com/handlegraph/followings-gateway/internal/pipeline"
	"github.com/handlegraph/followings-gateway/internal/server"
	"github.com/handlegraph/followings-gateway/internal/storage"
)

// Resolver runs one handle resolution. The runtime swaps implementations when
// config is reloaded, so the handler holds an interface rather than the
// concrete pipeline type.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (*domain.Resolution, *domain.APIError)
	AdapterName() string
}

// Registration binds one handler to its route.
type Registration struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

// Handler serves the gateway's endpoints.
type Handler struct {
	resolver Resolver
	store    storage.ResolutionStore
	logger   *slog.Logger
}

// NewHandler creates a handler. A nil store disables audit recording and
// leaves the admin listing empty.
func NewHandler(resolver Resolver, store storage.ResolutionStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver: resolver,
		store:    store,
		logger:   logger,
	}
}

// Routes lists every endpoint the gateway serves.
func (h *Handler) Routes() []Registration {
	return []Registration{
		{Path: "/api/followings", Method: http.MethodGet, Handler: h.HandleFollowings},
		{Path: "/healthz", Method: http.MethodGet, Handler: h.HandleHealthz},
		{Path: "/admin/resolutions", Method: http.MethodGet, Handler: h.HandleListResolutions},
	}
}

type followingsResponse struct {
	Followings []string `json:"followings"`
}

type errorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// HandleFollowings resolves the "username" query parameter to the handles
// that account follows.
func (h *Handler) HandleFollowings(w http.ResponseWriter, r *http.Request) {
	// A panic below must degrade to the canonical 503, not a severed
	// connection or a bare 500.
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("resolution panicked",
				slog.String("request_id", server.GetRequestID(r.Context())),
				slog.Any("panic", rec),
			)
			writeError(w, domain.ErrTransport("Unexpected error while resolving followings."))
		}
	}()

	handle := pipeline.NormalizeHandle(r.URL.Query().Get("username"))
	if handle == "" {
		writeError(w, domain.ErrValidation(`Query parameter "username" is required.`))
		return
	}

	server.AddLogField(r.Context(), "handle", handle)
	server.AddLogField(r.Context(), "adapter", h.resolver.AdapterName())

	start := time.Now()
	res, apiErr := h.resolver.Resolve(r.Context(), handle)

	record := &storage.ResolutionRecord{
		RequestID: server.GetRequestID(r.Context()),
		Handle:    handle,
		Adapter:   h.resolver.AdapterName(),
		Duration:  time.Since(start),
	}

	if apiErr != nil {
		record.Outcome = string(apiErr.Type)
		record.HTTPStatus = apiErr.HTTPStatusCode()
		storage.Record(r.Context(), h.store, record)

		server.AddError(r.Context(), apiErr)
		writeError(w, apiErr)
		return
	}

	record.Outcome = domain.OutcomeOK
	record.HTTPStatus = http.StatusOK
	record.ResolvedID = res.Identity.ID
	record.Followings = len(res.Followings)
	storage.Record(r.Context(), h.store, record)

	server.AddLogField(r.Context(), "resolved_id", res.Identity.ID)
	server.AddLogField(r.Context(), "followings", strconv.Itoa(len(res.Followings)))

	writeJSON(w, http.StatusOK, followingsResponse{Followings: res.Followings})
}

// HandleHealthz reports liveness.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleListResolutions returns recent audit records, most recent first.
func (h *Handler) HandleListResolutions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, []*storage.ResolutionRecord{})
		return
	}

	var opts storage.ListOptions
	var apiErr *domain.APIError
	if opts.Limit, apiErr = queryInt(r, "limit"); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	if opts.Offset, apiErr = queryInt(r, "offset"); apiErr != nil {
		writeError(w, apiErr)
		return
	}

	recs, err := h.store.ListResolutions(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list resolutions", slog.String("error", err.Error()))
		server.AddError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Could not read audit records."})
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

func queryInt(r *http.Request, name string) (int, *domain.APIError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.ErrValidation("Query parameter " + strconv.Quote(name) + " must be a non-negative integer.")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, apiErr *domain.APIError) {
	writeJSON(w, apiErr.HTTPStatusCode(), errorResponse{
		Error:   apiErr.Message,
		Details: apiErr.Details,
	})
}
