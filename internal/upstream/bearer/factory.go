package bearer

import (
	"github.com/handlegraph/followings-gateway/internal/upstream"
)

var _ upstream.Adapter = (*Adapter)(nil)

// RegisterAdapterFactory registers this convention with the upstream
// registry. Wired explicitly from registration.RegisterBuiltins to avoid
// init() side effects.
func RegisterAdapterFactory() {
	if upstream.IsRegistered(AdapterName) {
		return
	}
	upstream.RegisterFactory(upstream.AdapterFactory{
		Name:        AdapterName,
		Description: "Bearer-token two-step convention: identity by handle, relations by identifier",
		Create: func(settings upstream.AdapterSettings) (upstream.Adapter, error) {
			var opts []Option
			if settings.BaseURL != "" {
				opts = append(opts, WithBaseURL(settings.BaseURL))
			}
			if settings.PageSize > 0 {
				opts = append(opts, WithPageSize(settings.PageSize))
			}
			return New(settings.Credential, opts...), nil
		},
	})
}
