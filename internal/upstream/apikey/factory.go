package apikey

import (
	"github.com/handlegraph/followings-gateway/internal/upstream"
)

var _ upstream.Adapter = (*Adapter)(nil)

// RegisterAdapterFactory registers the apikey adapter with the upstream
// registry. Call during startup before adapters are created.
func RegisterAdapterFactory() {
	if upstream.IsRegistered(AdapterName) {
		return
	}

	upstream.RegisterFactory(upstream.AdapterFactory{
		Name:        AdapterName,
		Description: "Handle-keyed upstream authenticated by API-key header",
		Create: func(settings upstream.AdapterSettings) (upstream.Adapter, error) {
			var opts []Option
			if settings.Header != "" {
				opts = append(opts, WithHeader(settings.Header))
			}
			return New(settings.Credential, settings.BaseURL, opts...), nil
		},
	})
}
