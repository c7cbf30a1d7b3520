// Package registration wires built-in components into their registries.
package registration

import (
	"github.com/handlegraph/followings-gateway/internal/upstream/apikey"
	"github.com/handlegraph/followings-gateway/internal/upstream/bearer"
)

// RegisterBuiltins registers the built-in upstream adapters explicitly. This
// replaces init-based side effects and is intended to be called from the cmd
// binaries and tests before adapters are created.
func RegisterBuiltins() {
	bearer.RegisterAdapterFactory()
	apikey.RegisterAdapterFactory()
}
