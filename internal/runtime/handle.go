package runtime

import (
	"context"
	"sync/atomic"

	"github.com/handlegraph/followings-gateway/internal/domain"
	"github.com/handlegraph/followings-gateway/internal/pipeline"
)

// resolverHandle gives the frontdoor a stable resolver reference while config
// reloads swap the pipeline underneath it.
type resolverHandle struct {
	cur atomic.Pointer[pipeline.Resolver]
}

func (h *resolverHandle) swap(r *pipeline.Resolver) {
	h.cur.Store(r)
}

func (h *resolverHandle) Resolve(ctx context.Context, handle string) (*domain.Resolution, *domain.APIError) {
	return h.cur.Load().Resolve(ctx, handle)
}

func (h *resolverHandle) AdapterName() string {
	return h.cur.Load().AdapterName()
}
