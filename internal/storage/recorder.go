package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// persistTimeout bounds how long a best-effort write may run once the
// originating request has moved on.
const persistTimeout = 5 * time.Second

// Record persists a resolution record best-effort. It never fails the
// request path: a nil store is a no-op and store errors are logged, not
// returned. Persistence runs on its own context so a caller disconnect
// cannot drop the audit trail mid-write.
func Record(ctx context.Context, store ResolutionStore, rec *ResolutionRecord) {
	if store == nil || rec == nil {
		return
	}

	if rec.ID == "" {
		rec.ID = "res_" + uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	// Decouple persistence from the request lifecycle; still enforce a
	// short timeout so a wedged store cannot pile up writers.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := store.RecordResolution(persistCtx, rec); err != nil {
		slog.Default().Error("failed to record resolution",
			slog.String("record_id", rec.ID),
			slog.String("handle", rec.Handle),
			slog.String("error", err.Error()),
		)
	}
}
