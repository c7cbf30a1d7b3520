// Package storage defines the audit store for completed resolutions. Records
// exist for operator troubleshooting only; nothing on the request path ever
// depends on them.
package storage

import (
	"context"
	"time"
)

// ResolutionRecord is one audit row describing a finished pipeline run,
// successful or not.
type ResolutionRecord struct {
	ID         string        `json:"id"`
	RequestID  string        `json:"request_id,omitempty"`
	Handle     string        `json:"handle"`
	ResolvedID string        `json:"resolved_id,omitempty"`
	Adapter    string        `json:"adapter"`
	Outcome    string        `json:"outcome"` // "ok" or the error kind
	HTTPStatus int           `json:"http_status"`
	Followings int           `json:"followings"`
	Duration   time.Duration `json:"duration_ns"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ListOptions paginates resolution listings. Records come back
// most-recent-first.
type ListOptions struct {
	Limit  int
	Offset int
}

// ResolutionStore persists resolution audit records.
type ResolutionStore interface {
	RecordResolution(ctx context.Context, rec *ResolutionRecord) error
	ListResolutions(ctx context.Context, opts ListOptions) ([]*ResolutionRecord, error)
	Close() error
}
