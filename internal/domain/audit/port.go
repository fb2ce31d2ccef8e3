package audit

import (
	"context"
	"time"
)

// Repository defines append-only persistence for audit entries
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	Range(ctx context.Context, tenant string, from, to time.Time, limit int) ([]*Entry, error)
}
