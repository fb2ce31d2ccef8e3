package scans

import (
	"context"
	"time"
)

// Repository port (persistence for scans)
type Repository interface {
	Save(ctx context.Context, s *Scan) error
	Get(ctx context.Context, tenant string, id ScanID) (*Scan, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Scan, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error)
	UpdateStatus(ctx context.Context, tenant string, id ScanID, status Status) error
	UpdateResult(ctx context.Context, tenant string, id ScanID, status Status, reportURL string, counts SeverityCounts) error

	Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]any) (PaginatedResult, error)
	Cursor(ctx context.Context, tenant string, cursorTime time.Time, cursorID string, pageSize int) ([]*Scan, error)
}

// ReportStore port (object storage for scan report artifacts)
type ReportStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
	UploadBytes(ctx context.Context, data []byte, key, contentType string) (string, error)
}
