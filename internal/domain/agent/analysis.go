package agent

import (
	"context"
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Analysis is one stored agent output, kept for auditing and retrieval
type Analysis struct {
	ID        AnalysisID `json:"id"`
	TenantID  string     `json:"tenant_id"`
	ScanID    string     `json:"scan_id,omitempty"`
	Kind      string     `json:"kind"` // query | report
	Input     string     `json:"input"`
	Result    string     `json:"result"` // JSON string from the model
	CreatedAt time.Time  `json:"created_at"`
}

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Analysis, error)
	LatestByScan(ctx context.Context, tenant string, scanID string) (*Analysis, error)
}
