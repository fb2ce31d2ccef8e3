package findings

import "context"

// Repository port for compliance findings
type Repository interface {
	Save(ctx context.Context, f *Finding) error
	Get(ctx context.Context, tenant string, id FindingID) (*Finding, error)
	List(ctx context.Context, tenant string, status Status, limit int) ([]*Finding, error)
	UpdateStatus(ctx context.Context, tenant string, id FindingID, status Status) error
}

// AlertRepository port for risk alerts
type AlertRepository interface {
	Save(ctx context.Context, a *Alert) error
	Get(ctx context.Context, tenant string, id AlertID) (*Alert, error)
	ListUnacknowledged(ctx context.Context, tenant string, limit int) ([]*Alert, error)
	Acknowledge(ctx context.Context, tenant string, id AlertID, by string) error
}
