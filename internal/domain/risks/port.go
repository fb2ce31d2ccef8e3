package risks

import (
	"context"
	"time"
)

// Repository port for assessment persistence
type Repository interface {
	Save(ctx context.Context, a *Assessment) error
	Get(ctx context.Context, tenant string, id AssessmentID) (*Assessment, error)
	List(ctx context.Context, tenant string, status Status, limit int) ([]*Assessment, error)
	DueForReview(ctx context.Context, tenant string, before time.Time) ([]*Assessment, error)
}
