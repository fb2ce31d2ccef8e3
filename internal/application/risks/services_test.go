package risks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complykit/privacy-comply/internal/application"
	domain "github.com/complykit/privacy-comply/internal/domain/risks"
)

type memRiskRepo struct {
	assessments map[domain.AssessmentID]*domain.Assessment
}

func newMemRiskRepo() *memRiskRepo {
	return &memRiskRepo{assessments: make(map[domain.AssessmentID]*domain.Assessment)}
}

func (r *memRiskRepo) Save(_ context.Context, a *domain.Assessment) error {
	cp := *a
	r.assessments[a.ID] = &cp
	return nil
}

func (r *memRiskRepo) Get(_ context.Context, _ string, id domain.AssessmentID) (*domain.Assessment, error) {
	a, ok := r.assessments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *memRiskRepo) List(_ context.Context, _ string, status domain.Status, _ int) ([]*domain.Assessment, error) {
	var out []*domain.Assessment
	for _, a := range r.assessments {
		if status == "" || a.Status == status {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRiskRepo) DueForReview(_ context.Context, _ string, before time.Time) ([]*domain.Assessment, error) {
	var out []*domain.Assessment
	for _, a := range r.assessments {
		if a.DueForReview(before) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newRiskService() (*Service, *memRiskRepo) {
	repo := newMemRiskRepo()
	return &Service{Repo: repo, Clock: application.SystemClock{}}, repo
}

func TestCreateDerivesOverallScore(t *testing.T) {
	svc, _ := newRiskService()

	a, err := svc.Create(context.Background(), CreateAssessmentCommand{
		TenantID:        "acme",
		Category:        "data_retention",
		ImpactScore:     5,
		LikelihoodScore: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, a.OverallScore)
	assert.Equal(t, "critical", a.Band())
	assert.Equal(t, domain.StatusActive, a.Status)

	_, err = svc.Create(context.Background(), CreateAssessmentCommand{
		TenantID:        "acme",
		Category:        "data_retention",
		ImpactScore:     6,
		LikelihoodScore: 1,
	})
	assert.Error(t, err, "impact above 5 is rejected")

	_, err = svc.Create(context.Background(), CreateAssessmentCommand{
		TenantID:        "acme",
		ImpactScore:     1,
		LikelihoodScore: 1,
	})
	assert.Error(t, err, "category is required")
}

func TestRescore(t *testing.T) {
	svc, repo := newRiskService()

	a, err := svc.Create(context.Background(), CreateAssessmentCommand{
		TenantID: "acme", Category: "access", ImpactScore: 2, LikelihoodScore: 2,
	})
	require.NoError(t, err)

	updated, err := svc.Rescore(context.Background(), "acme", a.ID, 4, 3, "jane")
	require.NoError(t, err)
	assert.Equal(t, 12, updated.OverallScore)
	assert.Equal(t, "high", updated.Band())

	// invalid rescore leaves stored scores untouched
	_, err = svc.Rescore(context.Background(), "acme", a.ID, 0, 3, "jane")
	require.Error(t, err)
	assert.Equal(t, 12, repo.assessments[a.ID].OverallScore)
}

func TestMeasureLifecycle(t *testing.T) {
	svc, _ := newRiskService()

	a, err := svc.Create(context.Background(), CreateAssessmentCommand{
		TenantID: "acme", Category: "vendor", ImpactScore: 3, LikelihoodScore: 3,
	})
	require.NoError(t, err)

	withMeasure, err := svc.AddMeasure(context.Background(), "acme", a.ID, domain.MitigationMeasure{
		Description: "rotate vendor keys",
	}, "jane")
	require.NoError(t, err)
	require.Len(t, withMeasure.Measures, 1)
	assert.Equal(t, domain.MeasureNotStarted, withMeasure.Measures[0].Status)

	done, err := svc.CompleteMeasure(context.Background(), "acme", a.ID, withMeasure.Measures[0].ID, "jane")
	require.NoError(t, err)
	assert.Equal(t, domain.MeasureCompleted, done.Measures[0].Status)
	assert.False(t, done.Measures[0].CompletedAt.IsZero())

	_, err = svc.CompleteMeasure(context.Background(), "acme", a.ID, "nosuch", "jane")
	assert.Error(t, err)
}

func TestReviewCycle(t *testing.T) {
	svc, _ := newRiskService()

	a, err := svc.Create(context.Background(), CreateAssessmentCommand{
		TenantID:        "acme",
		Category:        "retention",
		ImpactScore:     2,
		LikelihoodScore: 3,
		NextReviewAt:    time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	due, err := svc.DueForReview(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, due, 1)

	_, err = svc.MarkReviewed(context.Background(), "acme", a.ID, time.Now().Add(90*24*time.Hour), "jane")
	require.NoError(t, err)

	due, err = svc.DueForReview(context.Background(), "acme")
	require.NoError(t, err)
	assert.Empty(t, due)
}
