package findings

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complykit/privacy-comply/internal/application"
	domain "github.com/complykit/privacy-comply/internal/domain/findings"
	"github.com/complykit/privacy-comply/internal/domain/risks"
)

type memFindingRepo struct {
	findings map[domain.FindingID]*domain.Finding
}

func newMemFindingRepo() *memFindingRepo {
	return &memFindingRepo{findings: make(map[domain.FindingID]*domain.Finding)}
}

func (r *memFindingRepo) Save(_ context.Context, f *domain.Finding) error {
	cp := *f
	r.findings[f.ID] = &cp
	return nil
}

func (r *memFindingRepo) Get(_ context.Context, _ string, id domain.FindingID) (*domain.Finding, error) {
	f, ok := r.findings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (r *memFindingRepo) List(_ context.Context, _ string, status domain.Status, _ int) ([]*domain.Finding, error) {
	var out []*domain.Finding
	for _, f := range r.findings {
		if status == "" || f.Status == status {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memFindingRepo) UpdateStatus(_ context.Context, _ string, id domain.FindingID, status domain.Status) error {
	f, ok := r.findings[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.Status = status
	return nil
}

type memAlertRepo struct {
	alerts map[domain.AlertID]*domain.Alert
}

func newMemAlertRepo() *memAlertRepo {
	return &memAlertRepo{alerts: make(map[domain.AlertID]*domain.Alert)}
}

func (r *memAlertRepo) Save(_ context.Context, a *domain.Alert) error {
	cp := *a
	r.alerts[a.ID] = &cp
	return nil
}

func (r *memAlertRepo) Get(_ context.Context, _ string, id domain.AlertID) (*domain.Alert, error) {
	a, ok := r.alerts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *memAlertRepo) ListUnacknowledged(_ context.Context, _ string, _ int) ([]*domain.Alert, error) {
	var out []*domain.Alert
	for _, a := range r.alerts {
		if !a.Acknowledged {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAlertRepo) Acknowledge(_ context.Context, _ string, id domain.AlertID, by string) error {
	a, ok := r.alerts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Acknowledged = true
	a.AcknowledgedBy = by
	return nil
}

type memRiskRepo struct {
	assessments map[risks.AssessmentID]*risks.Assessment
}

func newMemRiskRepo() *memRiskRepo {
	return &memRiskRepo{assessments: make(map[risks.AssessmentID]*risks.Assessment)}
}

func (r *memRiskRepo) Save(_ context.Context, a *risks.Assessment) error {
	cp := *a
	r.assessments[a.ID] = &cp
	return nil
}

func (r *memRiskRepo) Get(_ context.Context, _ string, id risks.AssessmentID) (*risks.Assessment, error) {
	a, ok := r.assessments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *memRiskRepo) List(_ context.Context, _ string, _ risks.Status, _ int) ([]*risks.Assessment, error) {
	return nil, nil
}

func (r *memRiskRepo) DueForReview(_ context.Context, _ string, _ time.Time) ([]*risks.Assessment, error) {
	return nil, nil
}

func newFindingService() (*Service, *memFindingRepo, *memAlertRepo, *memRiskRepo) {
	repo := newMemFindingRepo()
	alerts := newMemAlertRepo()
	riskRepo := newMemRiskRepo()
	svc := &Service{
		Repo:   repo,
		Alerts: alerts,
		Risks:  riskRepo,
		Clock:  application.SystemClock{},
	}
	return svc, repo, alerts, riskRepo
}

func TestCreateFinding(t *testing.T) {
	svc, _, _, _ := newFindingService()

	f, err := svc.CreateFinding(context.Background(), CreateFindingCommand{
		TenantID:   "acme",
		Regulation: domain.RegulationGDPR,
		Title:      "Unencrypted customer export",
		Severity:   domain.SeverityHigh,
		Steps: []domain.RemediationStep{
			{Description: "encrypt the bucket", DueDate: time.Now().Add(24 * time.Hour)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, f.Status)
	assert.NotEmpty(t, f.Steps[0].ID, "step ids are assigned")

	_, err = svc.CreateFinding(context.Background(), CreateFindingCommand{
		TenantID:   "acme",
		Regulation: "sox",
		Title:      "x",
	})
	assert.Error(t, err, "unknown regulation is rejected")
}

func TestCompleteStepAndOverdue(t *testing.T) {
	svc, _, _, _ := newFindingService()

	f, err := svc.CreateFinding(context.Background(), CreateFindingCommand{
		TenantID:   "acme",
		Regulation: domain.RegulationCCPA,
		Title:      "Stale consent records",
		Severity:   domain.SeverityMedium,
		Steps: []domain.RemediationStep{
			{Description: "purge expired consents", DueDate: time.Now().Add(-time.Hour)},
		},
	})
	require.NoError(t, err)

	overdue, err := svc.Overdue(context.Background(), "acme", 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	updated, err := svc.CompleteStep(context.Background(), "acme", f.ID, f.Steps[0].ID, "jane")
	require.NoError(t, err)
	assert.True(t, updated.Steps[0].Done)

	overdue, err = svc.Overdue(context.Background(), "acme", 10)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	_, err = svc.CompleteStep(context.Background(), "acme", f.ID, "nosuch", "jane")
	assert.Error(t, err)
}

func TestCreateAlertValidatesReference(t *testing.T) {
	svc, _, alerts, riskRepo := newFindingService()

	// alert pointing at a nonexistent assessment is rejected
	_, err := svc.CreateAlert(context.Background(), CreateAlertCommand{
		TenantID:     "acme",
		ResourceKind: domain.ResourceAssessment,
		ResourceID:   "ghost",
		Message:      "review overdue",
		Severity:     domain.SeverityHigh,
	})
	require.ErrorIs(t, err, ErrUnknownResource)
	assert.Empty(t, alerts.alerts, "nothing persisted on rejection")

	riskRepo.assessments["ra-1"] = &risks.Assessment{ID: "ra-1", TenantID: "acme"}

	a, err := svc.CreateAlert(context.Background(), CreateAlertCommand{
		TenantID:     "acme",
		ResourceKind: domain.ResourceAssessment,
		ResourceID:   "ra-1",
		Message:      "review overdue",
		Severity:     domain.SeverityHigh,
	})
	require.NoError(t, err)
	assert.False(t, a.Acknowledged)

	// finding references are validated too
	_, err = svc.CreateAlert(context.Background(), CreateAlertCommand{
		TenantID:     "acme",
		ResourceKind: domain.ResourceFinding,
		ResourceID:   "ghost",
	})
	require.ErrorIs(t, err, ErrUnknownResource)

	_, err = svc.CreateAlert(context.Background(), CreateAlertCommand{
		TenantID:     "acme",
		ResourceKind: "weird",
		ResourceID:   "ra-1",
	})
	assert.Error(t, err)
}

func TestAcknowledgeAlert(t *testing.T) {
	svc, _, alerts, riskRepo := newFindingService()
	riskRepo.assessments["ra-1"] = &risks.Assessment{ID: "ra-1", TenantID: "acme"}

	a, err := svc.CreateAlert(context.Background(), CreateAlertCommand{
		TenantID:     "acme",
		ResourceKind: domain.ResourceAssessment,
		ResourceID:   "ra-1",
		Severity:     domain.SeverityCritical,
	})
	require.NoError(t, err)

	open, err := svc.OpenAlerts(context.Background(), "acme", 10)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, svc.AcknowledgeAlert(context.Background(), "acme", a.ID, "jane"))
	assert.True(t, alerts.alerts[a.ID].Acknowledged)
	assert.Equal(t, "jane", alerts.alerts[a.ID].AcknowledgedBy)

	open, err = svc.OpenAlerts(context.Background(), "acme", 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}
