package findings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/complykit/privacy-comply/internal/application"
	"github.com/complykit/privacy-comply/internal/domain/audit"
	domain "github.com/complykit/privacy-comply/internal/domain/findings"
	"github.com/complykit/privacy-comply/internal/domain/risks"
)

// ErrUnknownResource is returned when an alert references a record that
// does not exist for the tenant.
var ErrUnknownResource = errors.New("alert references unknown resource")

var validRegulations = map[domain.Regulation]bool{
	domain.RegulationGDPR:   true,
	domain.RegulationCCPA:   true,
	domain.RegulationHIPAA:  true,
	domain.RegulationPCIDSS: true,
}

// Service implements the compliance finding and alert use-cases. Alerts may
// reference assessments or findings, so the service holds both repositories
// to validate references at creation time.
type Service struct {
	Repo   domain.Repository
	Alerts domain.AlertRepository
	Risks  risks.Repository
	Audit  audit.Repository
	Clock  application.Clock
}

type CreateFindingCommand struct {
	TenantID    string
	ScanID      string
	Regulation  domain.Regulation
	Title       string
	Description string
	Severity    domain.Severity
	Steps       []domain.RemediationStep
	Actor       string
}

// CreateFinding persists a new open finding
func (s *Service) CreateFinding(ctx context.Context, cmd CreateFindingCommand) (*domain.Finding, error) {
	if cmd.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if !validRegulations[cmd.Regulation] {
		return nil, fmt.Errorf("unknown regulation %q", cmd.Regulation)
	}

	now := s.Clock.Now()
	f := &domain.Finding{
		ID:          domain.FindingID(uuid.New().String()),
		TenantID:    cmd.TenantID,
		ScanID:      cmd.ScanID,
		Regulation:  cmd.Regulation,
		Title:       cmd.Title,
		Description: cmd.Description,
		Severity:    cmd.Severity,
		Status:      domain.StatusOpen,
		Steps:       cmd.Steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := range f.Steps {
		if f.Steps[i].ID == "" {
			f.Steps[i].ID = uuid.New().String()
		}
	}
	if err := s.Repo.Save(ctx, f); err != nil {
		return nil, err
	}
	s.record(ctx, cmd.TenantID, cmd.Actor, "finding.create", "finding:"+string(f.ID))
	return f, nil
}

// UpdateStatus moves a finding through its workflow
func (s *Service) UpdateStatus(ctx context.Context, tenant string, id domain.FindingID, status domain.Status, actor string) error {
	if _, err := s.Repo.Get(ctx, tenant, id); err != nil {
		return err
	}
	if err := s.Repo.UpdateStatus(ctx, tenant, id, status); err != nil {
		return err
	}
	s.record(ctx, tenant, actor, "finding.status", "finding:"+string(id))
	return nil
}

// CompleteStep marks one remediation step done
func (s *Service) CompleteStep(ctx context.Context, tenant string, id domain.FindingID, stepID, actor string) (*domain.Finding, error) {
	f, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	found := false
	now := s.Clock.Now()
	for i := range f.Steps {
		if f.Steps[i].ID == stepID {
			f.Steps[i].Done = true
			f.Steps[i].DoneAt = now
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("step %q not found on finding %s", stepID, id)
	}
	f.UpdatedAt = now
	if err := s.Repo.Save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Overdue returns findings that still have unfinished steps past due
func (s *Service) Overdue(ctx context.Context, tenant string, limit int) ([]*domain.Finding, error) {
	open, err := s.Repo.List(ctx, tenant, domain.StatusOpen, limit)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	var out []*domain.Finding
	for _, f := range open {
		if len(f.OverdueSteps(now)) > 0 {
			out = append(out, f)
		}
	}
	return out, nil
}

type CreateAlertCommand struct {
	TenantID     string
	ResourceKind domain.ResourceKind
	ResourceID   string
	Message      string
	Severity     domain.Severity
	Actor        string
}

// CreateAlert validates that the referenced assessment or finding exists
// before persisting the alert. Dangling references are rejected here.
func (s *Service) CreateAlert(ctx context.Context, cmd CreateAlertCommand) (*domain.Alert, error) {
	if cmd.ResourceID == "" {
		return nil, fmt.Errorf("resource id is required: %w", ErrUnknownResource)
	}

	switch cmd.ResourceKind {
	case domain.ResourceAssessment:
		if _, err := s.Risks.Get(ctx, cmd.TenantID, risks.AssessmentID(cmd.ResourceID)); err != nil {
			return nil, fmt.Errorf("assessment %s: %w", cmd.ResourceID, ErrUnknownResource)
		}
	case domain.ResourceFinding:
		if _, err := s.Repo.Get(ctx, cmd.TenantID, domain.FindingID(cmd.ResourceID)); err != nil {
			return nil, fmt.Errorf("finding %s: %w", cmd.ResourceID, ErrUnknownResource)
		}
	default:
		return nil, fmt.Errorf("unknown resource kind %q", cmd.ResourceKind)
	}

	a := &domain.Alert{
		ID:           domain.AlertID(uuid.New().String()),
		TenantID:     cmd.TenantID,
		ResourceKind: cmd.ResourceKind,
		ResourceID:   cmd.ResourceID,
		Message:      cmd.Message,
		Severity:     cmd.Severity,
		CreatedAt:    s.Clock.Now(),
	}
	if err := s.Alerts.Save(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, cmd.TenantID, cmd.Actor, "alert.create", "alert:"+string(a.ID))
	return a, nil
}

// AcknowledgeAlert marks an alert handled
func (s *Service) AcknowledgeAlert(ctx context.Context, tenant string, id domain.AlertID, by string) error {
	if err := s.Alerts.Acknowledge(ctx, tenant, id, by); err != nil {
		return err
	}
	s.record(ctx, tenant, by, "alert.ack", "alert:"+string(id))
	return nil
}

// OpenAlerts lists unacknowledged alerts
func (s *Service) OpenAlerts(ctx context.Context, tenant string, limit int) ([]*domain.Alert, error) {
	return s.Alerts.ListUnacknowledged(ctx, tenant, limit)
}

// Get returns one finding
func (s *Service) Get(ctx context.Context, tenant string, id domain.FindingID) (*domain.Finding, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// List findings, optionally by status
func (s *Service) List(ctx context.Context, tenant string, status domain.Status, limit int) ([]*domain.Finding, error) {
	return s.Repo.List(ctx, tenant, status, limit)
}

func (s *Service) record(ctx context.Context, tenant, actor, action, resource string) {
	if s.Audit == nil {
		return
	}
	_ = s.Audit.Append(ctx, &audit.Entry{
		TenantID: tenant,
		Actor:    actor,
		Action:   action,
		Resource: resource,
		At:       s.Clock.Now(),
	})
}
