package risks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/complykit/privacy-comply/internal/application"
	"github.com/complykit/privacy-comply/internal/domain/audit"
	domain "github.com/complykit/privacy-comply/internal/domain/risks"
)

// Service implements the risk assessment use-cases
type Service struct {
	Repo  domain.Repository
	Audit audit.Repository
	Clock application.Clock
}

type CreateAssessmentCommand struct {
	TenantID        string
	Category        string
	Description     string
	ImpactScore     int
	LikelihoodScore int
	NextReviewAt    time.Time
	Actor           string
}

// Create scores and persists a new assessment. The overall score is always
// derived here, never taken from the caller.
func (s *Service) Create(ctx context.Context, cmd CreateAssessmentCommand) (*domain.Assessment, error) {
	if cmd.Category == "" {
		return nil, fmt.Errorf("category is required")
	}
	overall, err := domain.Score(cmd.ImpactScore, cmd.LikelihoodScore)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	a := &domain.Assessment{
		ID:              domain.AssessmentID(uuid.New().String()),
		TenantID:        cmd.TenantID,
		Category:        cmd.Category,
		Description:     cmd.Description,
		ImpactScore:     cmd.ImpactScore,
		LikelihoodScore: cmd.LikelihoodScore,
		OverallScore:    overall,
		Status:          domain.StatusActive,
		NextReviewAt:    cmd.NextReviewAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, cmd.TenantID, cmd.Actor, "risk.create", "risk:"+string(a.ID))
	return a, nil
}

// Rescore updates impact/likelihood and re-derives the overall score
func (s *Service) Rescore(ctx context.Context, tenant string, id domain.AssessmentID, impact, likelihood int, actor string) (*domain.Assessment, error) {
	a, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := a.SetScores(impact, likelihood); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, tenant, actor, "risk.rescore", "risk:"+string(id))
	return a, nil
}

// AddMeasure attaches a mitigation measure to an assessment
func (s *Service) AddMeasure(ctx context.Context, tenant string, id domain.AssessmentID, m domain.MitigationMeasure, actor string) (*domain.Assessment, error) {
	a, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.MeasureNotStarted
	}
	a.Measures = append(a.Measures, m)
	a.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, tenant, actor, "risk.measure_add", "risk:"+string(id))
	return a, nil
}

// CompleteMeasure marks one measure completed
func (s *Service) CompleteMeasure(ctx context.Context, tenant string, id domain.AssessmentID, measureID, actor string) (*domain.Assessment, error) {
	a, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	found := false
	now := s.Clock.Now()
	for i := range a.Measures {
		if a.Measures[i].ID == measureID {
			a.Measures[i].Status = domain.MeasureCompleted
			a.Measures[i].CompletedAt = now
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("measure %q not found on assessment %s", measureID, id)
	}
	a.UpdatedAt = now
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, tenant, actor, "risk.measure_done", "risk:"+string(id))
	return a, nil
}

// MarkReviewed stamps the review cycle: last reviewed now, next review at
// the given date.
func (s *Service) MarkReviewed(ctx context.Context, tenant string, id domain.AssessmentID, nextReview time.Time, actor string) (*domain.Assessment, error) {
	a, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	a.LastReviewedAt = now
	a.NextReviewAt = nextReview
	a.UpdatedAt = now
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, tenant, actor, "risk.review", "risk:"+string(id))
	return a, nil
}

// Get returns one assessment
func (s *Service) Get(ctx context.Context, tenant string, id domain.AssessmentID) (*domain.Assessment, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// List assessments, optionally by status
func (s *Service) List(ctx context.Context, tenant string, status domain.Status, limit int) ([]*domain.Assessment, error) {
	return s.Repo.List(ctx, tenant, status, limit)
}

// DueForReview returns active assessments past their review date
func (s *Service) DueForReview(ctx context.Context, tenant string) ([]*domain.Assessment, error) {
	return s.Repo.DueForReview(ctx, tenant, s.Clock.Now())
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
