package risks

import (
	"fmt"
	"time"
)

// AssessmentID identifier type
type AssessmentID string

// Status enum
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusCompleted Status = "completed"
)

// MeasureStatus enum for mitigation measures
type MeasureStatus string

const (
	MeasureNotStarted MeasureStatus = "not_started"
	MeasurePlanned    MeasureStatus = "planned"
	MeasureInProgress MeasureStatus = "in_progress"
	MeasureCompleted  MeasureStatus = "completed"
)

// MitigationMeasure is owned by an assessment, no independent lifecycle
type MitigationMeasure struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Owner       string        `json:"owner,omitempty"`
	Status      MeasureStatus `json:"status"`
	DueDate     time.Time     `json:"due_date,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
}

// Assessment is a scored risk record. OverallScore is always the product of
// impact and likelihood; it is derived on construction and re-derived on
// score updates, never accepted from the outside.
type Assessment struct {
	ID              AssessmentID        `json:"id"`
	TenantID        string              `json:"tenant_id"`
	Category        string              `json:"category"`
	Description     string              `json:"description"`
	ImpactScore     int                 `json:"impact_score"`     // 1-5
	LikelihoodScore int                 `json:"likelihood_score"` // 1-5
	OverallScore    int                 `json:"overall_score"`    // impact * likelihood, 1-25
	Status          Status              `json:"status"`
	Measures        []MitigationMeasure `json:"measures,omitempty"`
	LastReviewedAt  time.Time           `json:"last_reviewed_at,omitempty"`
	NextReviewAt    time.Time           `json:"next_review_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// Score computes overall = impact * likelihood, validating the 1-5 ranges
func Score(impact, likelihood int) (int, error) {
	if impact < 1 || impact > 5 {
		return 0, fmt.Errorf("impact score %d out of range 1-5", impact)
	}
	if likelihood < 1 || likelihood > 5 {
		return 0, fmt.Errorf("likelihood score %d out of range 1-5", likelihood)
	}
	return impact * likelihood, nil
}

// SeverityBand maps an overall score onto the 5x5 matrix reading
func SeverityBand(overall int) string {
	switch {
	case overall >= 15:
		return "critical"
	case overall >= 10:
		return "high"
	case overall >= 5:
		return "medium"
	default:
		return "low"
	}
}

// SetScores updates impact/likelihood and re-derives the overall score
func (a *Assessment) SetScores(impact, likelihood int) error {
	overall, err := Score(impact, likelihood)
	if err != nil {
		return err
	}
	a.ImpactScore = impact
	a.LikelihoodScore = likelihood
	a.OverallScore = overall
	return nil
}

// Band returns the severity band of this assessment
func (a *Assessment) Band() string {
	return SeverityBand(a.OverallScore)
}

// DueForReview reports whether the next review date has passed
func (a *Assessment) DueForReview(now time.Time) bool {
	return a.Status == StatusActive && !a.NextReviewAt.IsZero() && now.After(a.NextReviewAt)
}
