package risks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		impact     int
		likelihood int
		want       int
		wantErr    bool
	}{
		{name: "maximum", impact: 5, likelihood: 5, want: 25},
		{name: "minimum", impact: 1, likelihood: 1, want: 1},
		{name: "mixed", impact: 3, likelihood: 4, want: 12},
		{name: "impact too low", impact: 0, likelihood: 3, wantErr: true},
		{name: "impact too high", impact: 6, likelihood: 3, wantErr: true},
		{name: "likelihood too low", impact: 3, likelihood: 0, wantErr: true},
		{name: "likelihood too high", impact: 3, likelihood: 6, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(tt.impact, tt.likelihood)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverityBand(t *testing.T) {
	assert.Equal(t, "low", SeverityBand(1))
	assert.Equal(t, "low", SeverityBand(4))
	assert.Equal(t, "medium", SeverityBand(5))
	assert.Equal(t, "medium", SeverityBand(9))
	assert.Equal(t, "high", SeverityBand(10))
	assert.Equal(t, "high", SeverityBand(14))
	assert.Equal(t, "critical", SeverityBand(15))
	assert.Equal(t, "critical", SeverityBand(25))
}

func TestSetScoresDerivesOverall(t *testing.T) {
	a := &Assessment{}
	require.NoError(t, a.SetScores(5, 5))
	assert.Equal(t, 25, a.OverallScore)
	assert.Equal(t, "critical", a.Band())

	// invalid update leaves scores untouched
	assert.Error(t, a.SetScores(0, 5))
	assert.Equal(t, 25, a.OverallScore)
}

func TestDueForReview(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := &Assessment{Status: StatusActive, NextReviewAt: now.AddDate(0, -1, 0)}
	assert.True(t, a.DueForReview(now))

	a.Status = StatusCompleted
	assert.False(t, a.DueForReview(now))

	a.Status = StatusActive
	a.NextReviewAt = time.Time{}
	assert.False(t, a.DueForReview(now))
}
