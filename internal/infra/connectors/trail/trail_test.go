package trail

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrailRecordAndRange(t *testing.T) {
	var tr Trail
	tr.Record("connect", "session opened", nil)
	tr.Record("scan", "bucket=docs", nil)
	tr.Record("scan", "", errors.New("timeout"))

	all := tr.Activities(time.Time{}, time.Time{})
	assert.Len(t, all, 3)
	assert.Equal(t, "error", all[2].Outcome)
	assert.Equal(t, "timeout", all[2].Detail)

	// a window entirely in the past excludes everything
	past := tr.Activities(time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
	assert.Empty(t, past)
}

func TestComplianceReport(t *testing.T) {
	var tr Trail
	tr.Record("connect", "", nil)
	tr.Record("scan", "", nil)
	tr.Record("scan", "", errors.New("boom"))

	rep := tr.ComplianceReport(time.Time{}, time.Time{})
	assert.Equal(t, 3, rep.TotalEvents)
	assert.Equal(t, 1, rep.Errors)
	assert.Equal(t, 2, rep.Operations["scan"])
	assert.Equal(t, 1, rep.Operations["connect"])
}
