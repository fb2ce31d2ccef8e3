package trail

import (
	"sync"
	"time"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
)

// Trail is an in-memory append-only activity log connectors embed to
// satisfy the AuditTracker capability. Entries are never mutated after
// Record; retention is the caller's concern.
type Trail struct {
	mu      sync.Mutex
	entries []connectors.Activity
}

// Record appends one activity entry
func (t *Trail) Record(operation, detail string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if detail == "" {
			detail = err.Error()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, connectors.Activity{
		At:        time.Now(),
		Operation: operation,
		Detail:    detail,
		Outcome:   outcome,
	})
}

// Activities implements connectors.AuditTracker
func (t *Trail) Activities(from, to time.Time) []connectors.Activity {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []connectors.Activity
	for _, e := range t.entries {
		if inRange(e.At, from, to) {
			out = append(out, e)
		}
	}
	return out
}

// ComplianceReport implements connectors.AuditTracker
func (t *Trail) ComplianceReport(from, to time.Time) connectors.ActivityReport {
	rep := connectors.ActivityReport{
		From:       from,
		To:         to,
		Operations: make(map[string]int),
	}
	for _, e := range t.Activities(from, to) {
		rep.Operations[e.Operation]++
		if e.Outcome == "error" {
			rep.Errors++
		}
		rep.TotalEvents++
	}
	return rep
}

func inRange(at, from, to time.Time) bool {
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && at.After(to) {
		return false
	}
	return true
}
