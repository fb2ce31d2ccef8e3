package audit

import "time"

// Entry is one append-only activity record. Entries are never updated or
// deleted by the platform; retention is left to the database operator.
type Entry struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Actor       string    `json:"actor"`
	Action      string    `json:"action"`   // scan.trigger, remediate.apply, user.create, ...
	Resource    string    `json:"resource"` // scan:<id>, user:<id>, connector:<name>
	DetailsJSON string    `json:"details_json,omitempty"`
	At          time.Time `json:"at"`
}

// Report aggregates activity over a time range for compliance evidence
type Report struct {
	TenantID    string         `json:"tenant_id"`
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	ByAction    map[string]int `json:"by_action"`
	ByActor     map[string]int `json:"by_actor"`
	TotalEvents int            `json:"total_events"`
}

// BuildReport tallies entries by action and actor
func BuildReport(tenant string, from, to time.Time, entries []*Entry) Report {
	r := Report{
		TenantID: tenant,
		From:     from,
		To:       to,
		ByAction: map[string]int{},
		ByActor:  map[string]int{},
	}
	for _, e := range entries {
		r.ByAction[e.Action]++
		r.ByActor[e.Actor]++
		r.TotalEvents++
	}
	return r
}
