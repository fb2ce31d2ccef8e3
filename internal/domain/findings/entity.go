package findings

import "time"

// FindingID identifier type
type FindingID string

// Regulation enum
type Regulation string

const (
	RegulationGDPR   Regulation = "gdpr"
	RegulationCCPA   Regulation = "ccpa"
	RegulationHIPAA  Regulation = "hipaa"
	RegulationPCIDSS Regulation = "pci_dss"
)

// Severity enum
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status enum
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// RemediationStep is owned by a finding, each with its own due date
type RemediationStep struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Assignee    string    `json:"assignee,omitempty"`
	DueDate     time.Time `json:"due_date,omitempty"`
	Done        bool      `json:"done"`
	DoneAt      time.Time `json:"done_at,omitempty"`
}

// Finding is a regulation-tagged compliance issue
type Finding struct {
	ID          FindingID         `json:"id"`
	TenantID    string            `json:"tenant_id"`
	ScanID      string            `json:"scan_id,omitempty"`
	Regulation  Regulation        `json:"regulation"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Severity    Severity          `json:"severity"`
	Status      Status            `json:"status"`
	Steps       []RemediationStep `json:"steps,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ResolvedAt  time.Time         `json:"resolved_at,omitempty"`
}

// OverdueSteps returns unfinished steps whose due date has passed
func (f *Finding) OverdueSteps(now time.Time) []RemediationStep {
	var out []RemediationStep
	for _, s := range f.Steps {
		if !s.Done && !s.DueDate.IsZero() && now.After(s.DueDate) {
			out = append(out, s)
		}
	}
	return out
}

// AlertID identifier type
type AlertID string

// ResourceKind enum for the record an alert references
type ResourceKind string

const (
	ResourceAssessment ResourceKind = "risk_assessment"
	ResourceFinding    ResourceKind = "compliance_finding"
)

// Alert is a derived notification referencing an assessment or a finding.
// The reference is validated at creation by the application service, not
// here: the shape stays representable regardless of what it points at.
type Alert struct {
	ID             AlertID      `json:"id"`
	TenantID       string       `json:"tenant_id"`
	ResourceKind   ResourceKind `json:"resource_kind"`
	ResourceID     string       `json:"resource_id"`
	Message        string       `json:"message"`
	Severity       Severity     `json:"severity"`
	Acknowledged   bool         `json:"acknowledged"`
	AcknowledgedBy string       `json:"acknowledged_by,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
