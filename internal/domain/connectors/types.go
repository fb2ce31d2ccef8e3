package connectors

import "time"

// Kind enum for the external system a connector integrates with
type Kind string

const (
	KindCRM          Kind = "crm"
	KindCMS          Kind = "cms"
	KindMailbox      Kind = "mailbox"
	KindCloudStorage Kind = "cloudstorage"
)

// Severity of a single finding
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Credentials for establishing a session with the external system.
// Exactly which fields apply depends on the connector kind.
type Credentials struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	Token     string `json:"token,omitempty"`
	Region    string `json:"region,omitempty"`
	UseSSL    bool   `json:"use_ssl"`
}

// ScanConfiguration controls what a privacy scan covers
type ScanConfiguration struct {
	Scopes        []string  `json:"scopes,omitempty"`   // buckets, folders, modules; connector-specific
	PIITypes      []string  `json:"pii_types,omitempty"` // empty = all supported detectors
	Since         time.Time `json:"since,omitempty"`
	MaxRecords    int       `json:"max_records,omitempty"`
	SampleContent bool      `json:"sample_content"` // include masked samples in findings
}

// PIIFinding is one detected instance of personal data or a compliance gap
type PIIFinding struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`     // email, phone, ssn, credit_card, ...
	Location     string    `json:"location"` // record/object/message path inside the external system
	MaskedSample string    `json:"masked_sample,omitempty"`
	Severity     Severity  `json:"severity"`
	Confidence   float64   `json:"confidence"`
	DetectedAt   time.Time `json:"detected_at"`
}

// ScanResult aggregates the output of one scan pass
type ScanResult struct {
	ConnectorName  string       `json:"connector_name"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    time.Time    `json:"completed_at"`
	RecordsScanned int          `json:"records_scanned"`
	Findings       []PIIFinding `json:"findings"`
}

// ActionType enum for remediation
type ActionType string

const (
	ActionDelete    ActionType = "delete"
	ActionAnonymize ActionType = "anonymize"
	ActionNotify    ActionType = "notify"
)

// RemediationAction targets one finding
type RemediationAction struct {
	FindingID string     `json:"finding_id"`
	Type      ActionType `json:"type"`
	Location  string     `json:"location"`
	Reason    string     `json:"reason,omitempty"`
}

// ActionOutcome is the per-action result inside a RemediationResult
type ActionOutcome struct {
	FindingID string     `json:"finding_id"`
	Type      ActionType `json:"type"`
	Succeeded bool       `json:"succeeded"`
	Error     string     `json:"error,omitempty"`
}

// RemediationResult reports every action individually so a partial failure
// is never collapsed into a single boolean.
type RemediationResult struct {
	ConnectorName string          `json:"connector_name"`
	AppliedAt     time.Time       `json:"applied_at"`
	Outcomes      []ActionOutcome `json:"outcomes"`
}

// Failed returns the outcomes that did not succeed
func (r *RemediationResult) Failed() []ActionOutcome {
	var out []ActionOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			out = append(out, o)
		}
	}
	return out
}

// AllSucceeded reports whether every action applied cleanly
func (r *RemediationResult) AllSucceeded() bool {
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			return false
		}
	}
	return true
}

// ConnectorHealth is a point-in-time status probe result
type ConnectorHealth struct {
	Status    string    `json:"status"` // healthy | unhealthy | degraded
	Connected bool      `json:"connected"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
