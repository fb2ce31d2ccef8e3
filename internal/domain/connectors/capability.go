package connectors

import (
	"context"
	"time"
)

// FindingCallback receives findings pushed by a realtime monitor
type FindingCallback func(PIIFinding)

// RealtimeScanner is the optional push-notification capability.
type RealtimeScanner interface {
	Connector

	// StartRealtimeMonitoring registers the callback and begins delivery.
	// Returns ErrLifecycle if monitoring is already active.
	StartRealtimeMonitoring(ctx context.Context, cb FindingCallback) error

	// StopRealtimeMonitoring halts delivery. When it returns, the callback
	// will not be invoked again.
	StopRealtimeMonitoring() error

	// RealtimeActive reports current state without side effects
	RealtimeActive() bool
}

// BatchScanner is the optional chunked-execution capability. Batches are
// processed sequentially, one request against the external system at a
// time, so rate-limit pressure stays proportional to batchSize.
type BatchScanner interface {
	Connector

	// BatchScan splits the scan into batches of at most batchSize records
	// and returns one result per batch. Empty scope yields an empty slice,
	// never an error.
	BatchScan(ctx context.Context, cfg ScanConfiguration, batchSize int) ([]ScanResult, error)

	// BatchRemediate applies actions in batches of at most batchSize and
	// returns one result per batch. Empty input yields an empty slice.
	BatchRemediate(ctx context.Context, actions []RemediationAction, batchSize int) ([]RemediationResult, error)
}

// ContactFilter narrows CRM contact/lead scans
type ContactFilter struct {
	Owner         string    `json:"owner,omitempty"`
	Segment       string    `json:"segment,omitempty"`
	ModifiedSince time.Time `json:"modified_since,omitempty"`
	Limit         int       `json:"limit,omitempty"`
}

// CRMScanner covers contact/lead data shapes
type CRMScanner interface {
	Connector

	ScanContacts(ctx context.Context, filter ContactFilter) (*ScanResult, error)
	ScanLeads(ctx context.Context, filter ContactFilter) (*ScanResult, error)
}

// CMSScanner covers pages, comments and embedded trackers
type CMSScanner interface {
	Connector

	ScanPages(ctx context.Context, paths []string) (*ScanResult, error)
	ScanComments(ctx context.Context, since time.Time) (*ScanResult, error)
	// DetectTrackers inspects page markup for third-party trackers and
	// reports each as a finding of type "tracker".
	DetectTrackers(ctx context.Context, paths []string) (*ScanResult, error)
}

// MessageFilter narrows mailbox/chat scans
type MessageFilter struct {
	Folder      string    `json:"folder,omitempty"`
	Participant string    `json:"participant,omitempty"`
	Since       time.Time `json:"since,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}

// MailboxScanner covers message and attachment shapes
type MailboxScanner interface {
	Connector

	ScanMessages(ctx context.Context, filter MessageFilter) (*ScanResult, error)
	ScanAttachments(ctx context.Context, filter MessageFilter) (*ScanResult, error)
}

// CloudStorageScanner covers bucket/object shapes
type CloudStorageScanner interface {
	Connector

	ListBuckets(ctx context.Context) ([]string, error)
	ScanBucket(ctx context.Context, bucket string, cfg ScanConfiguration) (*ScanResult, error)
	ScanObject(ctx context.Context, bucket, key string) (*ScanResult, error)
}

// ConfigValidator is the pre-flight check capability, run before the
// lifecycle starts.
type ConfigValidator interface {
	// ValidateConfiguration returns ErrConfiguration (wrapped) when the
	// given configuration cannot be executed by this connector.
	ValidateConfiguration(cfg ScanConfiguration) error

	// DefaultConfiguration returns a configuration that passes validation
	DefaultConfiguration() ScanConfiguration

	// TestConnection verifies reachability without opening a session
	TestConnection(ctx context.Context) error

	// SupportedScanOptions lists the PII types this connector can detect
	SupportedScanOptions() []string
}

// Activity is one entry in a connector's append-only activity log
type Activity struct {
	At        time.Time `json:"at"`
	Operation string    `json:"operation"` // connect, scan, remediate, ...
	Detail    string    `json:"detail,omitempty"`
	Outcome   string    `json:"outcome"` // ok | error
}

// ActivityReport summarizes connector activity over a time range
type ActivityReport struct {
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Operations  map[string]int `json:"operations"`
	Errors      int            `json:"errors"`
	TotalEvents int            `json:"total_events"`
}

// AuditTracker exposes a connector's own activity trail. Entries are
// append-only; retention is the operator's concern, not the connector's.
type AuditTracker interface {
	Activities(from, to time.Time) []Activity
	ComplianceReport(from, to time.Time) ActivityReport
}
