package scans

import (
	"time"
)

// ID type for a privacy scan
type ScanID string

// Status enum
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
)

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// Add folds another tally into this one
func (c *SeverityCounts) Add(o SeverityCounts) {
	c.Critical += o.Critical
	c.High += o.High
	c.Medium += o.Medium
	c.Low += o.Low
	c.Total += o.Total
}

// Aggregate Root: Scan is one privacy scan executed through a connector
type Scan struct {
	ID             ScanID         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	TriggeredAt    time.Time      `json:"triggered_at"`
	Connector      string         `json:"connector"`
	Kind           string         `json:"kind,omitempty"` // crm | cms | mailbox | cloudstorage
	Scope          string         `json:"scope,omitempty"`
	Status         Status         `json:"status"`
	Counts         SeverityCounts `json:"counts"`
	RecordsScanned int            `json:"records_scanned"`
	ReportURL      string         `json:"report_url,omitempty"`
	RawFormat      string         `json:"raw_format,omitempty"`
	DurationMS     int64          `json:"duration_ms"`
	Source         string         `json:"source,omitempty"`
	Metadata       any            `json:"metadata,omitempty"`
}
