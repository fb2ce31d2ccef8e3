package agent

import "context"

// Client is the LLM provider port
type Client interface {
	// ProcessQuery answers a free-form compliance question
	ProcessQuery(ctx context.Context, query string) (string, error)
	// GenerateComplianceReport analyzes a scan report artifact by URL and
	// returns a JSON report string
	GenerateComplianceReport(ctx context.Context, reportURL string) (string, error)
}
