package middleware

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Input validation helpers for request parameters

var (
	tenantIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	// scan ids look like uuid-connector
	scanIDRe = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-.+$`)
)

// ValidateConnector checks a connector name against the registered set
func ValidateConnector(name string, registered []string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range registered {
		if name == r {
			return nil
		}
	}
	return fmt.Errorf("unknown connector: %s (registered: %s)", name, strings.Join(registered, ", "))
}

// ValidateEndpointURL validates connector endpoints supplied by clients.
// Localhost and private ranges are blocked to keep scans from reaching
// internal services.
func ValidateEndpointURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	blocked := []string{"localhost", "127.0.0.1", "0.0.0.0", "[::]", "::1"}
	for _, b := range blocked {
		if strings.Contains(host, b) {
			return fmt.Errorf("localhost/internal IPs are not allowed")
		}
	}
	if strings.HasPrefix(host, "10.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "172.16.") ||
		strings.HasPrefix(host, "172.31.") {
		return fmt.Errorf("private IP ranges are not allowed")
	}
	return nil
}

// ValidateTenantID checks tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !tenantIDRe.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateScanID checks scan ID format (uuid plus connector suffix)
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return fmt.Errorf("scan ID cannot be empty")
	}
	if !scanIDRe.MatchString(scanID) {
		return fmt.Errorf("invalid scan ID format")
	}
	return nil
}

// ValidateSeverity checks a severity string
func ValidateSeverity(s string) error {
	switch strings.ToLower(s) {
	case "low", "medium", "high", "critical":
		return nil
	}
	return fmt.Errorf("invalid severity: %s (allowed: low, medium, high, critical)", s)
}

// ValidateRegulation checks a regulation tag
func ValidateRegulation(r string) error {
	switch strings.ToLower(r) {
	case "gdpr", "ccpa", "hipaa", "pci_dss":
		return nil
	}
	return fmt.Errorf("invalid regulation: %s (allowed: gdpr, ccpa, hipaa, pci_dss)", r)
}

// SanitizeString strips null bytes and control characters
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit clamps a pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ValidateDays clamps a summary window
func ValidateDays(days int) int {
	if days <= 0 {
		return 7
	}
	if days > 365 {
		return 365
	}
	return days
}
