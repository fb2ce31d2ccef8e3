package detect

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
	"github.com/complykit/privacy-comply/internal/domain/scans"
)

// Detector pairs a compiled pattern with its PII type and severity. An
// optional validate func rejects matches the pattern alone cannot (checksum
// formats like credit card numbers).
type Detector struct {
	Type     string
	Severity connectors.Severity
	re       *regexp.Regexp
	validate func(string) bool
}

var detectors = []Detector{
	{Type: "email", Severity: connectors.SeverityMedium,
		re: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{Type: "phone", Severity: connectors.SeverityLow,
		re: regexp.MustCompile(`\+?[0-9][0-9\-\s().]{7,14}[0-9]`), validate: isPlausiblePhone},
	{Type: "ssn", Severity: connectors.SeverityCritical,
		re: regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`)},
	{Type: "credit_card", Severity: connectors.SeverityCritical,
		re: regexp.MustCompile(`\b(?:[0-9][ \-]?){12,18}[0-9]\b`), validate: luhnValid},
	{Type: "iban", Severity: connectors.SeverityHigh,
		re: regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}\b`)},
	{Type: "ip_address", Severity: connectors.SeverityLow,
		re: regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)},
	{Type: "aws_access_key", Severity: connectors.SeverityCritical,
		re: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{Type: "private_key", Severity: connectors.SeverityCritical,
		re: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`)},
	{Type: "api_secret", Severity: connectors.SeverityHigh,
		re: regexp.MustCompile(`(?i)(?:api[_\-]?key|secret|token)["'\s:=]+[A-Za-z0-9_\-]{16,}`)},
}

// SupportedTypes lists every detector type, in table order
func SupportedTypes() []string {
	out := make([]string, 0, len(detectors))
	for _, d := range detectors {
		out = append(out, d.Type)
	}
	return out
}

// Scan runs the detector table over content and reports one finding per
// match. piiTypes narrows detection; empty means all. When sample is false
// the masked sample is omitted entirely.
func Scan(location, content string, piiTypes []string, sample bool) []connectors.PIIFinding {
	wanted := map[string]bool{}
	for _, t := range piiTypes {
		wanted[strings.ToLower(t)] = true
	}

	now := time.Now()
	var out []connectors.PIIFinding
	for _, d := range detectors {
		if len(wanted) > 0 && !wanted[d.Type] {
			continue
		}
		for _, m := range d.re.FindAllString(content, -1) {
			if d.validate != nil && !d.validate(m) {
				continue
			}
			f := connectors.PIIFinding{
				ID:         uuid.New().String(),
				Type:       d.Type,
				Location:   location,
				Severity:   d.Severity,
				Confidence: confidence(d),
				DetectedAt: now,
			}
			if sample {
				f.MaskedSample = Mask(m)
			}
			out = append(out, f)
		}
	}
	return out
}

// Tally aggregates findings into severity counts
func Tally(findings []connectors.PIIFinding) scans.SeverityCounts {
	var c scans.SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case connectors.SeverityCritical:
			c.Critical++
		case connectors.SeverityHigh:
			c.High++
		case connectors.SeverityMedium:
			c.Medium++
		case connectors.SeverityLow:
			c.Low++
		}
		c.Total++
	}
	return c
}

// Mask keeps the first and last two characters and blanks the rest
func Mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func confidence(d Detector) float64 {
	// checksum-validated matches are near certain; bare patterns less so
	if d.validate != nil {
		return 0.95
	}
	switch d.Type {
	case "email", "ssn", "aws_access_key", "private_key", "iban":
		return 0.9
	default:
		return 0.6
	}
}

func isPlausiblePhone(s string) bool {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 8 && digits <= 15
}

// luhnValid checks the Luhn checksum over the digits of s
func luhnValid(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
