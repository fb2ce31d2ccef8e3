package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConnector(t *testing.T) {
	registered := []string{"hubcrm", "sitecms", "imapbox", "cloudstorage"}

	assert.NoError(t, ValidateConnector("hubcrm", registered))
	assert.NoError(t, ValidateConnector(" HubCRM ", registered))
	assert.Error(t, ValidateConnector("jira", registered))
	assert.Error(t, ValidateConnector("", registered))
}

func TestValidateEndpointURL(t *testing.T) {
	assert.NoError(t, ValidateEndpointURL("https://api.example.com/v2"))
	assert.Error(t, ValidateEndpointURL(""))
	assert.Error(t, ValidateEndpointURL("ftp://example.com"))
	assert.Error(t, ValidateEndpointURL("http://localhost:8080"))
	assert.Error(t, ValidateEndpointURL("http://127.0.0.1/x"))
	assert.Error(t, ValidateEndpointURL("http://10.1.2.3/x"))
	assert.Error(t, ValidateEndpointURL("http://192.168.0.1/x"))
}

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme-corp_01"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("bad tenant"))
	assert.Error(t, ValidateTenantID("a/b"))
}

func TestValidateScanID(t *testing.T) {
	assert.NoError(t, ValidateScanID("123e4567-e89b-42d3-a456-426614174000-hubcrm"))
	assert.Error(t, ValidateScanID(""))
	assert.Error(t, ValidateScanID("not-a-scan-id"))
	assert.Error(t, ValidateScanID("123e4567-e89b-42d3-a456-426614174000"))
}

func TestValidateSeverityAndRegulation(t *testing.T) {
	assert.NoError(t, ValidateSeverity("critical"))
	assert.NoError(t, ValidateSeverity("LOW"))
	assert.Error(t, ValidateSeverity("severe"))

	assert.NoError(t, ValidateRegulation("gdpr"))
	assert.NoError(t, ValidateRegulation("PCI_DSS"))
	assert.Error(t, ValidateRegulation("sox"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("hello\x00"))
	assert.Equal(t, "a b", SanitizeString("  a b \x01\x02"))
}

func TestClamps(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 42, ValidateLimit(42))

	assert.Equal(t, 7, ValidateDays(-1))
	assert.Equal(t, 365, ValidateDays(9999))
	assert.Equal(t, 30, ValidateDays(30))
}
