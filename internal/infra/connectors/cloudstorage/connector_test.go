package cloudstorage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
)

const bucketListXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListAllMyBucketsResult>
  <Owner><ID>test</ID><DisplayName>test</DisplayName></Owner>
  <Buckets>
    <Bucket><Name>crm-exports</Name><CreationDate>2026-01-01T00:00:00.000Z</CreationDate></Bucket>
  </Buckets>
</ListAllMyBucketsResult>`

// s3Stub answers just enough of the S3 API for connect and delete
type s3Stub struct {
	mu      sync.Mutex
	deleted []string
}

func (s *s3Stub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/":
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, bucketListXML)
		case r.Method == http.MethodDelete:
			s.mu.Lock()
			s.deleted = append(s.deleted, r.URL.Path)
			s.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}
}

func connectedStub(t *testing.T) (*Connector, *s3Stub) {
	t.Helper()
	stub := &s3Stub{}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	c, err := New(connectors.Settings{})
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background(), connectors.Credentials{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "test-access",
		SecretKey: "test-secret",
		Region:    "us-east-1",
	}))
	t.Cleanup(func() { _ = c.Disconnect(context.Background()) })
	return c, stub
}

func TestRemediateBeforeConnect(t *testing.T) {
	c, err := New(connectors.Settings{})
	require.NoError(t, err)
	_, err = c.Remediate(context.Background(), []connectors.RemediationAction{
		{FindingID: "f1", Type: connectors.ActionDelete, Location: "s3://b/k"},
	})
	assert.ErrorIs(t, err, connectors.ErrNotConnected)
}

func TestDisconnectIdempotent(t *testing.T) {
	c, err := New(connectors.Settings{})
	require.NoError(t, err)
	require.NoError(t, c.Disconnect(context.Background()))
	require.NoError(t, c.Disconnect(context.Background()))
}

func TestListBuckets(t *testing.T) {
	c, _ := connectedStub(t)

	names, err := c.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"crm-exports"}, names)
}

func TestRemediatePartialFailure(t *testing.T) {
	c, stub := connectedStub(t)

	res, err := c.Remediate(context.Background(), []connectors.RemediationAction{
		{FindingID: "f1", Type: connectors.ActionDelete, Location: "s3://crm-exports/export.csv"},
		{FindingID: "f2", Type: connectors.ActionAnonymize, Location: "s3://crm-exports/export.csv"},
		{FindingID: "f3", Type: connectors.ActionDelete, Location: "not-a-location"},
		{FindingID: "f4", Type: connectors.ActionNotify, Location: "s3://crm-exports/export.csv"},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 4)

	assert.True(t, res.Outcomes[0].Succeeded)
	assert.False(t, res.Outcomes[1].Succeeded, "anonymize is unsupported for object storage")
	assert.False(t, res.Outcomes[2].Succeeded, "malformed location fails that action only")
	assert.True(t, res.Outcomes[3].Succeeded)
	assert.Len(t, res.Failed(), 2)

	assert.Equal(t, []string{"/crm-exports/export.csv"}, stub.deleted)
}

func TestBatchRemediateEmpty(t *testing.T) {
	c, _ := connectedStub(t)

	results, err := c.BatchRemediate(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestValidateConfiguration(t *testing.T) {
	c, err := New(connectors.Settings{})
	require.NoError(t, err)

	assert.NoError(t, c.ValidateConfiguration(c.DefaultConfiguration()))
	assert.ErrorIs(t, c.ValidateConfiguration(connectors.ScanConfiguration{MaxRecords: -1}), connectors.ErrConfiguration)
	assert.ErrorIs(t, c.ValidateConfiguration(connectors.ScanConfiguration{PIITypes: []string{"dna"}}), connectors.ErrConfiguration)
}
