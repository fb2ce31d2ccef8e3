package cms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
)

func newCMSServer(t *testing.T, pages []page, comments []comment) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pages":
			_ = json.NewEncoder(w).Encode(pages)
		case "/comments":
			_ = json.NewEncoder(w).Encode(comments)
		default:
			http.NotFound(w, r)
		}
	}))
}

func connected(t *testing.T, srv *httptest.Server) *Connector {
	t.Helper()
	c, err := New(connectors.Settings{})
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background(), connectors.Credentials{Endpoint: srv.URL}))
	return c
}

func TestDetectTrackers(t *testing.T) {
	srv := newCMSServer(t, []page{
		{Path: "/home", Body: `<html><script src="https://www.googletagmanager.com/gtm.js?id=GTM-X"></script><script src="https://static.hotjar.com/c.js"></script></html>`},
		{Path: "/about", Body: `<html><script src="/local/app.js"></script></html>`},
	}, nil)
	defer srv.Close()

	c := connected(t, srv)
	defer c.Disconnect(context.Background())

	res, err := c.DetectTrackers(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordsScanned)

	products := map[string]string{}
	for _, f := range res.Findings {
		require.Equal(t, "tracker", f.Type)
		products[f.MaskedSample] = f.Location
	}
	assert.Equal(t, "cms/page/home", products["google_tag_manager"])
	assert.Equal(t, "cms/page/home", products["hotjar"])
	assert.Len(t, products, 2)
}

func TestScanCommentsFindsPII(t *testing.T) {
	srv := newCMSServer(t, nil, []comment{
		{ID: "42", Author: "jane", Email: "jane@example.com", Body: "call me", CreatedAt: time.Now()},
	})
	defer srv.Close()

	c := connected(t, srv)
	defer c.Disconnect(context.Background())

	res, err := c.ScanComments(context.Background(), time.Time{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Findings)
	assert.Equal(t, "cms/comment/42", res.Findings[0].Location)
	assert.Equal(t, "email", res.Findings[0].Type)
}

func TestRemediateDeleteOnlyComments(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/pages":
			_ = json.NewEncoder(w).Encode([]page{})
		case r.Method == http.MethodDelete && r.URL.Path == "/comments/42":
			deleted = true
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := connected(t, srv)
	defer c.Disconnect(context.Background())

	res, err := c.Remediate(context.Background(), []connectors.RemediationAction{
		{FindingID: "f1", Type: connectors.ActionDelete, Location: "cms/comment/42"},
		{FindingID: "f2", Type: connectors.ActionDelete, Location: "cms/page/home"},
	})
	require.NoError(t, err)
	assert.True(t, deleted)
	require.Len(t, res.Outcomes, 2)
	assert.True(t, res.Outcomes[0].Succeeded)
	assert.False(t, res.Outcomes[1].Succeeded)
	assert.False(t, res.AllSucceeded())
}

func TestValidateConfigurationScopes(t *testing.T) {
	c, err := New(connectors.Settings{})
	require.NoError(t, err)
	assert.NoError(t, c.ValidateConfiguration(connectors.ScanConfiguration{Scopes: []string{"/home"}}))
	assert.ErrorIs(t, c.ValidateConfiguration(connectors.ScanConfiguration{Scopes: []string{"home"}}), connectors.ErrConfiguration)
}
