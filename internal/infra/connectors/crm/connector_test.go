package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
)

func newCRMServer(t *testing.T, contacts []contact) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/contacts":
			_ = json.NewEncoder(w).Encode(contacts)
		case "/leads":
			_ = json.NewEncoder(w).Encode([]contact{})
		default:
			http.NotFound(w, r)
		}
	}))
}

func connected(t *testing.T, srv *httptest.Server, settings connectors.Settings) *Connector {
	t.Helper()
	c, err := New(settings)
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background(), connectors.Credentials{
		Endpoint: srv.URL,
		Token:    "good-token",
	}))
	return c
}

func TestConnectBadToken(t *testing.T) {
	srv := newCRMServer(t, nil)
	defer srv.Close()

	c, err := New(connectors.Settings{})
	require.NoError(t, err)
	err = c.Connect(context.Background(), connectors.Credentials{Endpoint: srv.URL, Token: "wrong"})
	assert.ErrorIs(t, err, connectors.ErrAuthentication)
}

func TestScanContactsFindsPII(t *testing.T) {
	srv := newCRMServer(t, []contact{
		{ID: "c1", Name: "Jane Doe", Email: "jane@example.com", Notes: "card 4111 1111 1111 1111"},
		{ID: "c2", Name: "No PII here"},
	})
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{})
	defer c.Disconnect(context.Background())

	res, err := c.ScanContacts(context.Background(), connectors.ContactFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordsScanned)

	var types []string
	for _, f := range res.Findings {
		assert.Equal(t, "crm/contact/c1", f.Location)
		types = append(types, f.Type)
	}
	assert.Contains(t, types, "email")
	assert.Contains(t, types, "credit_card")
}

func TestScanBeforeConnect(t *testing.T) {
	c, err := New(connectors.Settings{})
	require.NoError(t, err)
	_, err = c.Scan(context.Background(), connectors.ScanConfiguration{})
	assert.ErrorIs(t, err, connectors.ErrNotConnected)
}

func TestDisconnectIdempotent(t *testing.T) {
	c, err := New(connectors.Settings{})
	require.NoError(t, err)
	require.NoError(t, c.Disconnect(context.Background()))
	require.NoError(t, c.Disconnect(context.Background()))
}

func TestBatchScanEmpty(t *testing.T) {
	srv := newCRMServer(t, []contact{})
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{})
	defer c.Disconnect(context.Background())

	results, err := c.BatchScan(context.Background(), connectors.ScanConfiguration{}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBatchRemediateEmpty(t *testing.T) {
	srv := newCRMServer(t, nil)
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{})
	defer c.Disconnect(context.Background())

	results, err := c.BatchRemediate(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBatchScanSplitsIntoBatches(t *testing.T) {
	srv := newCRMServer(t, []contact{
		{ID: "c1", Email: "a@example.com"},
		{ID: "c2", Email: "b@example.com"},
		{ID: "c3", Email: "c@example.com"},
	})
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{})
	defer c.Disconnect(context.Background())

	results, err := c.BatchScan(context.Background(), connectors.ScanConfiguration{Scopes: []string{"contacts"}}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].RecordsScanned)
	assert.Equal(t, 1, results[1].RecordsScanned)
}

func TestStopRealtimeMonitoringHaltsCallbacks(t *testing.T) {
	srv := newCRMServer(t, []contact{{ID: "c1", Email: "jane@example.com"}})
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{"poll_interval": "10ms"})
	defer c.Disconnect(context.Background())

	var calls atomic.Int64
	require.NoError(t, c.StartRealtimeMonitoring(context.Background(), func(connectors.PIIFinding) {
		calls.Add(1)
	}))
	assert.True(t, c.RealtimeActive())

	// let a few polls deliver
	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.StopRealtimeMonitoring())
	assert.False(t, c.RealtimeActive())

	observed := calls.Load()
	time.Sleep(50 * time.Millisecond) // several poll intervals
	assert.Equal(t, observed, calls.Load(), "no callback may fire after stop returns")
}

func TestStartRealtimeTwice(t *testing.T) {
	srv := newCRMServer(t, nil)
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{"poll_interval": "1h"})
	defer c.Disconnect(context.Background())

	cb := func(connectors.PIIFinding) {}
	require.NoError(t, c.StartRealtimeMonitoring(context.Background(), cb))
	err := c.StartRealtimeMonitoring(context.Background(), cb)
	assert.ErrorIs(t, err, connectors.ErrLifecycle)
	require.NoError(t, c.StopRealtimeMonitoring())
	// stop again is a no-op
	require.NoError(t, c.StopRealtimeMonitoring())
}

func TestValidateConfiguration(t *testing.T) {
	c, err := New(connectors.Settings{})
	require.NoError(t, err)

	assert.NoError(t, c.ValidateConfiguration(c.DefaultConfiguration()))
	assert.ErrorIs(t, c.ValidateConfiguration(connectors.ScanConfiguration{Scopes: []string{"invoices"}}), connectors.ErrConfiguration)
	assert.ErrorIs(t, c.ValidateConfiguration(connectors.ScanConfiguration{PIITypes: []string{"dna"}}), connectors.ErrConfiguration)
}
