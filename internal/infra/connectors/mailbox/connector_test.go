package mailbox

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

func newMailServer(t *testing.T, msgs []message) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/messages":
			_ = json.NewEncoder(w).Encode(msgs)
		case "/attachments":
			_ = json.NewEncoder(w).Encode([]attachment{})
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

func TestScanMessagesFindsPII(t *testing.T) {
	srv := newMailServer(t, []message{
		{ID: "m1", From: "jane@example.com", Subject: "invoice", Body: "ssn 536-90-4399"},
		{ID: "m2", Subject: "lunch?"},
	})
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{})
	defer c.Disconnect(context.Background())

	res, err := c.ScanMessages(context.Background(), connectors.MessageFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordsScanned)

	var types []string
	for _, f := range res.Findings {
		assert.Equal(t, "mailbox/message/m1", f.Location)
		types = append(types, f.Type)
	}
	assert.Contains(t, types, "email")
	assert.Contains(t, types, "ssn")
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
	srv := newMailServer(t, []message{})
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{})
	defer c.Disconnect(context.Background())

	results, err := c.BatchScan(context.Background(), connectors.ScanConfiguration{}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStopRealtimeMonitoringHaltsCallbacks(t *testing.T) {
	srv := newMailServer(t, []message{{ID: "m1", From: "jane@example.com"}})
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{"poll_interval": "10ms"})
	defer c.Disconnect(context.Background())

	var calls atomic.Int64
	require.NoError(t, c.StartRealtimeMonitoring(context.Background(), func(connectors.PIIFinding) {
		calls.Add(1)
	}))
	assert.True(t, c.RealtimeActive())

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.StopRealtimeMonitoring())
	assert.False(t, c.RealtimeActive())

	observed := calls.Load()
	time.Sleep(50 * time.Millisecond) // several poll intervals
	assert.Equal(t, observed, calls.Load(), "no callback may fire after stop returns")
}

func TestDisconnectStopsRealtime(t *testing.T) {
	srv := newMailServer(t, nil)
	defer srv.Close()

	c := connected(t, srv, connectors.Settings{"poll_interval": "1h"})
	require.NoError(t, c.StartRealtimeMonitoring(context.Background(), func(connectors.PIIFinding) {}))
	require.NoError(t, c.Disconnect(context.Background()))
	assert.False(t, c.RealtimeActive())
}
