package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConnector implements only the base contract, on purpose: capability
// checks against it must fail at the type-assertion level.
type stubConnector struct {
	name        string
	kind        Kind
	connected   bool
	disconnects int
}

func (s *stubConnector) Name() string { return s.name }
func (s *stubConnector) Kind() Kind   { return s.kind }

func (s *stubConnector) Connect(ctx context.Context, creds Credentials) error {
	if creds.AccessKey == "bad" {
		return ErrAuthentication
	}
	s.connected = true
	return nil
}

func (s *stubConnector) Scan(ctx context.Context, cfg ScanConfiguration) (*ScanResult, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	return &ScanResult{ConnectorName: s.name, StartedAt: time.Now(), CompletedAt: time.Now()}, nil
}

func (s *stubConnector) Remediate(ctx context.Context, actions []RemediationAction) (*RemediationResult, error) {
	res := &RemediationResult{ConnectorName: s.name, AppliedAt: time.Now()}
	for _, a := range actions {
		res.Outcomes = append(res.Outcomes, ActionOutcome{FindingID: a.FindingID, Type: a.Type, Succeeded: a.Type != ActionNotify})
	}
	return res, nil
}

func (s *stubConnector) Health(ctx context.Context) ConnectorHealth {
	return ConnectorHealth{Status: "healthy", Connected: s.connected, CheckedAt: time.Now()}
}

func (s *stubConnector) Disconnect(ctx context.Context) error {
	s.disconnects++
	s.connected = false
	return nil
}

func TestDisconnectBeforeConnect(t *testing.T) {
	c := &stubConnector{name: "stub"}
	ctx := context.Background()

	require.NoError(t, c.Disconnect(ctx))
	require.NoError(t, c.Disconnect(ctx))
	assert.Equal(t, 2, c.disconnects)
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	c := &stubConnector{name: "stub"}
	err := c.Connect(context.Background(), Credentials{AccessKey: "bad"})
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestBaseConnectorHasNoCapabilities(t *testing.T) {
	var c Connector = &stubConnector{name: "stub"}

	_, ok := c.(RealtimeScanner)
	assert.False(t, ok, "base-only connector must not satisfy RealtimeScanner")
	_, ok = c.(BatchScanner)
	assert.False(t, ok, "base-only connector must not satisfy BatchScanner")
	_, ok = c.(CloudStorageScanner)
	assert.False(t, ok)
	_, ok = c.(CRMScanner)
	assert.False(t, ok)
}

func TestRemediationPartialFailure(t *testing.T) {
	c := &stubConnector{name: "stub"}
	res, err := c.Remediate(context.Background(), []RemediationAction{
		{FindingID: "f1", Type: ActionDelete},
		{FindingID: "f2", Type: ActionNotify}, // stub fails notify actions
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	assert.False(t, res.AllSucceeded())
	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "f2", failed[0].FindingID)
}

func TestLifecycleTransitions(t *testing.T) {
	var l Lifecycle

	assert.ErrorIs(t, l.Start(), ErrLifecycle)
	require.NoError(t, l.Initialize())
	assert.Equal(t, StateInitialized, l.Status())

	assert.ErrorIs(t, l.Initialize(), ErrLifecycle)
	require.NoError(t, l.Start())
	assert.Equal(t, StateStarted, l.Status())

	require.NoError(t, l.Restart())
	assert.Equal(t, StateStarted, l.Status())

	require.NoError(t, l.Stop())
	assert.Equal(t, StateStopped, l.Status())
	assert.ErrorIs(t, l.Stop(), ErrLifecycle)

	// stopped → started is allowed
	require.NoError(t, l.Start())
}
