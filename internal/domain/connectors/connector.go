package connectors

import "context"

// Connector is the base contract every external-system integration satisfies.
// The platform operates on this interface only; optional behaviour lives in
// the capability interfaces (see capability.go) and is discovered by type
// assertion, so a connector that never implemented a capability cannot be
// asked for it at runtime.
//
// Concurrency: one instance serializes its own lifecycle transitions, but
// Scan/Remediate may run while a realtime monitor delivers findings on a
// separate goroutine. Distinct instances are fully independent.
type Connector interface {
	// Name returns the registry name of this connector
	Name() string
	// Kind returns the external system family
	Kind() Kind

	// Connect establishes a session. Returns ErrAuthentication for bad
	// credentials and ErrConnectivity for an unreachable endpoint.
	Connect(ctx context.Context, creds Credentials) error

	// Scan executes one privacy scan pass. Safe to call repeatedly with the
	// same configuration; a scan never mutates the external system.
	Scan(ctx context.Context, cfg ScanConfiguration) (*ScanResult, error)

	// Remediate applies the given actions and reports each outcome
	// individually. A returned error means the batch could not be attempted
	// at all; per-action failures live in the result.
	Remediate(ctx context.Context, actions []RemediationAction) (*RemediationResult, error)

	// Health probes current status without side effects
	Health(ctx context.Context) ConnectorHealth

	// Disconnect releases the session. Idempotent: safe before a successful
	// Connect and safe to call more than once.
	Disconnect(ctx context.Context) error
}
