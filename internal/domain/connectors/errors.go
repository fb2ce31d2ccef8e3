package connectors

import "errors"

// ErrAuthentication indicates the external system rejected the credentials.
var ErrAuthentication = errors.New("connector: authentication failed")

// ErrConnectivity indicates the external system endpoint is unreachable.
var ErrConnectivity = errors.New("connector: endpoint unreachable")

// ErrConfiguration indicates a scan configuration this connector cannot execute.
var ErrConfiguration = errors.New("connector: invalid configuration")

// ErrNotConnected indicates an operation that needs a session was called
// before a successful Connect.
var ErrNotConnected = errors.New("connector: not connected")

// ErrLifecycle indicates an illegal lifecycle transition (e.g. Start before
// Initialize, or starting an already-active realtime monitor).
var ErrLifecycle = errors.New("connector: illegal lifecycle transition")
