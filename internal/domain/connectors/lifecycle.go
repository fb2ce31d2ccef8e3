package connectors

import (
	"fmt"
	"sync"
)

// LifecycleState enum
type LifecycleState string

const (
	StateInitialized LifecycleState = "initialized"
	StateStarted     LifecycleState = "started"
	StateStopped     LifecycleState = "stopped"
)

// LifecycleController is the explicit-state capability. Transitions:
// Initialize → Start → Stop, Restart = Stop+Start. Anything else is
// rejected with ErrLifecycle.
type LifecycleController interface {
	Initialize() error
	Start() error
	Stop() error
	Restart() error
	Status() LifecycleState
}

// Lifecycle is an embeddable state machine implementing LifecycleController.
// The zero value is usable; its state before Initialize is empty.
type Lifecycle struct {
	mu    sync.Mutex
	state LifecycleState
}

func (l *Lifecycle) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != "" {
		return fmt.Errorf("%w: initialize from %q", ErrLifecycle, l.state)
	}
	l.state = StateInitialized
	return nil
}

func (l *Lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateInitialized && l.state != StateStopped {
		return fmt.Errorf("%w: start from %q", ErrLifecycle, l.state)
	}
	l.state = StateStarted
	return nil
}

func (l *Lifecycle) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateStarted {
		return fmt.Errorf("%w: stop from %q", ErrLifecycle, l.state)
	}
	l.state = StateStopped
	return nil
}

func (l *Lifecycle) Restart() error {
	if err := l.Stop(); err != nil {
		return err
	}
	return l.Start()
}

func (l *Lifecycle) Status() LifecycleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
