package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/complykit/privacy-comply/internal/domain/connectors"
)

// StartRealtimeMonitoring implements connectors.RealtimeScanner. The CRM API
// has no push channel, so the monitor polls for records modified since the
// previous pass and delivers findings to the callback from its own goroutine.
func (c *Connector) StartRealtimeMonitoring(ctx context.Context, cb connectors.FindingCallback) error {
	if cb == nil {
		return fmt.Errorf("%w: callback is required", connectors.ErrConfiguration)
	}
	if _, err := c.conn(); err != nil {
		return err
	}

	c.rtMu.Lock()
	defer c.rtMu.Unlock()
	if c.rtCancel != nil {
		return fmt.Errorf("%w: realtime monitoring already active", connectors.ErrLifecycle)
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.rtCancel = cancel
	c.rtDone = done

	go c.monitor(monitorCtx, cb, done)
	c.Record("realtime.start", "", nil)
	return nil
}

// StopRealtimeMonitoring cancels the poll loop and waits for it to exit, so
// the callback cannot fire after this returns. Idempotent.
func (c *Connector) StopRealtimeMonitoring() error {
	c.rtMu.Lock()
	cancel, done := c.rtCancel, c.rtDone
	c.rtCancel, c.rtDone = nil, nil
	c.rtMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	c.Record("realtime.stop", "", nil)
	return nil
}

// RealtimeActive implements connectors.RealtimeScanner
func (c *Connector) RealtimeActive() bool {
	c.rtMu.Lock()
	defer c.rtMu.Unlock()
	return c.rtCancel != nil
}

func (c *Connector) monitor(ctx context.Context, cb connectors.FindingCallback, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	lastPass := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		passStart := time.Now()
		res, err := c.Scan(ctx, connectors.ScanConfiguration{Since: lastPass, SampleContent: true})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.Record("realtime.poll", "", err)
			continue
		}
		lastPass = passStart

		for _, f := range res.Findings {
			// re-check between deliveries so Stop takes effect mid-batch
			if ctx.Err() != nil {
				return
			}
			cb(f)
		}
	}
}
