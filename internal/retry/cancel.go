package retry

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// TwoStageCanceller implements the run's two-stage cancellation contract
// (spec.md §4.8): the first interrupt requests a confirmation prompt from
// the caller; a second interrupt before the prompt is answered cancels
// immediately.
type TwoStageCanceller struct {
	mu        sync.Mutex
	armed     bool
	confirmFn func() bool

	sigCh chan os.Signal
	ctx   context.Context
	stop  context.CancelFunc
}

// NewTwoStageCanceller wires SIGINT handling for ctx. confirmFn is called
// on the first interrupt and must return true to proceed with cancellation;
// it runs on its own goroutine, so the signal loop keeps listening while it
// waits for user input. A second SIGINT received while confirmFn is running
// cancels unconditionally.
func NewTwoStageCanceller(parent context.Context, confirmFn func() bool) *TwoStageCanceller {
	ctx, stop := context.WithCancel(parent)
	c := &TwoStageCanceller{
		confirmFn: confirmFn,
		sigCh:     make(chan os.Signal, 2),
		ctx:       ctx,
		stop:      stop,
	}
	signal.Notify(c.sigCh, os.Interrupt)
	go c.run()
	return c
}

func (c *TwoStageCanceller) run() {
	for range c.sigCh {
		c.mu.Lock()
		if c.armed {
			c.mu.Unlock()
			c.stop()
			return
		}
		c.armed = true
		c.mu.Unlock()

		go func() {
			if c.confirmFn == nil || c.confirmFn() {
				c.stop()
			} else {
				c.mu.Lock()
				c.armed = false
				c.mu.Unlock()
			}
		}()
	}
}

// Context returns the context that is cancelled once the user confirms, or
// immediately on a second interrupt.
func (c *TwoStageCanceller) Context() context.Context {
	return c.ctx
}

// Close stops listening for signals. Safe to call once cancellation has
// already happened.
func (c *TwoStageCanceller) Close() {
	signal.Stop(c.sigCh)
	close(c.sigCh)
}
