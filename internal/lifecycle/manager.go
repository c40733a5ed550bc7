// Package lifecycle implements the Model Lifecycle Manager (spec.md §4.5):
// load/unload orchestration and the two-phase on-demand pull retry policy,
// grounded on the teacher's budget.RateLimitWaiter wait-with-ticker shape
// and internal/retry's policy primitives.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/qcbench/qcbench/internal/inference"
	"github.com/qcbench/qcbench/internal/qcerr"
	"github.com/qcbench/qcbench/internal/retry"
)

// ProgressLogger receives pull progress updates for rendering (e.g. the
// byte-progress bar of SPEC_FULL.md §6).
type ProgressLogger interface {
	LogPullProgress(status string, completed, total int64)
}

// Manager drives load/unload/pull lifecycle operations against one
// inference server.
type Manager struct {
	client *inference.Client

	UnloadPollInterval time.Duration
	UnloadMaxWait      time.Duration
	SettleDelay        time.Duration

	PullQuickAttempts int
	PullQuickDelay    time.Duration
	PullSlowAttempts  int
	PullSlowDelay     time.Duration
	PullSlowDelayCap  time.Duration
}

// New returns a Manager with spec.md §4.5 defaults; callers may override
// the exported tuning fields (typically from config.Config).
func New(client *inference.Client) *Manager {
	return &Manager{
		client:             client,
		UnloadPollInterval: 500 * time.Millisecond,
		UnloadMaxWait:      30 * time.Second,
		SettleDelay:        1 * time.Second,
		PullQuickAttempts:  50,
		PullQuickDelay:     2 * time.Second,
		PullSlowAttempts:   50,
		PullSlowDelay:      30 * time.Second,
		PullSlowDelayCap:   300 * time.Second,
	}
}

// Prepare ensures target is the sole loaded model. If it already is, only
// a keep-alive reset is performed; otherwise every loaded model is
// unloaded (the target too, when it is loaded alongside others), the
// server's process status is polled until none remains, and a minimal
// chat-based load is issued so log-prob extraction works correctly on the
// first real generate call (spec.md §4.5).
func (m *Manager) Prepare(ctx context.Context, target string, opts inference.GenerateOptions) error {
	loaded, err := m.client.PsLoaded(ctx)
	if err != nil {
		return err
	}

	if len(loaded) == 1 && sameModel(loaded[0], target) {
		return m.client.PreloadKeepAlive(ctx, target, 5*time.Minute)
	}

	if err := m.UnloadAll(ctx, loaded); err != nil {
		return err
	}
	if err := m.WaitForUnload(ctx); err != nil {
		return err
	}

	return m.client.Chat(ctx, target, []inference.ChatMessage{
		{Role: "user", Content: "hello"},
	}, opts)
}

func sameModel(a, b string) bool {
	return strings.EqualFold(a, b)
}

// UnloadAll issues a zero-keep-alive generate for every model in loaded,
// which forces an immediate unload in Ollama-compatible servers.
func (m *Manager) UnloadAll(ctx context.Context, loaded []string) error {
	for _, name := range loaded {
		if err := m.client.PreloadKeepAlive(ctx, name, 0); err != nil {
			return err
		}
	}
	return nil
}

// WaitForUnload polls psLoaded until no models remain loaded, up to
// UnloadMaxWait, then waits SettleDelay before returning.
func (m *Manager) WaitForUnload(ctx context.Context) error {
	deadline := time.Now().Add(m.UnloadMaxWait)
	ticker := time.NewTicker(m.UnloadPollInterval)
	defer ticker.Stop()

	for {
		loaded, err := m.client.PsLoaded(ctx)
		if err != nil {
			return err
		}
		if len(loaded) == 0 {
			return sleep(ctx, m.SettleDelay)
		}
		if time.Now().After(deadline) {
			return sleep(ctx, m.SettleDelay)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return qcerr.Wrap(qcerr.KindCancelled, "waitForUnload", "", 0, ctx.Err())
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return qcerr.Wrap(qcerr.KindCancelled, "sleep", "", 0, ctx.Err())
	}
}

// Delete removes model; not-found is success (spec.md §4.5).
func (m *Manager) Delete(ctx context.Context, model string) error {
	return m.client.Delete(ctx, model)
}

// ResolveActualName re-queries the tag list after a pull and returns the
// canonical stored name for tag, since the server may normalize casing
// (spec.md §4.5).
func (m *Manager) ResolveActualName(ctx context.Context, tag string) (string, error) {
	models, err := m.client.List(ctx)
	if err != nil {
		return "", err
	}
	for _, model := range models {
		if strings.EqualFold(model.Name, tag) {
			return model.Name, nil
		}
	}
	return tag, nil
}

// RateLimitHintSource supplies a registry-provided reset delay for the
// slow retry phase when pulling from a token-authenticated third-party
// registry (spec.md §4.5 "consult the registry's rate-limit header").
type RateLimitHintSource interface {
	ResetDelay(ctx context.Context, source string) (time.Duration, bool)
}

// PullOnDemand streams a pull for model, applying the two-phase retry
// policy of spec.md §4.5: a quick phase hoping for IP-based rate-limit
// rotation, then a slow phase with growing delays capped at
// PullSlowDelayCap. Any not-found error short-circuits retries. Progress
// observed within an attempt (onProgress called at least once) resets the
// attempt counter, since forward progress signals the failure was
// transient rather than structural.
func (m *Manager) PullOnDemand(ctx context.Context, model string, hints RateLimitHintSource, onProgress ProgressLogger) error {
	policy := retry.PullPolicy(m.PullQuickAttempts, m.PullQuickDelay, m.PullSlowAttempts, m.PullSlowDelay, m.PullSlowDelayCap)

	attempt := 0
	for {
		attempt++
		progressed := false

		err := m.client.Pull(ctx, model, func(p inference.PullProgress) {
			progressed = true
			if onProgress != nil {
				onProgress.LogPullProgress(p.Status, p.Completed, p.Total)
			}
		})
		if err == nil {
			return nil
		}
		if qcerr.KindOf(err) == qcerr.KindNotFound {
			return err
		}
		if !qcerr.IsRetryable(err) {
			return err
		}
		if progressed {
			attempt = 1
		}
		if attempt >= policy.MaxAttempts {
			return err
		}

		delay := policy.Delay(attempt)
		if hints != nil {
			if hinted, ok := hints.ResetDelay(ctx, model); ok {
				delay = hinted
				if delay > m.PullSlowDelayCap {
					delay = m.PullSlowDelayCap
				}
			}
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}
