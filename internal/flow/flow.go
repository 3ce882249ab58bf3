// Package flow tracks per-user multi-turn conversation state: the
// withdrawal amount/card steps and the admin channel add/remove prompts.
// It replaces ad-hoc "next handler" registration with an explicit state
// machine keyed by user ID.
package flow

import (
	"sync"
	"time"
)

// Kind identifies which multi-turn flow a pending step belongs to.
type Kind int

// Pending step kinds.
const (
	KindNone Kind = iota
	KindWithdrawAmount
	KindWithdrawCard
	KindChannelAdd
	KindChannelRemove
	KindTxHistory
)

// Step is the pending state for one user: the expected next input plus
// any partial input already captured (the withdrawal amount).
type Step struct {
	Kind    Kind
	Amount  int64
	started time.Time
}

// Tracker holds pending steps for all users. Pending flows expire after
// the configured TTL so abandoned conversations cannot accumulate state
// forever; expiry is checked on access.
type Tracker struct {
	mu    sync.Mutex
	steps map[string]Step
	ttl   time.Duration
	now   func() time.Time
}

// NewTracker creates a Tracker. ttl <= 0 disables expiry.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		steps: make(map[string]Step),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Begin enters a flow step for a user, superseding any pending one.
func (t *Tracker) Begin(userID string, step Step) {
	t.mu.Lock()
	defer t.mu.Unlock()
	step.started = t.now()
	t.steps[userID] = step
}

// Pending returns the user's pending step, if any. Expired steps are
// evicted and reported as absent.
func (t *Tracker) Pending(userID string) (Step, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	step, ok := t.steps[userID]
	if !ok {
		return Step{}, false
	}
	if t.ttl > 0 && t.now().Sub(step.started) > t.ttl {
		delete(t.steps, userID)
		return Step{}, false
	}
	return step, true
}

// Clear removes the user's pending step. Safe to call when none exists.
// Clearing one user never touches another user's state.
func (t *Tracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.steps, userID)
}
