// Package gate decides whether a user may use the bot, based on
// membership in the required Telegram channels.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// MembershipStatus is the closed set of membership states the oracle can
// report. Anything that is not member, admin or owner counts as Other.
type MembershipStatus int

// Membership statuses.
const (
	StatusOther MembershipStatus = iota
	StatusMember
	StatusAdmin
	StatusOwner
)

// String returns a readable name for logging.
func (s MembershipStatus) String() string {
	switch s {
	case StatusMember:
		return "member"
	case StatusAdmin:
		return "admin"
	case StatusOwner:
		return "owner"
	default:
		return "other"
	}
}

// Satisfies reports whether the status passes the gate.
func (s MembershipStatus) Satisfies() bool {
	return s == StatusMember || s == StatusAdmin || s == StatusOwner
}

// MembershipChecker is the external oracle answering whether a user
// belongs to a channel.
type MembershipChecker interface {
	Status(ctx context.Context, channel, userID string) (MembershipStatus, error)
}

// ChannelLister provides the current set of required channels.
// *repository.ChannelRepository satisfies it.
type ChannelLister interface {
	List(ctx context.Context) ([]string, error)
}

// Decision is the outcome of a gate check. Unmet lists the channels the
// user has not joined (or whose check failed), in display order.
type Decision struct {
	Allowed bool
	Unmet   []string
}

// Gate composes the membership oracle with the stored channel set. It is
// stateless and caches nothing: membership can change between calls, so
// every gated operation re-evaluates it.
type Gate struct {
	channels ChannelLister
	checker  MembershipChecker
	timeout  time.Duration
}

// New creates a Gate. timeout bounds each oracle call; on expiry the
// check fails closed.
func New(channels ChannelLister, checker MembershipChecker, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gate{channels: channels, checker: checker, timeout: timeout}
}

// Check evaluates the gate for a user. The user passes when the channel
// set is empty or every channel reports a satisfying status. An oracle
// error or timeout marks the channel unmet (fail-closed) rather than
// failing the check; a storage error reading the channel set is
// propagated so callers abort instead of silently allowing.
func (g *Gate) Check(ctx context.Context, userID string) (*Decision, error) {
	handles, err := g.channels.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list required channels: %w", err)
	}

	decision := &Decision{Allowed: true}
	for _, handle := range handles {
		status, err := g.status(ctx, handle, userID)
		if err != nil {
			log.Warn().
				Err(err).
				Str("channel", handle).
				Str("user_id", userID).
				Msg("Membership check failed, treating as not a member")
			decision.Allowed = false
			decision.Unmet = append(decision.Unmet, handle)
			continue
		}
		if !status.Satisfies() {
			decision.Allowed = false
			decision.Unmet = append(decision.Unmet, handle)
		}
	}
	return decision, nil
}

// status runs one oracle call under the configured timeout. The oracle
// may not honor context cancellation, so the call is isolated in a
// goroutine and abandoned on expiry.
func (g *Gate) status(ctx context.Context, channel, userID string) (MembershipStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		status MembershipStatus
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		status, err := g.checker.Status(ctx, channel, userID)
		ch <- result{status, err}
	}()

	select {
	case r := <-ch:
		return r.status, r.err
	case <-ctx.Done():
		return StatusOther, ctx.Err()
	}
}
