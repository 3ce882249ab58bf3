package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"github.com/tokhirov0/Spin3/internal/gate"
)

// Notifier sends best-effort messages through the Telegram API. It
// implements service.Notifier.
type Notifier struct {
	bot      *tele.Bot
	adminIDs []string
}

// NewNotifier creates a Notifier delivering admin messages to the given IDs.
func NewNotifier(bot *tele.Bot, adminIDs []string) *Notifier {
	return &Notifier{bot: bot, adminIDs: adminIDs}
}

// Notify sends a message to one user.
func (n *Notifier) Notify(userID, text string) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	if _, err := n.bot.Send(tele.ChatID(id), text); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", userID, err)
	}
	return nil
}

// NotifyAdmins sends a message to every configured admin.
func (n *Notifier) NotifyAdmins(text string) error {
	var errs []error
	for _, id := range n.adminIDs {
		if err := n.Notify(id, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MembershipChecker answers channel membership through the Telegram API.
// It implements gate.MembershipChecker.
type MembershipChecker struct {
	bot *tele.Bot
}

// NewMembershipChecker creates a MembershipChecker backed by the bot API.
func NewMembershipChecker(bot *tele.Bot) *MembershipChecker {
	return &MembershipChecker{bot: bot}
}

// Status looks up the user's membership in a channel. The Telegram
// client does not honor the context; the gate bounds the call with its
// own timeout.
func (m *MembershipChecker) Status(_ context.Context, channel, userID string) (gate.MembershipStatus, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return gate.StatusOther, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	chat, err := m.bot.ChatByUsername(channel)
	if err != nil {
		return gate.StatusOther, fmt.Errorf("failed to resolve channel %s: %w", channel, err)
	}

	member, err := m.bot.ChatMemberOf(chat, &tele.User{ID: id})
	if err != nil {
		return gate.StatusOther, fmt.Errorf("failed to check membership in %s: %w", channel, err)
	}

	switch member.Role {
	case tele.Creator:
		return gate.StatusOwner, nil
	case tele.Administrator:
		return gate.StatusAdmin, nil
	case tele.Member:
		return gate.StatusMember, nil
	default:
		return gate.StatusOther, nil
	}
}
