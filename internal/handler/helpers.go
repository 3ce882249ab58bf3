// Package handler provides Telegram bot command handlers.
package handler

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// userKey returns the opaque string ID the ledger keys records by.
func userKey(sender *tele.User) string {
	return strconv.FormatInt(sender.ID, 10)
}

// displayName returns the best available name for a user.
func displayName(sender *tele.User) string {
	if sender.Username != "" {
		return sender.Username
	}
	return sender.FirstName
}

// joinPrompt renders the gate challenge: the channels the user still has
// to join before the bot serves them.
func joinPrompt(unmet []string) string {
	return "Botdan foydalanish uchun quyidagi kanallarga a’zo bo‘ling:\n" + strings.Join(unmet, "\n")
}
