package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/tokhirov0/Spin3/internal/flow"
	"github.com/tokhirov0/Spin3/internal/repository"
	"github.com/tokhirov0/Spin3/internal/service"
)

// historyLimit bounds the admin transaction history reply.
const historyLimit = 10

// ChannelAdmin is the administrative slice of the channel repository.
type ChannelAdmin interface {
	Add(ctx context.Context, handle string) (bool, error)
	Remove(ctx context.Context, handle string) (bool, error)
}

// AdminHandler handles the admin panel: statistics and the gating
// channel add/remove flows.
type AdminHandler struct {
	stats     *service.StatsService
	channels  ChannelAdmin
	flows     *flow.Tracker
	adminMenu *tele.ReplyMarkup
	mainMenu  *tele.ReplyMarkup
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(stats *service.StatsService, channels ChannelAdmin, flows *flow.Tracker, adminMenu, mainMenu *tele.ReplyMarkup) *AdminHandler {
	return &AdminHandler{
		stats:     stats,
		channels:  channels,
		flows:     flows,
		adminMenu: adminMenu,
		mainMenu:  mainMenu,
	}
}

// HandlePanel shows the admin panel keyboard.
func (h *AdminHandler) HandlePanel(c tele.Context) error {
	return c.Reply("Admin panel:", h.adminMenu)
}

// HandleBack returns to the main menu.
func (h *AdminHandler) HandleBack(c tele.Context) error {
	return c.Reply("Asosiy menyuga qaytildi", h.mainMenu)
}

// HandleStats replies with one line per user: referral count and balance.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	ctx := context.Background()

	stats, err := h.stats.ListStats(ctx)
	if err != nil {
		return c.Reply("❌ Statistikani olishda xatolik")
	}
	if len(stats) == 0 {
		return c.Reply("Foydalanuvchi yo‘q")
	}

	var sb strings.Builder
	for _, s := range stats {
		fmt.Fprintf(&sb, "ID %s: %d referal, %d so‘m\n", s.UserID, s.ReferralCount, s.Balance)
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleHistoryInit enters the transaction history prompt.
func (h *AdminHandler) HandleHistoryInit(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.flows.Begin(userKey(sender), flow.Step{Kind: flow.KindTxHistory})
	return c.Reply("Foydalanuvchi ID kiriting:", &tele.ReplyMarkup{ForceReply: true})
}

// HandleHistoryStep replies with the target user's recent journal
// entries, newest first.
func (h *AdminHandler) HandleHistoryStep(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.flows.Clear(userKey(sender))

	target := strings.TrimSpace(c.Text())
	txs, err := h.stats.History(ctx, target, historyLimit)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("Bunday foydalanuvchi yo‘q!")
		}
		return c.Reply("❌ Tarixni olishda xatolik")
	}
	if len(txs) == 0 {
		return c.Reply("Tranzaksiyalar yo‘q")
	}

	var sb strings.Builder
	for _, tx := range txs {
		fmt.Fprintf(&sb, "%s: %+d so‘m (%s)\n", tx.CreatedAt.Format("02.01.2006 15:04"), tx.Amount, tx.Type)
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleChannelAddInit enters the add-channel prompt.
func (h *AdminHandler) HandleChannelAddInit(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.flows.Begin(userKey(sender), flow.Step{Kind: flow.KindChannelAdd})
	return c.Reply("Kanal username kiriting (@ bilan):", &tele.ReplyMarkup{ForceReply: true})
}

// HandleChannelRemoveInit enters the remove-channel prompt.
func (h *AdminHandler) HandleChannelRemoveInit(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.flows.Begin(userKey(sender), flow.Step{Kind: flow.KindChannelRemove})
	return c.Reply("O‘chiriladigan kanal username (@ bilan):", &tele.ReplyMarkup{ForceReply: true})
}

// HandleChannelStep consumes the channel handle for a pending add or
// remove prompt. The handle must carry the @ sigil.
func (h *AdminHandler) HandleChannelStep(c tele.Context, step flow.Step) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.flows.Clear(userKey(sender))

	handle := strings.TrimSpace(c.Text())
	if !strings.HasPrefix(handle, "@") {
		return c.Reply("Kanal username @ bilan boshlanishi kerak!")
	}

	switch step.Kind {
	case flow.KindChannelAdd:
		added, err := h.channels.Add(ctx, handle)
		if err != nil {
			return c.Reply("❌ Kanalni qo‘shishda xatolik")
		}
		if !added {
			return c.Reply("Kanal allaqachon mavjud!")
		}
		log.Info().Str("channel", handle).Msg("Gating channel added")
		return c.Reply("Kanal qo‘shildi: " + handle)

	case flow.KindChannelRemove:
		removed, err := h.channels.Remove(ctx, handle)
		if err != nil {
			return c.Reply("❌ Kanalni o‘chirishda xatolik")
		}
		if !removed {
			return c.Reply("Bunday kanal yo‘q!")
		}
		log.Info().Str("channel", handle).Msg("Gating channel removed")
		return c.Reply("Kanal o‘chirildi: " + handle)

	default:
		return nil
	}
}
