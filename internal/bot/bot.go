package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/tokhirov0/Spin3/internal/config"
	"github.com/tokhirov0/Spin3/internal/flow"
	"github.com/tokhirov0/Spin3/internal/gate"
	"github.com/tokhirov0/Spin3/internal/handler"
	"github.com/tokhirov0/Spin3/internal/pkg/lock"
	"github.com/tokhirov0/Spin3/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot   *tele.Bot
	cfg   *config.Config
	flows *flow.Tracker

	ledgerHandler *handler.LedgerHandler
	startHandler  *handler.StartHandler
	adminHandler  *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config    *config.Config
	Ledger    *service.LedgerService
	Referrals *service.ReferralService
	Stats     *service.StatsService
	Gate      *gate.Gate
	Flows     *flow.Tracker
	Channels  handler.ChannelAdmin
	UserLock  *lock.UserLock
}

// NewAPI creates the raw telebot client. It is separate from New so the
// notifier and membership checker adapters can be built before the
// services that depend on them.
func NewAPI(token string) (*tele.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New wires the handlers onto an existing telebot instance.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	mainMenu := MainMenu()
	adminMenu := AdminMenu()

	b := &Bot{
		bot:   teleBot,
		cfg:   deps.Config,
		flows: deps.Flows,

		ledgerHandler: handler.NewLedgerHandler(deps.Ledger, deps.Gate, deps.Flows, deps.UserLock),
		startHandler:  handler.NewStartHandler(deps.Ledger, deps.Referrals, deps.Gate, deps.UserLock, mainMenu),
		adminHandler:  handler.NewAdminHandler(deps.Stats, deps.Channels, deps.Flows, adminMenu, mainMenu),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers command and text handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.clearFlow(b.startHandler.HandleStart))

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin", b.clearFlow(b.adminHandler.HandlePanel))

	// Reply-keyboard presses and flow inputs arrive as plain text.
	b.bot.Handle(tele.OnText, b.handleText)
}

// clearFlow cancels any pending flow before dispatching a command, so a
// stale withdrawal prompt can never swallow the message after /start or
// /admin. Buttons get the same treatment in handleText.
func (b *Bot) clearFlow(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if sender := c.Sender(); sender != nil {
			b.flows.Clear(strconv.FormatInt(sender.ID, 10))
		}
		return next(c)
	}
}

// handleText routes plain text: menu buttons first, then pending flow
// steps. A recognized button cancels any pending flow before it is
// dispatched, so a stale withdrawal prompt can never swallow an
// unrelated command. Unrecognized text outside a flow is ignored.
func (b *Bot) handleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	userID := strconv.FormatInt(sender.ID, 10)
	text := strings.TrimSpace(c.Text())
	isAdmin := b.cfg.IsAdmin(userID)

	if fn := b.menuAction(text, isAdmin); fn != nil {
		b.flows.Clear(userID)
		return fn(c)
	}

	if step, ok := b.flows.Pending(userID); ok {
		switch step.Kind {
		case flow.KindWithdrawAmount, flow.KindWithdrawCard:
			return b.ledgerHandler.HandleWithdrawStep(c, step)
		case flow.KindChannelAdd, flow.KindChannelRemove:
			if !isAdmin {
				b.flows.Clear(userID)
				return nil
			}
			return b.adminHandler.HandleChannelStep(c, step)
		case flow.KindTxHistory:
			if !isAdmin {
				b.flows.Clear(userID)
				return nil
			}
			return b.adminHandler.HandleHistoryStep(c)
		}
	}

	return nil
}

// menuAction maps a button label to its handler, or nil for free text.
func (b *Bot) menuAction(text string, isAdmin bool) tele.HandlerFunc {
	switch text {
	case BtnSpin:
		return b.ledgerHandler.HandleSpin
	case BtnWithdraw:
		return b.ledgerHandler.HandleWithdrawInit
	case BtnBonus:
		return b.ledgerHandler.HandleBonus
	case BtnReferral:
		return b.startHandler.HandleReferral
	}
	if isAdmin {
		switch text {
		case BtnStats:
			return b.adminHandler.HandleStats
		case BtnTxHistory:
			return b.adminHandler.HandleHistoryInit
		case BtnChannelAdd:
			return b.adminHandler.HandleChannelAddInit
		case BtnChannelRemove:
			return b.adminHandler.HandleChannelRemoveInit
		case BtnBack:
			return b.adminHandler.HandleBack
		}
	}
	return nil
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
