package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"github.com/tokhirov0/Spin3/internal/flow"
	"github.com/tokhirov0/Spin3/internal/gate"
	"github.com/tokhirov0/Spin3/internal/pkg/lock"
	"github.com/tokhirov0/Spin3/internal/service"
)

// LedgerHandler handles the reward actions: spin, daily bonus and the
// two-step withdrawal flow. The gate is checked before the per-user lock
// is taken, so a slow membership lookup never blocks other operations
// for the same user.
type LedgerHandler struct {
	ledger     *service.LedgerService
	gatekeeper *gate.Gate
	flows      *flow.Tracker
	userLock   *lock.UserLock
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger *service.LedgerService, gatekeeper *gate.Gate, flows *flow.Tracker, userLock *lock.UserLock) *LedgerHandler {
	return &LedgerHandler{
		ledger:     ledger,
		gatekeeper: gatekeeper,
		flows:      flows,
		userLock:   userLock,
	}
}

// checkGate evaluates the membership gate and replies with the join
// challenge when the user is not allowed. Returns true when the caller
// may proceed.
func (h *LedgerHandler) checkGate(ctx context.Context, c tele.Context, userID string) (bool, error) {
	decision, err := h.gatekeeper.Check(ctx, userID)
	if err != nil {
		return false, c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}
	if !decision.Allowed {
		return false, c.Reply(joinPrompt(decision.Unmet))
	}
	return true, nil
}

// HandleSpin handles the spin button: consumes one spin and credits a
// random win.
func (h *LedgerHandler) HandleSpin(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	userID := userKey(sender)

	ok, err := h.checkGate(ctx, c, userID)
	if !ok {
		return err
	}

	h.userLock.Lock(userID)
	defer h.userLock.Unlock(userID)

	if _, _, err := h.ledger.EnsureUser(ctx, userID, displayName(sender)); err != nil {
		return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}

	res, err := h.ledger.Spin(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientSpins) {
			return c.Reply("Spinlar tugagan!")
		}
		return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}

	return c.Reply(fmt.Sprintf(
		"🎉 Ajoyib! %d so‘m yutdingiz!\nHozirgi balans: %d so‘m",
		res.WinAmount, res.Balance,
	))
}

// HandleBonus handles the daily bonus button: grants one spin once per
// cooldown period.
func (h *LedgerHandler) HandleBonus(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	userID := userKey(sender)

	ok, err := h.checkGate(ctx, c, userID)
	if !ok {
		return err
	}

	h.userLock.Lock(userID)
	defer h.userLock.Unlock(userID)

	if _, _, err := h.ledger.EnsureUser(ctx, userID, displayName(sender)); err != nil {
		return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}

	_, _, err = h.ledger.ClaimDailyBonus(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrBonusAlreadyClaimed) {
			return c.Reply("Bugun bonus olgansiz! Ertaga urinib ko‘ring.")
		}
		return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}

	return c.Reply("Kunlik bonus: 1 ta spin qo‘shildi!")
}

// HandleWithdrawInit handles the withdraw button: checks the minimum
// balance and enters the amount step of the flow. Below the minimum the
// flow is never entered.
func (h *LedgerHandler) HandleWithdrawInit(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	userID := userKey(sender)

	ok, err := h.checkGate(ctx, c, userID)
	if !ok {
		return err
	}

	if _, _, err := h.ledger.EnsureUser(ctx, userID, displayName(sender)); err != nil {
		return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}

	if err := h.ledger.CanWithdraw(ctx, userID); err != nil {
		if errors.Is(err, service.ErrBelowMinimum) {
			return c.Reply("❌ Minimal pul yechish 100000 so‘m!")
		}
		return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}

	h.flows.Begin(userID, flow.Step{Kind: flow.KindWithdrawAmount})
	return c.Reply("Nech so‘m yechmoqchisiz?", &tele.ReplyMarkup{ForceReply: true})
}

// HandleWithdrawStep consumes the next input of a pending withdrawal
// flow. An invalid amount aborts the flow; any input in the card step
// ends it (a valid card completes the withdrawal, anything else aborts).
func (h *LedgerHandler) HandleWithdrawStep(c tele.Context, step flow.Step) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	userID := userKey(sender)
	text := c.Text()

	switch step.Kind {
	case flow.KindWithdrawAmount:
		amount, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			h.flows.Clear(userID)
			return c.Reply("❌ Faqat son kiriting!")
		}

		user, err := h.ledger.GetUser(ctx, userID)
		if err != nil {
			h.flows.Clear(userID)
			return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
		}
		if amount < h.ledger.MinWithdraw() || amount > user.Balance {
			h.flows.Clear(userID)
			return c.Reply("❌ Noto‘g‘ri miqdor!")
		}

		h.flows.Begin(userID, flow.Step{Kind: flow.KindWithdrawCard, Amount: amount})
		return c.Reply("Karta raqamini kiriting (16 raqam):", &tele.ReplyMarkup{ForceReply: true})

	case flow.KindWithdrawCard:
		h.flows.Clear(userID)

		h.userLock.Lock(userID)
		defer h.userLock.Unlock(userID)

		res, err := h.ledger.Withdraw(ctx, userID, step.Amount, text)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidCard):
				return c.Reply("❌ Karta raqami noto‘g‘ri! 16 ta raqam kiriting.")
			case errors.Is(err, service.ErrInvalidAmount):
				return c.Reply("❌ Noto‘g‘ri miqdor!")
			default:
				return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
			}
		}

		return c.Reply(fmt.Sprintf("Pul yechish: %d so‘m qabul qilindi!", res.Amount))

	default:
		h.flows.Clear(userID)
		return nil
	}
}
