package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokhirov0/Spin3/internal/model"
)

func newTestReferrals(store *memStore, journal *memJournal, notifier *memNotifier) *ReferralService {
	return NewReferralService(store, journal, notifier, 5000, "Spinbot")
}

func TestAttributeSuccess(t *testing.T) {
	store := newMemStore()
	journal := newMemJournal()
	notifier := newMemNotifier()
	svc := newTestReferrals(store, journal, notifier)

	store.seed(&model.User{TelegramID: "referrer", Balance: 1000})
	store.seed(&model.User{TelegramID: "referee"})

	err := svc.Attribute(context.Background(), "referee", "referrer")
	require.NoError(t, err)

	referrer := store.snapshot("referrer")
	assert.Equal(t, int64(1), referrer.ReferralCount)
	assert.Equal(t, int64(6000), referrer.Balance)

	referee := store.snapshot("referee")
	require.NotNil(t, referee.InvitedBy)
	assert.Equal(t, "referrer", *referee.InvitedBy)

	bonuses := journal.byType(model.TxTypeReferralBonus)
	require.Len(t, bonuses, 1)
	assert.Equal(t, "referrer", bonuses[0].UserID)
	assert.Equal(t, int64(5000), bonuses[0].Amount)

	require.Len(t, notifier.messagesFor("referrer"), 1)
	assert.Contains(t, notifier.messagesFor("referrer")[0], "5000")
}

func TestAttributeIdempotentUnderReplay(t *testing.T) {
	store := newMemStore()
	journal := newMemJournal()
	svc := newTestReferrals(store, journal, newMemNotifier())

	store.seed(&model.User{TelegramID: "referrer"})
	store.seed(&model.User{TelegramID: "referee"})

	require.NoError(t, svc.Attribute(context.Background(), "referee", "referrer"))

	// Replayed /start with the same payload: no double credit.
	err := svc.Attribute(context.Background(), "referee", "referrer")
	assert.ErrorIs(t, err, ErrAlreadyAttributed)

	// Nor with a different referrer.
	store.seed(&model.User{TelegramID: "other"})
	err = svc.Attribute(context.Background(), "referee", "other")
	assert.ErrorIs(t, err, ErrAlreadyAttributed)

	referrer := store.snapshot("referrer")
	assert.Equal(t, int64(1), referrer.ReferralCount)
	assert.Equal(t, int64(5000), referrer.Balance)
	assert.Len(t, journal.byType(model.TxTypeReferralBonus), 1)
}

func TestAttributeSelfReferral(t *testing.T) {
	store := newMemStore()
	svc := newTestReferrals(store, newMemJournal(), newMemNotifier())

	store.seed(&model.User{TelegramID: "101"})

	err := svc.Attribute(context.Background(), "101", "101")
	assert.ErrorIs(t, err, ErrSelfReferral)

	after := store.snapshot("101")
	assert.Equal(t, int64(0), after.ReferralCount)
	assert.Nil(t, after.InvitedBy)
}

func TestAttributeUnknownReferrer(t *testing.T) {
	store := newMemStore()
	svc := newTestReferrals(store, newMemJournal(), newMemNotifier())

	store.seed(&model.User{TelegramID: "referee"})

	err := svc.Attribute(context.Background(), "referee", "nobody")
	assert.ErrorIs(t, err, ErrUnknownReferrer)

	// The bogus token must not fabricate a record.
	assert.Nil(t, store.snapshot("nobody"))
	assert.Nil(t, store.snapshot("referee").InvitedBy)
}

func TestAttributeNotifyFailureKeepsCredit(t *testing.T) {
	store := newMemStore()
	notifier := newMemNotifier()
	notifier.fail = true
	svc := newTestReferrals(store, newMemJournal(), notifier)

	store.seed(&model.User{TelegramID: "referrer"})
	store.seed(&model.User{TelegramID: "referee"})

	err := svc.Attribute(context.Background(), "referee", "referrer")
	require.NoError(t, err)

	referrer := store.snapshot("referrer")
	assert.Equal(t, int64(1), referrer.ReferralCount)
	assert.Equal(t, int64(5000), referrer.Balance)
}

func TestLink(t *testing.T) {
	svc := newTestReferrals(newMemStore(), newMemJournal(), newMemNotifier())
	assert.Equal(t, "https://t.me/Spinbot?start=777", svc.Link("777"))
}
