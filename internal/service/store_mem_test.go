package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tokhirov0/Spin3/internal/model"
	"github.com/tokhirov0/Spin3/internal/repository"
)

// memStore is an in-memory UserStore mirroring the repository's
// semantics, including its conditional-update backstops.
type memStore struct {
	mu    sync.Mutex
	users map[string]*model.User
	order []string
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*model.User)}
}

// seed inserts a record directly, bypassing the store API.
func (m *memStore) seed(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.TelegramID] = &cp
	m.order = append(m.order, u.TelegramID)
}

// snapshot returns a copy of a record for assertions.
func (m *memStore) snapshot(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetOrCreate(_ context.Context, id, username string) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, false, nil
	}
	now := time.Now()
	u := &model.User{
		TelegramID: id,
		Username:   username,
		Balance:    0,
		Spins:      1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.users[id] = u
	m.order = append(m.order, id)
	cp := *u
	return &cp, true, nil
}

func (m *memStore) RecordSpin(_ context.Context, id string, winAmount int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Spins < 1 {
		// Mirrors the conditional UPDATE matching no rows.
		return nil, repository.ErrUserNotFound
	}
	u.Spins--
	u.Balance += winAmount
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *memStore) GrantBonus(_ context.Context, id string, claimedAt time.Time) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Spins++
	t := claimedAt
	u.LastBonusTime = &t
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *memStore) Withdraw(_ context.Context, id string, amount int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if u.Balance < amount {
		return nil, repository.ErrInsufficientFunds
	}
	u.Balance -= amount
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *memStore) Attribute(_ context.Context, refereeID, referrerID string, reward int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	referee, ok := m.users[refereeID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if referee.InvitedBy != nil {
		return repository.ErrAlreadyAttributed
	}
	referrer, ok := m.users[referrerID]
	if !ok {
		return repository.ErrUserNotFound
	}
	ref := referrerID
	referee.InvitedBy = &ref
	referrer.ReferralCount++
	referrer.Balance += reward
	return nil
}

func (m *memStore) UpdateUsername(_ context.Context, id, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Username = username
	u.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *memStore) List(_ context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*model.User, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.users[id]
		users = append(users, &cp)
	}
	return users, nil
}

// memJournal is an in-memory TxStore.
type memJournal struct {
	mu      sync.Mutex
	entries []*model.Transaction
}

func newMemJournal() *memJournal {
	return &memJournal{}
}

func (j *memJournal) Create(_ context.Context, userID string, amount int64, txType string, description *string) (*model.Transaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	tx := &model.Transaction{
		ID:          int64(len(j.entries) + 1),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	}
	j.entries = append(j.entries, tx)
	return tx, nil
}

func (j *memJournal) GetByUserID(_ context.Context, userID string, limit int) ([]*model.Transaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*model.Transaction
	for i := len(j.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if j.entries[i].UserID == userID {
			cp := *j.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (j *memJournal) byType(txType string) []*model.Transaction {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*model.Transaction
	for _, tx := range j.entries {
		if tx.Type == txType {
			out = append(out, tx)
		}
	}
	return out
}

// memNotifier is an in-memory Notifier. Set fail to simulate an
// unreachable Telegram API.
type memNotifier struct {
	mu     sync.Mutex
	direct map[string][]string
	admin  []string
	fail   bool
}

func newMemNotifier() *memNotifier {
	return &memNotifier{direct: make(map[string][]string)}
}

func (n *memNotifier) Notify(userID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("notification failed")
	}
	n.direct[userID] = append(n.direct[userID], text)
	return nil
}

func (n *memNotifier) NotifyAdmins(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("notification failed")
	}
	n.admin = append(n.admin, text)
	return nil
}

func (n *memNotifier) adminMessages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.admin...)
}

func (n *memNotifier) messagesFor(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.direct[userID]...)
}
