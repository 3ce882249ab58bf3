package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingEmpty(t *testing.T) {
	tr := NewTracker(10 * time.Minute)

	_, ok := tr.Pending("101")
	assert.False(t, ok)
}

func TestBeginAndPending(t *testing.T) {
	tr := NewTracker(10 * time.Minute)

	tr.Begin("101", Step{Kind: KindWithdrawAmount})

	step, ok := tr.Pending("101")
	require.True(t, ok)
	assert.Equal(t, KindWithdrawAmount, step.Kind)
}

func TestBeginCarriesPartialInput(t *testing.T) {
	tr := NewTracker(10 * time.Minute)

	tr.Begin("101", Step{Kind: KindWithdrawCard, Amount: 120000})

	step, ok := tr.Pending("101")
	require.True(t, ok)
	assert.Equal(t, KindWithdrawCard, step.Kind)
	assert.Equal(t, int64(120000), step.Amount)
}

func TestBeginSupersedesPendingStep(t *testing.T) {
	tr := NewTracker(10 * time.Minute)

	tr.Begin("101", Step{Kind: KindWithdrawAmount})
	tr.Begin("101", Step{Kind: KindChannelAdd})

	step, ok := tr.Pending("101")
	require.True(t, ok)
	assert.Equal(t, KindChannelAdd, step.Kind)
}

func TestClear(t *testing.T) {
	tr := NewTracker(10 * time.Minute)

	tr.Begin("101", Step{Kind: KindWithdrawAmount})
	tr.Clear("101")

	_, ok := tr.Pending("101")
	assert.False(t, ok)

	// Clearing an absent step is a no-op.
	tr.Clear("101")
}

func TestPerUserIsolation(t *testing.T) {
	tr := NewTracker(10 * time.Minute)

	tr.Begin("101", Step{Kind: KindWithdrawAmount})
	tr.Begin("202", Step{Kind: KindChannelRemove})

	tr.Clear("101")

	_, ok := tr.Pending("101")
	assert.False(t, ok)

	step, ok := tr.Pending("202")
	require.True(t, ok)
	assert.Equal(t, KindChannelRemove, step.Kind)
}

func TestPendingExpiresAfterTTL(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(10 * time.Minute)
	tr.now = func() time.Time { return current }

	tr.Begin("101", Step{Kind: KindWithdrawAmount})

	// Just inside the TTL the step survives.
	current = current.Add(10 * time.Minute)
	_, ok := tr.Pending("101")
	assert.True(t, ok)

	// Past the TTL it is evicted.
	current = current.Add(time.Second)
	_, ok = tr.Pending("101")
	assert.False(t, ok)

	// Eviction is permanent, not a transient miss.
	current = current.Add(-5 * time.Minute)
	_, ok = tr.Pending("101")
	assert.False(t, ok)
}

func TestBeginResetsExpiry(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(10 * time.Minute)
	tr.now = func() time.Time { return current }

	tr.Begin("101", Step{Kind: KindWithdrawAmount})

	current = current.Add(8 * time.Minute)
	tr.Begin("101", Step{Kind: KindWithdrawCard, Amount: 150000})

	// 8 + 8 minutes after the first Begin, but only 8 after the second.
	current = current.Add(8 * time.Minute)
	step, ok := tr.Pending("101")
	require.True(t, ok)
	assert.Equal(t, KindWithdrawCard, step.Kind)
}

func TestZeroTTLDisablesExpiry(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(0)
	tr.now = func() time.Time { return current }

	tr.Begin("101", Step{Kind: KindChannelAdd})

	current = current.Add(1000 * time.Hour)
	_, ok := tr.Pending("101")
	assert.True(t, ok)
}
