package tally

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierPostAndExpire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, 0)
	defer n.Close()

	posted := n.Post(3)
	assert.Equal(t, 3, posted.Round)
	assert.Equal(t, DefaultNoticeDuration, posted.ExpiresAt.Sub(posted.PostedAt))

	current, ok := n.Current().Get()
	require.True(t, ok)
	assert.Equal(t, 3, current.Round)

	clock.Advance(time.Second)
	assert.True(t, n.Current().IsSome())

	clock.Advance(500 * time.Millisecond)
	assert.True(t, n.Current().IsNone())
}

func TestNotifierRepostRestartsExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	n := NewNotifier(clock, time.Second)
	defer n.Close()

	n.Post(1)
	clock.Advance(800 * time.Millisecond)
	n.Post(2)
	clock.Advance(800 * time.Millisecond)

	current, ok := n.Current().Get()
	require.True(t, ok)
	assert.Equal(t, 2, current.Round)
	assert.Equal(t, 2, n.Posted())

	clock.Advance(200 * time.Millisecond)
	assert.True(t, n.Current().IsNone())
}

func TestNotifierListeners(t *testing.T) {
	n := NewNotifier(clockwork.NewFakeClock(), time.Second)
	defer n.Close()

	var rounds []int
	n.Listen(func(notice Notice) { rounds = append(rounds, notice.Round) })
	n.Post(1)
	n.Post(2)
	assert.Equal(t, []int{1, 2}, rounds)
}

func TestNotifierClear(t *testing.T) {
	n := NewNotifier(clockwork.NewFakeClock(), time.Second)
	n.Post(4)
	n.Clear()
	assert.True(t, n.Current().IsNone())
	assert.Equal(t, 1, n.Posted())
}
