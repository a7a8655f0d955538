package tally

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/malacounter/internal/foundation"
)

// DefaultNoticeDuration is how long a completion notice stays active.
const DefaultNoticeDuration = 1500 * time.Millisecond

// Notice announces a completed round.
type Notice struct {
	Round     int
	PostedAt  time.Time
	ExpiresAt time.Time
}

// Notifier holds at most one active completion notice. A new notice
// replaces the previous one and restarts the expiry timer.
type Notifier struct {
	clock    clockwork.Clock
	duration time.Duration

	mu        sync.Mutex
	current   *Notice
	timer     clockwork.Timer
	listeners []func(Notice)
	posted    int
}

// NewNotifier creates a notifier. A nil clock uses the real clock and a
// non-positive duration uses DefaultNoticeDuration.
func NewNotifier(clock clockwork.Clock, duration time.Duration) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if duration <= 0 {
		duration = DefaultNoticeDuration
	}
	return &Notifier{clock: clock, duration: duration}
}

// Listen registers fn to run for every posted notice.
func (n *Notifier) Listen(fn func(Notice)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Post activates a notice for round and calls listeners outside the lock.
func (n *Notifier) Post(round int) Notice {
	n.mu.Lock()
	now := n.clock.Now()
	notice := Notice{Round: round, PostedAt: now, ExpiresAt: now.Add(n.duration)}
	n.current = &notice
	n.posted++
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = n.clock.AfterFunc(n.duration, func() { n.expire(notice) })
	listeners := append([]func(Notice){}, n.listeners...)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(notice)
	}
	return notice
}

// Current returns the active notice, or None once it has expired.
func (n *Notifier) Current() foundation.Option[Notice] {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil || !n.clock.Now().Before(n.current.ExpiresAt) {
		return foundation.None[Notice]()
	}
	return foundation.Some(*n.current)
}

// Posted counts notices posted since creation.
func (n *Notifier) Posted() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.posted
}

// Clear drops the active notice.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clearLocked()
}

// Close stops the expiry timer.
func (n *Notifier) Close() {
	n.Clear()
}

func (n *Notifier) expire(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	// A later Post may have replaced this notice already.
	if n.current != nil && *n.current == notice {
		n.clearLocked()
	}
}

func (n *Notifier) clearLocked() {
	n.current = nil
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
