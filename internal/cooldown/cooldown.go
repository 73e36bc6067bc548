// Package cooldown implements the countdown that locks out one-time-code
// resends after each dispatch.
package cooldown

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dreamware/tjsocial/internal/clock"
	"github.com/dreamware/tjsocial/internal/sequence"
)

// DefaultSeconds is the lockout applied after every code dispatch.
const DefaultSeconds = 60

// State is a snapshot of the countdown.
type State struct {
	Remaining int  // Seconds left, 0 once expired
	Active    bool // Whether resends are currently locked out
}

// Config configures a Timer. Zero values pick the defaults.
type Config struct {
	Clock    clock.Clock   // Time source (default clock.Real)
	Seconds  int           // Countdown length (default 60)
	Interval time.Duration // Tick interval (default 1s)
	Logger   *slog.Logger  // Logger (default slog.Default())

	// OnTick is called after every tick with the new state, outside the lock.
	OnTick func(State)
	// OnExpire is called exactly once per Start, when the countdown hits 0.
	OnExpire func()
}

// Timer counts down from Seconds to 0 with one tick per Interval.
// Safe for concurrent use.
type Timer struct {
	clock    clock.Clock
	logger   *slog.Logger
	onTick   func(State)
	onExpire func()
	pending  clock.Timer
	interval time.Duration
	seconds  int

	// ticks sequences scheduled callbacks: a tick that fires after Start or
	// Stop has issued a newer ticket is ignored.
	ticks sequence.Sequencer

	mu        sync.Mutex
	remaining int
	active    bool
}

// New creates an inactive timer.
func New(cfg Config) *Timer {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Seconds <= 0 {
		cfg.Seconds = DefaultSeconds
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Timer{
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		onTick:   cfg.OnTick,
		onExpire: cfg.OnExpire,
		interval: cfg.Interval,
		seconds:  cfg.Seconds,
	}
}

// Start (re)activates the countdown at its full length. Calling Start while
// active resets the remaining time.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.remaining = t.seconds
	t.active = true
	t.scheduleLocked()
	t.logger.Debug("cooldown started", "seconds", t.seconds)
}

// Stop cancels ticking and deactivates the timer without firing OnExpire.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.ticks.Issue()
	t.remaining = 0
	t.active = false
}

// State returns the current countdown state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{Remaining: t.remaining, Active: t.active}
}

// Active reports whether resends are locked out.
func (t *Timer) Active() bool {
	return t.State().Active
}

func (t *Timer) scheduleLocked() {
	ticket := t.ticks.Issue()
	t.pending = t.clock.AfterFunc(t.interval, func() { t.tick(ticket) })
}

func (t *Timer) cancelLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) tick(ticket sequence.Ticket) {
	t.mu.Lock()
	if !t.ticks.IsCurrent(ticket) || !t.active {
		t.mu.Unlock()
		return
	}
	t.remaining--
	expired := t.remaining <= 0
	if expired {
		t.remaining = 0
		t.active = false
		t.pending = nil
	} else {
		t.scheduleLocked()
	}
	st := State{Remaining: t.remaining, Active: t.active}
	onTick, onExpire := t.onTick, t.onExpire
	t.mu.Unlock()

	if onTick != nil {
		onTick(st)
	}
	if expired {
		t.logger.Debug("cooldown expired")
		if onExpire != nil {
			onExpire()
		}
	}
}
