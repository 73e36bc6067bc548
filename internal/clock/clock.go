// Package clock abstracts time so debounce and cooldown logic can be driven
// deterministically in tests.
package clock

import (
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// Clock is the time source used by every timer-owning component.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer can cancel
	// the call if it has not fired yet.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending call scheduled through a Clock.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// was cancelled before it fired.
	Stop() bool
}

// Real is the wall clock backed by the time package.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc; f runs on its own goroutine.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Fake is a manually advanced clock. Timer callbacks run synchronously on
// the goroutine calling Advance, in deadline order, which makes orderings
// that are racy on a real clock reproducible.
type Fake struct {
	now    time.Time
	timers []*fakeTimer
	seq    uint64
	mu     sync.Mutex
}

type fakeTimer struct {
	fake *Fake
	when time.Time
	fn   func()
	seq  uint64
}

// NewFake creates a fake clock reading start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules fn to run when the fake has been advanced by d.
// A non-positive d fires on the next Advance call, including Advance(0).
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTimer{fake: f, when: f.now.Add(d), fn: fn, seq: f.seq}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer whose deadline
// falls inside the window. Timers scheduled by a firing callback are
// honoured if they also fall inside the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		next := f.popDueLocked(target)
		if next == nil {
			break
		}
		f.now = next.when
		f.mu.Unlock()
		next.fn()
		f.mu.Lock()
	}
	f.now = target
	f.mu.Unlock()
}

// Pending reports how many timers are scheduled and not yet fired.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *Fake) popDueLocked(target time.Time) *fakeTimer {
	if len(f.timers) == 0 {
		return nil
	}
	slices.SortStableFunc(f.timers, func(a, b *fakeTimer) int {
		if c := a.when.Compare(b.when); c != 0 {
			return c
		}
		return int(a.seq) - int(b.seq)
	})
	first := f.timers[0]
	if first.when.After(target) {
		return nil
	}
	f.timers = f.timers[1:]
	return first
}

func (t *fakeTimer) Stop() bool {
	f := t.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.Index(f.timers, t)
	if i < 0 {
		return false
	}
	f.timers = slices.Delete(f.timers, i, i+1)
	return true
}
