// Package sequence implements last-issued-wins sequencing for asynchronous
// calls. Every call takes a ticket from a monotonic counter; when the call
// resolves, its result may take effect only if no newer ticket has been
// issued in the meantime.
//
// Sequencing never aborts the underlying work. A superseded call still runs
// to completion; its result is simply discarded with ErrStale.
package sequence

import (
	"context"
	"errors"
	"sync"
)

// ErrStale marks a result that was discarded because a newer call was
// issued before it resolved. It is an internal signal, never a user-facing
// failure.
var ErrStale = errors.New("stale response discarded")

// Ticket identifies one issued call. The zero Ticket is never issued and
// means "no call pending".
type Ticket uint64

// Sequencer hands out monotonically increasing tickets.
// Safe for concurrent use.
type Sequencer struct {
	mu      sync.Mutex
	current Ticket
}

// Issue returns a new ticket, superseding every ticket issued before it.
func (s *Sequencer) Issue() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	return s.current
}

// Current returns the highest ticket issued so far (0 if none).
func (s *Sequencer) Current() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// IsCurrent reports whether t is still the most recently issued ticket.
func (s *Sequencer) IsCurrent(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t != 0 && t == s.current
}

// Request wraps a Sequencer around a single asynchronous operation type.
type Request[T any] struct {
	seq Sequencer
}

// Do issues a ticket, runs fn and returns its result only if the ticket is
// still current when fn returns. A superseded call yields the zero T and
// ErrStale, whatever fn itself returned.
func (r *Request[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, Ticket, error) {
	t := r.seq.Issue()
	v, err := fn(ctx)
	if !r.seq.IsCurrent(t) {
		var zero T
		return zero, t, ErrStale
	}
	return v, t, err
}

// Invalidate supersedes every outstanding call without starting a new one.
func (r *Request[T]) Invalidate() Ticket {
	return r.seq.Issue()
}

// Keyed keeps an independent sequence per key, so overlapping calls for
// different items never supersede each other.
type Keyed[K comparable] struct {
	mu      sync.Mutex
	current map[K]Ticket
	next    Ticket
}

// NewKeyed creates an empty keyed sequencer.
func NewKeyed[K comparable]() *Keyed[K] {
	return &Keyed[K]{current: make(map[K]Ticket)}
}

// Issue returns a new ticket for key. Tickets are unique across keys.
func (k *Keyed[K]) Issue(key K) Ticket {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.next++
	k.current[key] = k.next
	return k.next
}

// IsCurrent reports whether t is the latest ticket issued for key.
func (k *Keyed[K]) IsCurrent(key K, t Ticket) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return t != 0 && k.current[key] == t
}
