// Package interaction implements optimistic toggling of per-item boolean
// interactions (like, bookmark, follow) with server reconciliation and
// rollback.
//
// A toggle is applied to view state immediately and then sent to the
// server. Each operation walks an explicit lifecycle:
//
//	pending ──► confirmed      server answered (value corrected if it disagreed)
//	        └─► rolled-back    call failed, last confirmed value and count restored
//
// Overlapping toggles on one item are accepted. Every toggle takes a ticket
// from a per-item sequence and only the response to the most recently issued
// ticket may touch state; earlier responses are discarded when they land.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/notify"
	"github.com/dreamware/tjsocial/internal/sequence"
)

// ErrUnknownItem is returned when toggling an id the store does not hold.
var ErrUnknownItem = errors.New("unknown item")

// DefaultFailureMessage is shown when a toggle fails without a server reason.
const DefaultFailureMessage = "Request Failed"

// Kind names the interaction a Toggle manages; it labels logs and errors.
type Kind string

const (
	Like     Kind = "like"
	Bookmark Kind = "bookmark"
	Follow   Kind = "follow"
)

// Outcome is the lifecycle position of the latest operation on an item.
type Outcome int

const (
	OutcomeNone       Outcome = iota // never toggled
	OutcomePending                   // optimistic value shown, awaiting server
	OutcomeConfirmed                 // server answered
	OutcomeRolledBack                // call failed, last confirmed state restored
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRolledBack:
		return "rolled-back"
	default:
		return "none"
	}
}

// Store is where the interaction's visible value lives, typically
// feed.Paginator.Likes(). Lookup reports false for unknown ids.
type Store interface {
	Lookup(id string) (value bool, count int, ok bool)
	Store(id string, value bool, count int) bool
}

// Remote performs the server-side toggle and returns the authoritative
// resulting value together with the server's message.
type Remote func(ctx context.Context, id string) (value bool, message string, err error)

// State is the interaction state of one item.
type State struct {
	Value         bool
	Count         int
	PendingTicket sequence.Ticket // 0 when nothing is pending
	Outcome       Outcome
	Corrected     bool // server disagreed with the optimistic guess
}

// Transition is reported for every lifecycle step, in order, per item.
type Transition struct {
	ID      string
	Ticket  sequence.Ticket
	Outcome Outcome
	Value   bool
	Count   int
}

// Config configures a Toggle.
type Config struct {
	Store    Store
	Remote   Remote
	Notifier notify.Notifier // Default notify.Discard
	Logger   *slog.Logger    // Default slog.Default()
	Kind     Kind

	// Counted makes each toggle adjust the count by ±1 (likes, followers).
	Counted bool
	// FailureMessage overrides DefaultFailureMessage.
	FailureMessage string
}

type operation struct {
	ticket    sequence.Ticket
	baseValue bool
	baseCount int
	guess     bool
	guessCnt  int
	outcome   Outcome
	corrected bool
}

// snapshot is a value and count the server has vouched for.
type snapshot struct {
	value bool
	count int
}

// Toggle manages one interaction kind across all items of a view.
// Safe for concurrent use; no lock is held during the remote call.
type Toggle struct {
	store        Store
	remote       Remote
	notifier     notify.Notifier
	logger       *slog.Logger
	seq          *sequence.Keyed[string]
	onTransition func(Transition)
	kind         Kind
	failMsg      string
	counted      bool

	mu        sync.Mutex
	ops       map[string]*operation // created lazily on first toggle
	confirmed map[string]snapshot   // rollback target while a toggle is in flight
}

// New creates a Toggle.
func New(cfg Config) *Toggle {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FailureMessage == "" {
		cfg.FailureMessage = DefaultFailureMessage
	}
	return &Toggle{
		store:     cfg.Store,
		remote:    cfg.Remote,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger.With("interaction", string(cfg.Kind)),
		seq:       sequence.NewKeyed[string](),
		kind:      cfg.Kind,
		failMsg:   cfg.FailureMessage,
		counted:   cfg.Counted,
		ops:       make(map[string]*operation),
		confirmed: make(map[string]snapshot),
	}
}

// SetOnTransition registers a callback invoked, outside any lock, for every
// lifecycle step. Set it before the first Toggle.
func (t *Toggle) SetOnTransition(fn func(Transition)) {
	t.onTransition = fn
}

// Toggle flips the item's value, applies the prediction immediately and
// reconciles with the server. It blocks until the remote call resolves.
//
// A response superseded by a newer toggle on the same item is discarded
// and Toggle returns nil: the newer call owns the outcome. A failed call
// rolls back to the last state the server confirmed (or the stored state
// before the first of the overlapping toggles) and returns the error after
// notifying.
func (t *Toggle) Toggle(ctx context.Context, id string) error {
	t.mu.Lock()
	value, count, ok := t.store.Lookup(id)
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%s %s: %w", t.kind, id, ErrUnknownItem)
	}
	if prev, exists := t.ops[id]; !exists || prev.outcome != OutcomePending {
		t.confirmed[id] = snapshot{value: value, count: count}
	}
	op := &operation{
		ticket:    t.seq.Issue(id),
		baseValue: value,
		baseCount: count,
		guess:     !value,
		guessCnt:  t.adjust(count, value, !value),
		outcome:   OutcomePending,
	}
	t.ops[id] = op
	t.store.Store(id, op.guess, op.guessCnt)
	pending := Transition{ID: id, Ticket: op.ticket, Outcome: OutcomePending, Value: op.guess, Count: op.guessCnt}
	t.mu.Unlock()

	t.emit(pending)
	t.logger.Debug("optimistic toggle", "id", id, "ticket", op.ticket, "value", op.guess)

	serverValue, msg, err := t.remote(ctx, id)

	t.mu.Lock()
	if !t.seq.IsCurrent(id, op.ticket) {
		// A superseded success still tells us where the server stands
		// should the newer call fail.
		if err == nil && t.ops[id].outcome == OutcomePending {
			back := t.confirmed[id]
			t.confirmed[id] = snapshot{value: serverValue, count: t.adjust(back.count, back.value, serverValue)}
		}
		t.mu.Unlock()
		t.logger.Debug("discarding superseded response", "id", id, "ticket", op.ticket)
		return nil
	}

	if err != nil {
		back := t.confirmed[id]
		t.store.Store(id, back.value, back.count)
		op.outcome = OutcomeRolledBack
		rolled := Transition{ID: id, Ticket: op.ticket, Outcome: OutcomeRolledBack, Value: back.value, Count: back.count}
		t.mu.Unlock()

		t.emit(rolled)
		t.logger.Warn("toggle failed, rolled back", "id", id, "ticket", op.ticket, "error", err)
		notify.Error(t.notifier, apperr.UserMessage(err, t.failMsg))
		return fmt.Errorf("%s %s: %w", t.kind, id, err)
	}

	finalValue, finalCount := op.guess, op.guessCnt
	if serverValue != op.guess {
		op.corrected = true
		finalValue = serverValue
		finalCount = t.adjust(op.baseCount, op.baseValue, serverValue)
	}
	t.store.Store(id, finalValue, finalCount)
	t.confirmed[id] = snapshot{value: finalValue, count: finalCount}
	op.outcome = OutcomeConfirmed
	confirmed := Transition{ID: id, Ticket: op.ticket, Outcome: OutcomeConfirmed, Value: finalValue, Count: finalCount}
	t.mu.Unlock()

	t.emit(confirmed)
	if op.corrected {
		t.logger.Info("server corrected optimistic toggle", "id", id, "value", finalValue)
	}
	notify.Success(t.notifier, msg)
	return nil
}

// State returns the item's current interaction state. ok is false for ids
// the store does not hold.
func (t *Toggle) State(id string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	value, count, ok := t.store.Lookup(id)
	if !ok {
		return State{}, false
	}
	st := State{Value: value, Count: count}
	if op, exists := t.ops[id]; exists {
		st.Outcome = op.outcome
		st.Corrected = op.corrected
		if op.outcome == OutcomePending {
			st.PendingTicket = op.ticket
		}
	}
	return st, true
}

// adjust derives the count for a change from "from" to "to" relative to base.
func (t *Toggle) adjust(base int, from, to bool) int {
	if !t.counted || from == to {
		return base
	}
	if to {
		return base + 1
	}
	return max(base-1, 0)
}

func (t *Toggle) emit(tr Transition) {
	if t.onTransition != nil {
		t.onTransition(tr)
	}
}
