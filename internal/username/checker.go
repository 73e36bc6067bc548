// Package username validates username availability while the user types.
//
// A Checker debounces input, asks the server only for input that stayed
// unchanged for the whole delay, and applies an answer only if no newer
// input arrived while it was in flight:
//
//	idle ──Input──► checking ──answer for current ticket──► valid | invalid
//	                   ▲                │
//	                   └──── Input ─────┘   (older answers are discarded)
//
// Every input event takes a ticket from the checker's sequence. The pending
// debounce and any in-flight lookup belong to the ticket of the input that
// started them, so both are superseded by simply issuing a newer ticket.
package username

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/tjsocial/internal/clock"
	"github.com/dreamware/tjsocial/internal/sequence"
)

// Defaults match the registration and profile forms.
const (
	DefaultMinLength = 3
	DefaultDelay     = 1500 * time.Millisecond
)

// Status is the checker's validity state.
type Status int

const (
	StatusIdle Status = iota
	StatusChecking
	StatusValid
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "idle"
	}
}

// Lookup asks the server for the normalised form of a candidate. The
// candidate is available when the normalised form equals it.
type Lookup func(ctx context.Context, candidate string) (normalized string, err error)

// State is what the view renders next to the username field.
type State struct {
	Candidate string
	Status    Status
}

// Config configures a Checker. Zero values pick the defaults.
type Config struct {
	Lookup    Lookup        // Without one every candidate but Own is invalid
	Clock     clock.Clock   // Default clock.Real
	Logger    *slog.Logger  // Default slog.Default()
	Delay     time.Duration // Debounce window, default 1.5s
	MinLength int           // Shorter candidates are invalid without a lookup, default 3

	// Own is the user's existing username; it is valid without a lookup.
	Own string

	// OnChange is called after every state change, outside the lock.
	OnChange func(State)
}

// request is one issued lookup.
type request struct {
	query  string
	ticket sequence.Ticket
}

// Checker is the debounced availability validator for one form.
// Safe for concurrent use.
type Checker struct {
	lookup    Lookup
	clock     clock.Clock
	logger    *slog.Logger
	onChange  func(State)
	ctx       context.Context
	cancel    context.CancelFunc
	delay     time.Duration
	minLength int

	seq sequence.Sequencer
	wg  sync.WaitGroup

	mu        sync.Mutex
	debounce  clock.Timer // single-writer: only Input and Close replace it
	own       string
	candidate string
	status    Status
	lookups   int
}

// New creates an idle checker.
func New(cfg Config) *Checker {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Checker{
		lookup:    cfg.Lookup,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		onChange:  cfg.OnChange,
		ctx:       ctx,
		cancel:    cancel,
		delay:     cfg.Delay,
		minLength: cfg.MinLength,
		own:       cfg.Own,
	}
}

// Normalize strips the spaces usernames may not contain.
func Normalize(raw string) string {
	return strings.ReplaceAll(raw, " ", "")
}

// Input handles one keystroke-equivalent edit of the username field and
// returns the normalised candidate.
func (c *Checker) Input(raw string) string {
	candidate := Normalize(raw)

	c.mu.Lock()
	ticket := c.seq.Issue()
	c.stopDebounceLocked()
	c.candidate = candidate

	switch {
	case len(candidate) < c.minLength:
		c.status = StatusInvalid
	case c.own != "" && candidate == c.own:
		c.status = StatusValid
	case c.lookup == nil:
		// Nothing can vouch for the candidate.
		c.status = StatusInvalid
	default:
		c.status = StatusChecking
		req := request{query: candidate, ticket: ticket}
		c.debounce = c.clock.AfterFunc(c.delay, func() { c.fire(req) })
	}
	st := State{Candidate: c.candidate, Status: c.status}
	c.mu.Unlock()

	c.emit(st)
	return candidate
}

// SetOwn changes the username treated as the user's own.
func (c *Checker) SetOwn(own string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.own = own
}

// State returns the current state.
func (c *Checker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Candidate: c.candidate, Status: c.status}
}

// Valid reports whether the current candidate is confirmed available.
func (c *Checker) Valid() bool {
	return c.State().Status == StatusValid
}

// Lookups returns how many lookups have been issued, for diagnostics.
func (c *Checker) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}

// Wait blocks until every issued lookup has returned.
func (c *Checker) Wait() {
	c.wg.Wait()
}

// Close supersedes pending work and cancels in-flight lookups' context.
// Answers that land afterwards are discarded.
func (c *Checker) Close() {
	c.mu.Lock()
	c.seq.Issue()
	c.stopDebounceLocked()
	c.mu.Unlock()
	c.cancel()
}

func (c *Checker) stopDebounceLocked() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

// fire runs when a debounce window elapses.
func (c *Checker) fire(req request) {
	c.mu.Lock()
	if !c.seq.IsCurrent(req.ticket) {
		c.mu.Unlock()
		return
	}
	c.debounce = nil
	c.lookups++
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Debug("checking username", "candidate", req.query, "ticket", req.ticket)
	go func() {
		defer c.wg.Done()
		normalized, err := c.lookup(c.ctx, req.query)
		c.resolve(req, normalized, err)
	}()
}

func (c *Checker) resolve(req request, normalized string, err error) {
	c.mu.Lock()
	if !c.seq.IsCurrent(req.ticket) {
		c.mu.Unlock()
		c.logger.Debug("discarding stale username answer", "candidate", req.query, "ticket", req.ticket)
		return
	}
	if err == nil && normalized == req.query {
		c.status = StatusValid
	} else {
		c.status = StatusInvalid
	}
	st := State{Candidate: c.candidate, Status: c.status}
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("username lookup failed", "candidate", req.query, "error", err)
	}
	c.emit(st)
}

func (c *Checker) emit(st State) {
	if c.onChange != nil {
		c.onChange(st)
	}
}
