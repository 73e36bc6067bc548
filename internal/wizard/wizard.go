// Package wizard implements the multi-phase account flows: registration
// (credentials, profile with live username check, code verification) and
// password recovery (email, code with new password), plus the single-phase
// profile editor that shares their submit guard and username check.
//
// Phases advance only after local validation passes and, where the phase
// needs one, a remote call confirms. Submits are serialized per wizard: a
// submit issued while another is pending is rejected with ErrBusy and sends
// nothing. One-time-code resends are locked out by a cooldown that starts at
// every dispatch; a resend during the lockout is rejected without a call.
package wizard

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/clock"
	"github.com/dreamware/tjsocial/internal/cooldown"
	"github.com/dreamware/tjsocial/internal/notify"
)

var (
	// ErrBusy is returned when a submit or resend is already pending.
	ErrBusy = errors.New("wizard: a request is already pending")
	// ErrWrongPhase is returned for transitions the current phase forbids.
	ErrWrongPhase = errors.New("wizard: operation not permitted in this phase")
	// ErrCooldownActive is returned for a resend while the cooldown runs.
	ErrCooldownActive = errors.New("wizard: resend is locked out by the cooldown")
	// ErrClosed is returned once the wizard has been discarded.
	ErrClosed = errors.New("wizard: closed")
)

// Phase is a wizard step. Numbering is 1-based; PhaseDone is terminal.
type Phase int

// PhaseDone is the terminal success phase of both flows.
const PhaseDone Phase = 99

// Field names shared by the flows.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldUsername        = "username"
	FieldPhone           = "phone_number"
	FieldDOB             = "dob"
	FieldOTP             = "otp"
	FieldConfirmPassword = "confirm_password"
	FieldBio             = "bio"
	FieldAccountType     = "account_type"
)

// Options carries the collaborators shared by both wizards.
type Options struct {
	Clock           clock.Clock     // Default clock.Real
	Notifier        notify.Notifier // Default notify.Discard
	Logger          *slog.Logger    // Default slog.Default()
	CooldownSeconds int             // Default cooldown.DefaultSeconds
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	if o.Notifier == nil {
		o.Notifier = notify.Discard
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// flow holds what both wizards share: the phase, the fields, the submit
// guard and the resend cooldown. Wizard methods lock mu; the remote calls
// run with it released.
type flow struct {
	notifier notify.Notifier
	logger   *slog.Logger
	clock    clock.Clock
	cooldown *cooldown.Timer // started only with mu held and closed unset

	mu         sync.Mutex
	fields     map[string]string
	phase      Phase
	submitting bool
	resending  bool
	closed     bool
}

func newFlow(opts Options, name string) *flow {
	opts = opts.withDefaults()
	logger := opts.Logger.With("wizard", name)
	return &flow{
		notifier: opts.Notifier,
		logger:   logger,
		clock:    opts.Clock,
		cooldown: cooldown.New(cooldown.Config{
			Clock:   opts.Clock,
			Seconds: opts.CooldownSeconds,
			Logger:  logger,
		}),
		fields: make(map[string]string),
		phase:  1,
	}
}

// idleLocked fails when no submit may start now.
func (f *flow) idleLocked() error {
	if f.closed {
		return ErrClosed
	}
	if f.submitting {
		return ErrBusy
	}
	return nil
}

// beginLocked claims the submit slot.
func (f *flow) beginLocked() error {
	if err := f.idleLocked(); err != nil {
		return err
	}
	f.submitting = true
	return nil
}

// reject surfaces a local validation failure.
func (f *flow) reject(err error) error {
	notify.Error(f.notifier, apperr.UserMessage(err, err.Error()))
	return err
}

// fail surfaces a remote failure with the server's reason when it has one.
func (f *flow) fail(err error, fallback string) {
	msg := fallback
	if apperr.IsConflict(err) {
		msg = apperr.UserMessage(err, fallback)
	}
	notify.Error(f.notifier, msg)
}

func (f *flow) fieldsCopyLocked() map[string]string {
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		if k == FieldPassword || k == FieldConfirmPassword {
			continue
		}
		out[k] = v
	}
	return out
}

func (f *flow) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cooldown.Stop()
}
