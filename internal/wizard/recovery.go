package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/cooldown"
	"github.com/dreamware/tjsocial/internal/notify"
)

// Recovery phases.
const (
	PhaseEmail Phase = 1 // email
	PhaseReset Phase = 2 // code, new password, confirmation
)

// Notification texts of the recovery flow.
const (
	MsgRecoveryFailed   = "Wrong Credentials Provided"
	MsgPasswordChanged  = "Password Changed Successfully"
	MsgPasswordMismatch = "Password Confirming Failed"
)

// RecoveryRemote is the part of the API a recovery needs.
type RecoveryRemote interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
	ChangePassword(ctx context.Context, req api.ChangePasswordRequest) error
}

// RecoveryConfig configures a Recovery.
type RecoveryConfig struct {
	Options
	Remote RecoveryRemote

	// Email pre-fills the email field, e.g. from the signed-in session.
	Email string
}

// RecoveryState is a snapshot for rendering. Passwords are omitted.
type RecoveryState struct {
	Phase      Phase
	Fields     map[string]string
	SentTo     string
	Cooldown   cooldown.State
	Submitting bool
}

// Recovery is the two-phase password reset wizard. Safe for concurrent use.
type Recovery struct {
	*flow
	remote RecoveryRemote

	// sentTo is the address the last code went to. Guarded by flow.mu.
	sentTo string
}

// NewRecovery creates a wizard in PhaseEmail.
func NewRecovery(cfg RecoveryConfig) *Recovery {
	r := &Recovery{
		flow:   newFlow(cfg.Options, "recovery"),
		remote: cfg.Remote,
	}
	if cfg.Email != "" {
		r.fields[FieldEmail] = strings.TrimSpace(cfg.Email)
	}
	return r
}

// Set updates one field.
func (r *Recovery) Set(field, value string) error {
	switch field {
	case FieldOTP:
		value = NormalizeOTP(value)
		if len(value) > OTPLength {
			return apperr.Invalid(field, msgCodeLength)
		}
	case FieldEmail, FieldPassword, FieldConfirmPassword:
	default:
		return fmt.Errorf("wizard: unknown field %q", field)
	}
	r.mu.Lock()
	r.fields[field] = value
	r.mu.Unlock()
	return nil
}

// Submit completes the current phase.
//
// In PhaseEmail a malformed address is rejected without a call. Otherwise a
// code is dispatched and the cooldown starts, unless the cooldown from an
// earlier dispatch to the same address is still running: then the wizard
// returns to PhaseReset without sending again.
func (r *Recovery) Submit(ctx context.Context) error {
	r.mu.Lock()
	if err := r.idleLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	switch r.phase {
	case PhaseEmail:
		return r.submitEmail(ctx)
	case PhaseReset:
		return r.submitReset(ctx)
	default:
		r.mu.Unlock()
		return ErrWrongPhase
	}
}

// submitEmail is entered with mu held.
func (r *Recovery) submitEmail(ctx context.Context) error {
	email := strings.TrimSpace(r.fields[FieldEmail])
	if !ValidEmail(email) {
		r.mu.Unlock()
		return r.reject(apperr.Invalid(FieldEmail, msgInvalidEmail))
	}
	if email == r.sentTo && r.cooldown.Active() {
		r.phase = PhaseReset
		r.mu.Unlock()
		return nil
	}
	if err := r.beginLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	err := r.dispatch(ctx, email)

	r.mu.Lock()
	r.submitting = false
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if err == nil {
		r.phase = PhaseReset
	}
	r.mu.Unlock()
	return err
}

// submitReset is entered with mu held.
func (r *Recovery) submitReset(ctx context.Context) error {
	password, confirm := r.fields[FieldPassword], r.fields[FieldConfirmPassword]
	code := r.fields[FieldOTP]
	var invalid error
	switch {
	case code == "":
		invalid = apperr.Invalid(FieldOTP, msgCodeMissing)
	case password != confirm:
		invalid = apperr.Invalid(FieldConfirmPassword, MsgPasswordMismatch)
	}
	if invalid != nil {
		r.mu.Unlock()
		return r.reject(invalid)
	}
	if err := r.beginLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	req := api.ChangePasswordRequest{Email: r.sentTo, OTP: code, Password: password}
	r.mu.Unlock()

	err := r.remote.ChangePassword(ctx, req)

	r.mu.Lock()
	r.submitting = false
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("password change failed", "email", req.Email, "error", err)
		r.fail(err, MsgRecoveryFailed)
		return fmt.Errorf("change password: %w", err)
	}
	r.phase = PhaseDone
	r.mu.Unlock()

	r.cooldown.Stop()
	r.logger.Info("password changed", "email", req.Email)
	notify.Success(r.notifier, MsgPasswordChanged)
	return nil
}

// Back returns from PhaseReset to PhaseEmail. The cooldown keeps running.
func (r *Recovery) Back() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseReset {
		return ErrWrongPhase
	}
	if r.submitting {
		return ErrBusy
	}
	r.phase = PhaseEmail
	return nil
}

// Resend dispatches a new code to the last address. It is rejected without
// a call while the cooldown runs.
func (r *Recovery) Resend(ctx context.Context) error {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return ErrClosed
	case r.phase != PhaseReset:
		r.mu.Unlock()
		return ErrWrongPhase
	case r.resending:
		r.mu.Unlock()
		return ErrBusy
	case r.cooldown.Active():
		r.mu.Unlock()
		return ErrCooldownActive
	}
	r.resending = true
	email := r.sentTo
	r.mu.Unlock()

	err := r.dispatch(ctx, email)

	r.mu.Lock()
	r.resending = false
	r.mu.Unlock()
	return err
}

// dispatch sends a code to email and restarts the cooldown on success.
func (r *Recovery) dispatch(ctx context.Context, email string) error {
	msg, err := r.remote.ForgotPassword(ctx, email)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("code dispatch failed", "email", email, "error", err)
		r.fail(err, MsgRecoveryFailed)
		return fmt.Errorf("forgot password: %w", err)
	}
	r.sentTo = email
	r.cooldown.Start()
	r.mu.Unlock()

	r.logger.Debug("recovery code sent", "email", email)
	notify.Success(r.notifier, msg)
	return nil
}

// Snapshot returns the wizard state for rendering.
func (r *Recovery) Snapshot() RecoveryState {
	r.mu.Lock()
	st := RecoveryState{
		Phase:      r.phase,
		Fields:     r.fieldsCopyLocked(),
		SentTo:     r.sentTo,
		Submitting: r.submitting,
	}
	r.mu.Unlock()
	st.Cooldown = r.cooldown.State()
	return st
}

// Close discards the wizard and stops the cooldown.
func (r *Recovery) Close() {
	r.close()
}
