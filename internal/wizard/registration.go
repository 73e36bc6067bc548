package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/cooldown"
	"github.com/dreamware/tjsocial/internal/notify"
	"github.com/dreamware/tjsocial/internal/username"
)

// Registration phases.
const (
	PhaseCredentials Phase = 1 // name, email, password
	PhaseProfile     Phase = 2 // username, phone, date of birth
	PhaseVerify      Phase = 3 // one-time code
)

// Notification texts of the registration flow.
const (
	MsgSignupFailed = "Email or Phone Number already exists"
	MsgCodeSent     = "Now Just Verify with OTP"
	MsgCodeInvalid  = "OTP is Not Valid"
	MsgVerified     = "OTP Verified Welcome"
	MsgResent       = "OTP Resent Successfully"
	MsgResendFailed = "Error in Resending OTP"
)

const (
	msgInvalidEmail  = "Not valid Email"
	msgShortPassword = "Not valid Password Min length 8"
	msgUsernameTaken = "Choose a unique Valid Username"
	msgPhoneDigits   = "Phone number must contain exactly 10 digits."
	msgAgeRange      = "You must be between 13 and 100 years old."
	msgCodeMissing   = "Enter the OTP"
	msgCodeLength    = "OTP has 6 characters"
)

// RegistrationRemote is the part of the API a registration needs.
type RegistrationRemote interface {
	CheckUsername(ctx context.Context, candidate string) (string, error)
	Signup(ctx context.Context, req api.SignupRequest) (string, error)
	VerifyOTP(ctx context.Context, pendingID, code string) (api.User, error)
	ResendOTP(ctx context.Context, pendingID string) error
}

// RegistrationConfig configures a Registration.
type RegistrationConfig struct {
	Options
	Remote RegistrationRemote

	// Username checker tuning; zero values pick the checker defaults.
	UsernameDelay     time.Duration
	UsernameMinLength int

	// OnComplete is called once with the verified user.
	OnComplete func(api.User)
}

// RegistrationState is a snapshot for rendering. Passwords are omitted.
type RegistrationState struct {
	Phase      Phase
	Fields     map[string]string
	PendingID  string
	Username   username.State
	Cooldown   cooldown.State
	Submitting bool
	User       *api.User
}

// Registration is the three-phase sign-up wizard. Safe for concurrent use.
type Registration struct {
	*flow
	remote     RegistrationRemote
	checker    *username.Checker
	onComplete func(api.User)

	// Guarded by flow.mu.
	pendingID string
	user      *api.User
}

// NewRegistration creates a wizard in PhaseCredentials with empty fields.
func NewRegistration(cfg RegistrationConfig) *Registration {
	f := newFlow(cfg.Options, "registration")
	r := &Registration{
		flow:       f,
		remote:     cfg.Remote,
		onComplete: cfg.OnComplete,
	}
	r.checker = username.New(username.Config{
		Lookup:    cfg.Remote.CheckUsername,
		Clock:     f.clock,
		Logger:    f.logger,
		Delay:     cfg.UsernameDelay,
		MinLength: cfg.UsernameMinLength,
	})
	return r
}

// Set updates one field. Usernames lose their spaces and feed the
// availability checker; codes lose whitespace. Phone numbers longer than ten
// characters and codes longer than six are rejected and the previous value
// is kept.
func (r *Registration) Set(field, value string) error {
	switch field {
	case FieldUsername:
		value = r.checker.Input(value)
	case FieldPhone:
		if utf8.RuneCountInString(value) > PhoneDigits {
			return apperr.Invalid(field, msgPhoneDigits)
		}
	case FieldOTP:
		value = NormalizeOTP(value)
		if utf8.RuneCountInString(value) > OTPLength {
			return apperr.Invalid(field, msgCodeLength)
		}
	case FieldName, FieldEmail, FieldPassword, FieldDOB:
	default:
		return fmt.Errorf("wizard: unknown field %q", field)
	}
	r.mu.Lock()
	r.fields[field] = value
	r.mu.Unlock()
	return nil
}

// BlurName formats the name field as a display name.
func (r *Registration) BlurName() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[FieldName] = FormatName(r.fields[FieldName])
}

// Next advances from PhaseCredentials to PhaseProfile after local checks.
func (r *Registration) Next() error {
	r.mu.Lock()
	if r.phase != PhaseCredentials {
		r.mu.Unlock()
		return ErrWrongPhase
	}
	err := r.checkCredentialsLocked()
	if err == nil {
		r.phase = PhaseProfile
	}
	r.mu.Unlock()

	if err != nil {
		return r.reject(err)
	}
	r.logger.Debug("registration phase", "phase", PhaseProfile)
	return nil
}

// Back returns from PhaseProfile to PhaseCredentials. Fields are kept.
func (r *Registration) Back() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseProfile {
		return ErrWrongPhase
	}
	if r.submitting {
		return ErrBusy
	}
	r.phase = PhaseCredentials
	return nil
}

// Submit completes the current phase. In PhaseCredentials it is Next; in
// PhaseProfile it begins the registration; in PhaseVerify it sends the code.
func (r *Registration) Submit(ctx context.Context) error {
	r.mu.Lock()
	if err := r.idleLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	switch r.phase {
	case PhaseCredentials:
		r.mu.Unlock()
		return r.Next()
	case PhaseProfile:
		return r.submitProfile(ctx)
	case PhaseVerify:
		return r.submitCode(ctx)
	default:
		r.mu.Unlock()
		return ErrWrongPhase
	}
}

// submitProfile is entered with mu held.
func (r *Registration) submitProfile(ctx context.Context) error {
	if err := r.checkProfileLocked(); err != nil {
		r.mu.Unlock()
		return r.reject(err)
	}
	if err := r.beginLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	req := api.SignupRequest{
		Name:        strings.TrimSpace(r.fields[FieldName]),
		Username:    r.fields[FieldUsername],
		PhoneNumber: r.fields[FieldPhone],
		Email:       strings.TrimSpace(r.fields[FieldEmail]),
		Password:    r.fields[FieldPassword],
		DOB:         r.fields[FieldDOB],
	}
	r.mu.Unlock()

	pendingID, err := r.remote.Signup(ctx, req)

	r.mu.Lock()
	r.submitting = false
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("signup failed", "error", err)
		r.fail(err, MsgSignupFailed)
		return fmt.Errorf("signup: %w", err)
	}
	r.pendingID = pendingID
	r.phase = PhaseVerify
	r.cooldown.Start()
	r.mu.Unlock()

	r.logger.Debug("registration phase", "phase", PhaseVerify, "pending_id", pendingID)
	notify.Success(r.notifier, MsgCodeSent)
	return nil
}

// submitCode is entered with mu held.
func (r *Registration) submitCode(ctx context.Context) error {
	code := r.fields[FieldOTP]
	if code == "" {
		r.mu.Unlock()
		return r.reject(apperr.Invalid(FieldOTP, msgCodeMissing))
	}
	if err := r.beginLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	pendingID := r.pendingID
	r.mu.Unlock()

	user, err := r.remote.VerifyOTP(ctx, pendingID, code)

	r.mu.Lock()
	r.submitting = false
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("code verification failed", "pending_id", pendingID, "error", err)
		r.fail(err, MsgCodeInvalid)
		return fmt.Errorf("verify code: %w", err)
	}
	r.user = &user
	r.phase = PhaseDone
	r.mu.Unlock()

	r.cooldown.Stop()
	r.checker.Close()
	r.logger.Info("registration complete", "user_id", user.ID, "username", user.Username)
	notify.Success(r.notifier, MsgVerified)
	if r.onComplete != nil {
		r.onComplete(user)
	}
	return nil
}

// Resend asks for a new code. It is rejected without a call while the
// cooldown runs; on success the cooldown restarts at full length.
func (r *Registration) Resend(ctx context.Context) error {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return ErrClosed
	case r.phase != PhaseVerify:
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
	pendingID := r.pendingID
	r.mu.Unlock()

	err := r.remote.ResendOTP(ctx, pendingID)

	r.mu.Lock()
	r.resending = false
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("code resend failed", "pending_id", pendingID, "error", err)
		r.fail(err, MsgResendFailed)
		return fmt.Errorf("resend code: %w", err)
	}
	r.cooldown.Start()
	r.mu.Unlock()
	notify.Success(r.notifier, MsgResent)
	return nil
}

// Username returns the availability checker's state.
func (r *Registration) Username() username.State {
	return r.checker.State()
}

// Snapshot returns the wizard state for rendering.
func (r *Registration) Snapshot() RegistrationState {
	r.mu.Lock()
	st := RegistrationState{
		Phase:      r.phase,
		Fields:     r.fieldsCopyLocked(),
		PendingID:  r.pendingID,
		Submitting: r.submitting,
	}
	if r.user != nil {
		u := *r.user
		st.User = &u
	}
	r.mu.Unlock()
	st.Username = r.checker.State()
	st.Cooldown = r.cooldown.State()
	return st
}

// Wait blocks until in-flight username lookups have returned.
func (r *Registration) Wait() {
	r.checker.Wait()
}

// Close discards the wizard: the cooldown stops ticking and answers that
// land afterwards are ignored.
func (r *Registration) Close() {
	r.close()
	r.checker.Close()
}

func (r *Registration) checkCredentialsLocked() error {
	if !ValidEmail(strings.TrimSpace(r.fields[FieldEmail])) {
		return apperr.Invalid(FieldEmail, msgInvalidEmail)
	}
	if err := ValidName(r.fields[FieldName]); err != nil {
		return err
	}
	if !ValidPassword(r.fields[FieldPassword]) {
		return apperr.Invalid(FieldPassword, msgShortPassword)
	}
	return nil
}

// checkProfileLocked also requires the checker to have confirmed the exact
// username that will be sent.
func (r *Registration) checkProfileLocked() error {
	st := r.checker.State()
	if st.Status != username.StatusValid || st.Candidate != r.fields[FieldUsername] {
		return apperr.Invalid(FieldUsername, msgUsernameTaken)
	}
	if !ValidPhone(r.fields[FieldPhone]) {
		return apperr.Invalid(FieldPhone, msgPhoneDigits)
	}
	if !ValidDOB(r.fields[FieldDOB], r.clock.Now()) {
		return apperr.Invalid(FieldDOB, msgAgeRange)
	}
	return nil
}
