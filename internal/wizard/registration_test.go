package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/cooldown"
	"github.com/dreamware/tjsocial/internal/username"
)

func newRegistration(t *testing.T, remote *fakeRemote, opts Options) *Registration {
	t.Helper()
	r := NewRegistration(RegistrationConfig{Options: opts, Remote: remote})
	t.Cleanup(r.Close)
	return r
}

// fillCredentials completes phase 1 with valid values.
func fillCredentials(t *testing.T, r *Registration) {
	t.Helper()
	require.NoError(t, r.Set(FieldName, "jane doe"))
	require.NoError(t, r.Set(FieldEmail, "jane@example.com"))
	require.NoError(t, r.Set(FieldPassword, "correct horse"))
	require.NoError(t, r.Next())
}

// fillProfile completes the phase 2 fields and lets the username check resolve.
func fillProfile(t *testing.T, r *Registration, fake interface{ Advance(time.Duration) }) {
	t.Helper()
	require.NoError(t, r.Set(FieldUsername, "jane"))
	require.NoError(t, r.Set(FieldPhone, "9876543210"))
	require.NoError(t, r.Set(FieldDOB, "2000-05-01"))
	fake.Advance(username.DefaultDelay)
	r.Wait()
	require.Equal(t, username.StatusValid, r.Username().Status)
}

// TestRegistrationEndToEnd walks the whole flow: credentials, profile with a
// confirmed username, one signup call, a locked-out resend, a wrong code that
// keeps the phase and a correct code that completes.
func TestRegistrationEndToEnd(t *testing.T) {
	remote := newFakeRemote()
	opts, fake, rec := testOptions(t)
	var completed []api.User
	r := NewRegistration(RegistrationConfig{
		Options:    opts,
		Remote:     remote,
		OnComplete: func(u api.User) { completed = append(completed, u) },
	})
	defer r.Close()
	ctx := context.Background()

	require.NoError(t, r.Set(FieldName, "  jANE doe"))
	r.BlurName()
	require.NoError(t, r.Set(FieldEmail, "jane@example.com"))
	require.NoError(t, r.Set(FieldPassword, "correct horse"))
	require.NoError(t, r.Submit(ctx))
	assert.Equal(t, PhaseProfile, r.Snapshot().Phase)
	assert.Equal(t, 0, remote.total(), "phase 1 is local only")

	fillProfile(t, r, fake)
	require.NoError(t, r.Submit(ctx))

	require.Equal(t, 1, remote.count("signup"))
	assert.Equal(t, api.SignupRequest{
		Name:        "Jane Doe",
		Username:    "jane",
		PhoneNumber: "9876543210",
		Email:       "jane@example.com",
		Password:    "correct horse",
		DOB:         "2000-05-01",
	}, remote.signups[0])

	st := r.Snapshot()
	assert.Equal(t, PhaseVerify, st.Phase)
	assert.Equal(t, "pending-1", st.PendingID)
	assert.Equal(t, cooldown.State{Remaining: 60, Active: true}, st.Cooldown)
	assert.NotContains(t, st.Fields, FieldPassword)

	// Resend while locked out never reaches the network.
	assert.ErrorIs(t, r.Resend(ctx), ErrCooldownActive)
	assert.Equal(t, 0, remote.count("resend"))

	fake.Advance(60 * time.Second)
	assert.False(t, r.Snapshot().Cooldown.Active)
	require.NoError(t, r.Resend(ctx))
	assert.Equal(t, 1, remote.count("resend:pending-1"))
	assert.Equal(t, 60, r.Snapshot().Cooldown.Remaining)

	// Wrong code: phase and code are kept.
	require.NoError(t, r.Set(FieldOTP, "000 000"))
	err := r.Submit(ctx)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	st = r.Snapshot()
	assert.Equal(t, PhaseVerify, st.Phase)
	assert.Equal(t, "000000", st.Fields[FieldOTP])
	assert.Contains(t, rec.Errors(), MsgCodeInvalid)

	require.NoError(t, r.Set(FieldOTP, "424242"))
	require.NoError(t, r.Submit(ctx))
	st = r.Snapshot()
	assert.Equal(t, PhaseDone, st.Phase)
	require.NotNil(t, st.User)
	assert.Equal(t, "u-1", st.User.ID)
	assert.False(t, st.Cooldown.Active, "completion stops the cooldown")
	assert.Len(t, completed, 1)
	assert.Equal(t, []string{MsgCodeSent, MsgResent, MsgVerified}, rec.Successes())

	assert.ErrorIs(t, r.Submit(ctx), ErrWrongPhase)
}

// TestRegistrationCredentialChecks verifies phase 1 rejects bad input locally.
func TestRegistrationCredentialChecks(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		value  string
		reason string
	}{
		{"bad email", FieldEmail, "jane@", "Not valid Email"},
		{"digits in name", FieldName, "Jane 2", "Name must contain only letters and spaces."},
		{"short name", FieldName, "Al", "Name must be at least 3 characters long."},
		{"short password", FieldPassword, "short", "Not valid Password Min length 8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote()
			opts, _, rec := testOptions(t)
			r := newRegistration(t, remote, opts)

			require.NoError(t, r.Set(FieldName, "Jane Doe"))
			require.NoError(t, r.Set(FieldEmail, "jane@example.com"))
			require.NoError(t, r.Set(FieldPassword, "correct horse"))
			require.NoError(t, r.Set(tt.field, tt.value))

			err := r.Next()
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
			assert.Equal(t, PhaseCredentials, r.Snapshot().Phase)
			assert.Equal(t, []string{tt.reason}, rec.Errors())
			assert.Equal(t, 0, remote.total())
		})
	}
}

// TestRegistrationProfileChecks verifies phase 2 blocks signup until the
// username is confirmed and phone and age are valid.
func TestRegistrationProfileChecks(t *testing.T) {
	t.Run("username not yet confirmed", func(t *testing.T) {
		remote := newFakeRemote()
		opts, _, _ := testOptions(t)
		r := newRegistration(t, remote, opts)
		fillCredentials(t, r)

		require.NoError(t, r.Set(FieldUsername, "jane"))
		require.NoError(t, r.Set(FieldPhone, "9876543210"))
		require.NoError(t, r.Set(FieldDOB, "2000-05-01"))

		err := r.Submit(context.Background())
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, 0, remote.count("signup"))
	})

	t.Run("username taken", func(t *testing.T) {
		remote := newFakeRemote()
		remote.taken["jane"] = true
		opts, fake, _ := testOptions(t)
		r := newRegistration(t, remote, opts)
		fillCredentials(t, r)

		require.NoError(t, r.Set(FieldUsername, "jane"))
		fake.Advance(username.DefaultDelay)
		r.Wait()
		require.NoError(t, r.Set(FieldPhone, "9876543210"))
		require.NoError(t, r.Set(FieldDOB, "2000-05-01"))

		assert.Error(t, r.Submit(context.Background()))
		assert.Equal(t, 0, remote.count("signup"))
	})

	t.Run("too young", func(t *testing.T) {
		remote := newFakeRemote()
		opts, fake, rec := testOptions(t)
		r := newRegistration(t, remote, opts)
		fillCredentials(t, r)
		fillProfile(t, r, fake)
		require.NoError(t, r.Set(FieldDOB, "2015-06-01"))

		assert.Error(t, r.Submit(context.Background()))
		assert.Equal(t, 0, remote.count("signup"))
		assert.Equal(t, []string{"You must be between 13 and 100 years old."}, rec.Errors())
	})

	t.Run("phone too long is refused at input", func(t *testing.T) {
		remote := newFakeRemote()
		opts, _, _ := testOptions(t)
		r := newRegistration(t, remote, opts)
		require.NoError(t, r.Set(FieldPhone, "9876543210"))
		assert.Error(t, r.Set(FieldPhone, "98765432101"))
		assert.Equal(t, "9876543210", r.Snapshot().Fields[FieldPhone])
	})
}

// TestRegistrationSubmitIsSerialized verifies a second submit while signup
// is pending is rejected without a second call.
func TestRegistrationSubmitIsSerialized(t *testing.T) {
	remote := newFakeRemote()
	remote.signupGate = make(chan struct{})
	opts, fake, _ := testOptions(t)
	r := newRegistration(t, remote, opts)
	fillCredentials(t, r)
	fillProfile(t, r, fake)

	errc := make(chan error, 1)
	go func() { errc <- r.Submit(context.Background()) }()
	<-remote.signupStarted

	assert.ErrorIs(t, r.Submit(context.Background()), ErrBusy)
	assert.ErrorIs(t, r.Back(), ErrBusy)
	assert.True(t, r.Snapshot().Submitting)

	close(remote.signupGate)
	require.NoError(t, <-errc)
	assert.Equal(t, 1, remote.count("signup"))
	assert.Equal(t, PhaseVerify, r.Snapshot().Phase)
}

// TestRegistrationSignupConflict verifies a rejected signup keeps phase 2
// and shows the server's reason.
func TestRegistrationSignupConflict(t *testing.T) {
	remote := newFakeRemote()
	remote.signupErr = &apperr.ConflictError{Status: 409, Reason: "Email already registered"}
	opts, fake, rec := testOptions(t)
	r := newRegistration(t, remote, opts)
	fillCredentials(t, r)
	fillProfile(t, r, fake)

	err := r.Submit(context.Background())
	require.Error(t, err)
	st := r.Snapshot()
	assert.Equal(t, PhaseProfile, st.Phase)
	assert.False(t, st.Cooldown.Active)
	assert.Equal(t, []string{"Email already registered"}, rec.Errors())
}

// TestRegistrationBack verifies only phase 2 can go back and fields survive.
func TestRegistrationBack(t *testing.T) {
	remote := newFakeRemote()
	opts, _, _ := testOptions(t)
	r := newRegistration(t, remote, opts)

	assert.ErrorIs(t, r.Back(), ErrWrongPhase)
	fillCredentials(t, r)
	require.NoError(t, r.Back())

	st := r.Snapshot()
	assert.Equal(t, PhaseCredentials, st.Phase)
	assert.Equal(t, "jane@example.com", st.Fields[FieldEmail])
	assert.ErrorIs(t, r.Resend(context.Background()), ErrWrongPhase)
}

func TestRegistrationFieldNormalisation(t *testing.T) {
	remote := newFakeRemote()
	opts, _, _ := testOptions(t)
	r := newRegistration(t, remote, opts)

	require.NoError(t, r.Set(FieldUsername, "ja ne"))
	require.NoError(t, r.Set(FieldOTP, "12 34"))
	assert.Error(t, r.Set(FieldOTP, "1234567"))
	assert.Error(t, r.Set("nickname", "x"))

	st := r.Snapshot()
	assert.Equal(t, "jane", st.Fields[FieldUsername])
	assert.Equal(t, "1234", st.Fields[FieldOTP])
}

// TestRegistrationClose verifies a closed wizard stops its cooldown and
// refuses further submits.
func TestRegistrationClose(t *testing.T) {
	remote := newFakeRemote()
	opts, fake, _ := testOptions(t)
	r := NewRegistration(RegistrationConfig{Options: opts, Remote: remote})
	fillCredentials(t, r)
	fillProfile(t, r, fake)
	require.NoError(t, r.Submit(context.Background()))

	r.Close()
	assert.False(t, r.Snapshot().Cooldown.Active)
	assert.Equal(t, 0, fake.Pending())
	assert.ErrorIs(t, r.Submit(context.Background()), ErrClosed)
}

// TestRegistrationCloseDuringResend verifies a resend that lands after Close
// does not restart the cooldown.
func TestRegistrationCloseDuringResend(t *testing.T) {
	remote := newFakeRemote()
	opts, fake, rec := testOptions(t)
	r := NewRegistration(RegistrationConfig{Options: opts, Remote: remote})
	fillCredentials(t, r)
	fillProfile(t, r, fake)
	require.NoError(t, r.Submit(context.Background()))
	fake.Advance(time.Minute)

	remote.resendGate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- r.Resend(context.Background()) }()
	require.Equal(t, "resend", <-remote.parked)

	r.Close()
	close(remote.resendGate)
	assert.ErrorIs(t, <-done, ErrClosed)
	assert.False(t, r.Snapshot().Cooldown.Active)
	assert.Equal(t, 0, fake.Pending())
	assert.NotContains(t, rec.Successes(), MsgResent)
}
