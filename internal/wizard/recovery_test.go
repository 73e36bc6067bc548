package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
)

func newRecovery(t *testing.T, remote *fakeRemote, opts Options, email string) *Recovery {
	t.Helper()
	r := NewRecovery(RecoveryConfig{Options: opts, Remote: remote, Email: email})
	t.Cleanup(r.Close)
	return r
}

// TestRecoveryMalformedEmailMakesNoCalls verifies bad addresses never reach
// the network.
func TestRecoveryMalformedEmailMakesNoCalls(t *testing.T) {
	for _, email := range []string{"", "jane", "jane@", "jane@example", "@example.com"} {
		t.Run(email, func(t *testing.T) {
			remote := newFakeRemote()
			opts, _, rec := testOptions(t)
			r := newRecovery(t, remote, opts, "")
			require.NoError(t, r.Set(FieldEmail, email))

			err := r.Submit(context.Background())
			assert.True(t, apperr.IsValidation(err))
			assert.Equal(t, 0, remote.total())
			assert.Equal(t, PhaseEmail, r.Snapshot().Phase)
			assert.Equal(t, []string{"Not valid Email"}, rec.Errors())
		})
	}
}

// TestRecoveryHappyPath verifies the code dispatch, the cooldown and the
// password change request.
func TestRecoveryHappyPath(t *testing.T) {
	remote := newFakeRemote()
	opts, _, rec := testOptions(t)
	r := newRecovery(t, remote, opts, " jane@example.com ")
	ctx := context.Background()

	assert.Equal(t, "jane@example.com", r.Snapshot().Fields[FieldEmail], "email is pre-filled")
	require.NoError(t, r.Submit(ctx))

	st := r.Snapshot()
	assert.Equal(t, PhaseReset, st.Phase)
	assert.Equal(t, "jane@example.com", st.SentTo)
	assert.True(t, st.Cooldown.Active)
	assert.Equal(t, []string{"OTP sent to jane@example.com"}, rec.Successes())

	require.NoError(t, r.Set(FieldOTP, "424242"))
	require.NoError(t, r.Set(FieldPassword, "new secret 1"))
	require.NoError(t, r.Set(FieldConfirmPassword, "new secret 1"))
	require.NoError(t, r.Submit(ctx))

	require.Len(t, remote.changes, 1)
	assert.Equal(t, api.ChangePasswordRequest{Email: "jane@example.com", OTP: "424242", Password: "new secret 1"}, remote.changes[0])
	st = r.Snapshot()
	assert.Equal(t, PhaseDone, st.Phase)
	assert.False(t, st.Cooldown.Active)
	assert.Contains(t, rec.Successes(), MsgPasswordChanged)
}

// TestRecoveryPasswordMismatch verifies confirmation must be byte-equal.
func TestRecoveryPasswordMismatch(t *testing.T) {
	remote := newFakeRemote()
	opts, _, rec := testOptions(t)
	r := newRecovery(t, remote, opts, "jane@example.com")
	require.NoError(t, r.Submit(context.Background()))

	require.NoError(t, r.Set(FieldOTP, "424242"))
	require.NoError(t, r.Set(FieldPassword, "new secret"))
	require.NoError(t, r.Set(FieldConfirmPassword, "new secret "))

	err := r.Submit(context.Background())
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 0, remote.count("change"))
	assert.Equal(t, []string{MsgPasswordMismatch}, rec.Errors())
	assert.Equal(t, PhaseReset, r.Snapshot().Phase)
}

// TestRecoveryWrongCode verifies a rejected change keeps phase 2 and shows
// the server's reason.
func TestRecoveryWrongCode(t *testing.T) {
	remote := newFakeRemote()
	opts, _, rec := testOptions(t)
	r := newRecovery(t, remote, opts, "jane@example.com")
	require.NoError(t, r.Submit(context.Background()))

	require.NoError(t, r.Set(FieldOTP, "111111"))
	require.NoError(t, r.Set(FieldPassword, "new secret"))
	require.NoError(t, r.Set(FieldConfirmPassword, "new secret"))

	assert.True(t, apperr.IsConflict(r.Submit(context.Background())))
	assert.Equal(t, PhaseReset, r.Snapshot().Phase)
	assert.Equal(t, []string{"Invalid OTP"}, rec.Errors())
}

// TestRecoveryBackKeepsCooldown verifies going back neither resets nor
// stops the countdown, and resubmitting the same address does not resend.
func TestRecoveryBackKeepsCooldown(t *testing.T) {
	remote := newFakeRemote()
	opts, fake, _ := testOptions(t)
	r := newRecovery(t, remote, opts, "jane@example.com")
	ctx := context.Background()
	require.NoError(t, r.Submit(ctx))

	fake.Advance(20 * time.Second)
	require.NoError(t, r.Back())
	st := r.Snapshot()
	assert.Equal(t, PhaseEmail, st.Phase)
	assert.Equal(t, 40, st.Cooldown.Remaining)
	assert.True(t, st.Cooldown.Active)

	require.NoError(t, r.Submit(ctx))
	assert.Equal(t, PhaseReset, r.Snapshot().Phase)
	assert.Equal(t, 1, remote.count("forgot:"))
	assert.Equal(t, 40, r.Snapshot().Cooldown.Remaining)

	// A different address is a new dispatch.
	require.NoError(t, r.Back())
	require.NoError(t, r.Set(FieldEmail, "jane.doe@example.com"))
	require.NoError(t, r.Submit(ctx))
	assert.Equal(t, 1, remote.count("forgot:jane.doe@example.com"))
	assert.Equal(t, 60, r.Snapshot().Cooldown.Remaining)
}

// TestRecoveryResend verifies the lockout and the re-dispatch.
func TestRecoveryResend(t *testing.T) {
	remote := newFakeRemote()
	opts, fake, _ := testOptions(t)
	r := newRecovery(t, remote, opts, "jane@example.com")
	ctx := context.Background()

	assert.ErrorIs(t, r.Resend(ctx), ErrWrongPhase)
	require.NoError(t, r.Submit(ctx))

	assert.ErrorIs(t, r.Resend(ctx), ErrCooldownActive)
	assert.Equal(t, 1, remote.count("forgot:"))

	fake.Advance(time.Minute)
	require.NoError(t, r.Resend(ctx))
	assert.Equal(t, 2, remote.count("forgot:jane@example.com"))
	assert.True(t, r.Snapshot().Cooldown.Active)
}

// TestRecoveryDispatchFailure verifies a failed dispatch keeps phase 1 and
// leaves resends unlocked.
func TestRecoveryDispatchFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.forgotErr = &apperr.NetworkError{Op: "POST /user/forgot-password", Status: 502}
	opts, _, rec := testOptions(t)
	r := newRecovery(t, remote, opts, "jane@example.com")

	err := r.Submit(context.Background())
	assert.True(t, apperr.IsNetwork(err))
	st := r.Snapshot()
	assert.Equal(t, PhaseEmail, st.Phase)
	assert.False(t, st.Cooldown.Active)
	assert.Equal(t, []string{MsgRecoveryFailed}, rec.Errors())
}

// TestRecoveryCloseDuringDispatch verifies a dispatch that lands after Close
// neither records the address nor restarts the cooldown.
func TestRecoveryCloseDuringDispatch(t *testing.T) {
	t.Run("submit", func(t *testing.T) {
		remote := newFakeRemote()
		remote.forgotGate = make(chan struct{})
		opts, fake, rec := testOptions(t)
		r := newRecovery(t, remote, opts, "jane@example.com")

		done := make(chan error, 1)
		go func() { done <- r.Submit(context.Background()) }()
		require.Equal(t, "forgot", <-remote.parked)

		r.Close()
		close(remote.forgotGate)
		assert.ErrorIs(t, <-done, ErrClosed)

		st := r.Snapshot()
		assert.False(t, st.Cooldown.Active)
		assert.Empty(t, st.SentTo)
		assert.Equal(t, 0, fake.Pending())
		assert.Empty(t, rec.Successes())
	})

	t.Run("resend", func(t *testing.T) {
		remote := newFakeRemote()
		opts, fake, _ := testOptions(t)
		r := newRecovery(t, remote, opts, "jane@example.com")
		require.NoError(t, r.Submit(context.Background()))
		fake.Advance(time.Minute)

		remote.forgotGate = make(chan struct{})
		done := make(chan error, 1)
		go func() { done <- r.Resend(context.Background()) }()
		require.Equal(t, "forgot", <-remote.parked)

		r.Close()
		close(remote.forgotGate)
		assert.ErrorIs(t, <-done, ErrClosed)
		assert.False(t, r.Snapshot().Cooldown.Active)
		assert.Equal(t, 0, fake.Pending())
	})
}
