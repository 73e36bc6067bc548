package wizard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/clock"
	"github.com/dreamware/tjsocial/internal/notify"
)

// fakeRemote implements both remotes and records every call.
type fakeRemote struct {
	mu      sync.Mutex
	calls   []string
	signups []api.SignupRequest
	changes []api.ChangePasswordRequest
	updates []api.UpdateProfileRequest
	taken   map[string]bool
	code    string

	signupErr error
	forgotErr error
	updateErr error

	// signupGate, if set, parks Signup until closed; signupStarted is
	// signalled when the call arrives.
	signupGate    chan struct{}
	signupStarted chan struct{}

	// forgotGate and resendGate park their calls the same way; parked
	// receives the call name once it is waiting.
	forgotGate chan struct{}
	resendGate chan struct{}
	updateGate chan struct{}
	parked     chan string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		taken:         make(map[string]bool),
		code:          "424242",
		signupStarted: make(chan struct{}, 4),
		parked:        make(chan string, 4),
	}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// count returns how many calls started with prefix.
func (f *fakeRemote) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeRemote) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) CheckUsername(ctx context.Context, candidate string) (string, error) {
	f.record("username:" + candidate)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taken[candidate] {
		return candidate + "7", nil
	}
	return candidate, nil
}

func (f *fakeRemote) Signup(ctx context.Context, req api.SignupRequest) (string, error) {
	f.record("signup")
	f.mu.Lock()
	f.signups = append(f.signups, req)
	gate, err := f.signupGate, f.signupErr
	f.mu.Unlock()

	f.signupStarted <- struct{}{}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	return "pending-1", nil
}

func (f *fakeRemote) VerifyOTP(ctx context.Context, pendingID, code string) (api.User, error) {
	f.record("verify:" + pendingID + ":" + code)
	if code != f.code {
		return api.User{}, &apperr.ConflictError{Op: "POST /user/verify-otp", Status: 400}
	}
	return api.User{ID: "u-1", Username: "jane", Email: "jane@example.com", Verified: true}, nil
}

func (f *fakeRemote) ResendOTP(ctx context.Context, pendingID string) error {
	f.record("resend:" + pendingID)
	f.wait("resend", f.resendGate)
	return nil
}

func (f *fakeRemote) ForgotPassword(ctx context.Context, email string) (string, error) {
	f.record("forgot:" + email)
	f.mu.Lock()
	err, gate := f.forgotErr, f.forgotGate
	f.mu.Unlock()
	f.wait("forgot", gate)
	if err != nil {
		return "", err
	}
	return "OTP sent to " + email, nil
}

func (f *fakeRemote) ChangePassword(ctx context.Context, req api.ChangePasswordRequest) error {
	f.record("change")
	f.mu.Lock()
	f.changes = append(f.changes, req)
	f.mu.Unlock()
	if req.OTP != f.code {
		return &apperr.ConflictError{Op: "POST /user/change-password", Status: 400, Reason: "Invalid OTP"}
	}
	return nil
}

func (f *fakeRemote) UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (api.User, error) {
	f.record("update:" + req.Username)
	f.mu.Lock()
	f.updates = append(f.updates, req)
	err, gate := f.updateErr, f.updateGate
	f.mu.Unlock()
	f.wait("update", gate)
	if err != nil {
		return api.User{}, err
	}
	return api.User{
		ID:          "u-1",
		Name:        req.Name,
		Username:    req.Username,
		DOB:         req.DOB + "T00:00:00.000Z",
		Bio:         req.Bio,
		AccountType: req.AccountType,
	}, nil
}

// wait parks the named call on gate, when set.
func (f *fakeRemote) wait(name string, gate chan struct{}) {
	if gate == nil {
		return
	}
	f.parked <- name
	<-gate
}

func testOptions(t *testing.T) (Options, *clock.Fake, *notify.Recorder) {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	rec := &notify.Recorder{}
	return Options{Clock: fake, Notifier: rec}, fake, rec
}
