// Package session holds the signed-in user for the lifetime of a client.
//
// The session cookie itself lives in the API client's cookie jar; this
// package only remembers who the cookie belongs to so that other flows can
// use it (the profile username check treats the user's own name as valid,
// the recovery wizard pre-fills the email).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/notify"
	"github.com/dreamware/tjsocial/internal/wizard"
)

// Notification texts.
const (
	// MsgLoginFailed is shown when the server rejects credentials without a reason.
	MsgLoginFailed  = "Wrong Credentials Provided"
	MsgSignedOut    = "Signed out successfully"
	MsgLogoutFailed = "Not able to Logout"
)

// Remote is the part of the API a session needs.
type Remote interface {
	Login(ctx context.Context, req api.LoginRequest) (api.User, error)
	CurrentUser(ctx context.Context) (api.User, error)
	Logout(ctx context.Context) error
}

// Session is the current user. Safe for concurrent use.
type Session struct {
	remote   Remote
	notifier notify.Notifier
	logger   *slog.Logger

	mu   sync.RWMutex
	user *api.User
}

// New creates a signed-out session.
func New(remote Remote, notifier notify.Notifier, logger *slog.Logger) *Session {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{remote: remote, notifier: notifier, logger: logger}
}

// Login checks the credentials locally, then signs in.
func (s *Session) Login(ctx context.Context, email, password string) (api.User, error) {
	email = strings.TrimSpace(email)
	var invalid error
	switch {
	case !wizard.ValidEmail(email):
		invalid = apperr.Invalid(wizard.FieldEmail, "Not valid Email")
	case !wizard.ValidPassword(password):
		invalid = apperr.Invalid(wizard.FieldPassword, "Not valid Password Min length 8")
	}
	if invalid != nil {
		notify.Error(s.notifier, apperr.UserMessage(invalid, ""))
		return api.User{}, invalid
	}

	user, err := s.remote.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.logger.Warn("login failed", "email", email, "error", err)
		msg := MsgLoginFailed
		if apperr.IsConflict(err) {
			msg = apperr.UserMessage(err, MsgLoginFailed)
		}
		notify.Error(s.notifier, msg)
		return api.User{}, fmt.Errorf("login: %w", err)
	}
	s.Set(user)
	s.logger.Info("signed in", "user_id", user.ID, "username", user.Username)
	notify.Success(s.notifier, "Welcome "+user.Name)
	return user, nil
}

// Restore asks the server who the existing session cookie belongs to. A
// rejected cookie leaves the session signed out without an error; ok
// reports whether a user was restored.
func (s *Session) Restore(ctx context.Context) (user api.User, ok bool, err error) {
	user, err = s.remote.CurrentUser(ctx)
	if apperr.IsConflict(err) {
		s.Clear()
		s.logger.Debug("no session to restore", "error", err)
		return api.User{}, false, nil
	}
	if err != nil {
		s.logger.Warn("restoring session failed", "error", err)
		return api.User{}, false, fmt.Errorf("restore session: %w", err)
	}
	s.Set(user)
	s.logger.Info("session restored", "user_id", user.ID, "username", user.Username)
	notify.Success(s.notifier, "Welcome "+user.Name)
	return user, true, nil
}

// Logout ends the server session, then forgets the user. A failed call
// keeps the user signed in.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.remote.Logout(ctx); err != nil {
		s.logger.Warn("logout failed", "error", err)
		notify.Error(s.notifier, MsgLogoutFailed)
		return fmt.Errorf("logout: %w", err)
	}
	s.Clear()
	s.logger.Info("signed out")
	notify.Success(s.notifier, MsgSignedOut)
	return nil
}

// Set records user as signed in, e.g. after a completed registration.
func (s *Session) Set(user api.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
}

// Clear signs the user out locally.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// User returns a copy of the signed-in user.
func (s *Session) User() (api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return api.User{}, false
	}
	return *s.user, true
}

// SignedIn reports whether a user is signed in.
func (s *Session) SignedIn() bool {
	_, ok := s.User()
	return ok
}

// Username returns the signed-in user's username, or "".
func (s *Session) Username() string {
	u, _ := s.User()
	return u.Username
}

// Email returns the signed-in user's email, or "".
func (s *Session) Email() string {
	u, _ := s.User()
	return u.Email
}
