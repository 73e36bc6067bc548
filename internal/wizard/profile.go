package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/notify"
	"github.com/dreamware/tjsocial/internal/username"
)

// PhaseEdit is the profile editor's only phase; it stays there after a save.
const PhaseEdit Phase = 1

// Account types a profile may have.
const (
	AccountPublic  = "public"
	AccountPrivate = "private"
)

// Notification texts of the profile editor.
const (
	MsgProfileUpdated = "Account Updated Successfully"
	MsgProfileFailed  = "Not able to Update Profile"
)

const msgAccountType = "Account type must be public or private"

// ProfileRemote is the part of the API the profile editor needs.
type ProfileRemote interface {
	CheckUsername(ctx context.Context, candidate string) (string, error)
	UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (api.User, error)
}

// ProfileConfig configures a Profile.
type ProfileConfig struct {
	Options
	Remote ProfileRemote

	// User is the signed-in user whose profile is edited. Its username is
	// valid without a lookup.
	User api.User

	UsernameDelay     time.Duration
	UsernameMinLength int

	// OnSaved is called with the user after every successful save.
	OnSaved func(api.User)
}

// ProfileState is a snapshot for rendering.
type ProfileState struct {
	Fields     map[string]string
	Username   username.State
	Submitting bool
	User       api.User
}

// Profile edits the signed-in user's name, username, date of birth, bio
// and account type. Safe for concurrent use.
type Profile struct {
	*flow
	remote  ProfileRemote
	checker *username.Checker
	onSaved func(api.User)

	user api.User // guarded by flow.mu
}

// NewProfile creates an editor pre-filled from cfg.User.
func NewProfile(cfg ProfileConfig) *Profile {
	f := newFlow(cfg.Options, "profile")
	p := &Profile{
		flow:    f,
		remote:  cfg.Remote,
		onSaved: cfg.OnSaved,
		user:    cfg.User,
	}
	p.checker = username.New(username.Config{
		Lookup:    cfg.Remote.CheckUsername,
		Clock:     f.clock,
		Logger:    f.logger,
		Delay:     cfg.UsernameDelay,
		MinLength: cfg.UsernameMinLength,
		Own:       cfg.User.Username,
	})
	p.fillLocked(cfg.User)
	return p
}

// fillLocked copies u into the fields. The username goes through the
// checker, which accepts the user's own name at once.
func (p *Profile) fillLocked(u api.User) {
	p.fields[FieldName] = u.Name
	p.fields[FieldUsername] = p.checker.Input(u.Username)
	p.fields[FieldDOB] = dateOnly(u.DOB)
	p.fields[FieldBio] = u.Bio
	p.fields[FieldAccountType] = u.AccountType
	if p.fields[FieldAccountType] == "" {
		p.fields[FieldAccountType] = AccountPublic
	}
}

// Set updates one field. Usernames lose their spaces and feed the
// availability checker; double spaces in the bio collapse.
func (p *Profile) Set(field, value string) error {
	switch field {
	case FieldUsername:
		value = p.checker.Input(value)
	case FieldBio:
		value = strings.ReplaceAll(value, "  ", " ")
	case FieldDOB, FieldAccountType:
		value = strings.TrimSpace(value)
	case FieldName:
	default:
		return fmt.Errorf("wizard: unknown field %q", field)
	}
	p.mu.Lock()
	p.fields[field] = value
	p.mu.Unlock()
	return nil
}

// BlurName formats the name field as a display name.
func (p *Profile) BlurName() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields[FieldName] = FormatName(p.fields[FieldName])
}

// Submit saves the profile after local checks. On success the saved
// username becomes the user's own for later edits.
func (p *Profile) Submit(ctx context.Context) error {
	p.mu.Lock()
	if err := p.idleLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	if err := p.checkLocked(); err != nil {
		p.mu.Unlock()
		return p.reject(err)
	}
	if err := p.beginLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	req := api.UpdateProfileRequest{
		Name:        strings.TrimSpace(p.fields[FieldName]),
		Username:    strings.TrimSpace(p.fields[FieldUsername]),
		DOB:         p.fields[FieldDOB],
		Bio:         p.fields[FieldBio],
		AccountType: p.fields[FieldAccountType],
	}
	p.mu.Unlock()

	user, err := p.remote.UpdateProfile(ctx, req)

	p.mu.Lock()
	p.submitting = false
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		p.mu.Unlock()
		p.logger.Warn("profile update failed", "error", err)
		p.fail(err, MsgProfileFailed)
		return fmt.Errorf("update profile: %w", err)
	}
	p.user = user
	p.checker.SetOwn(user.Username)
	p.fillLocked(user)
	p.mu.Unlock()

	p.logger.Info("profile updated", "user_id", user.ID, "username", user.Username)
	notify.Success(p.notifier, MsgProfileUpdated)
	if p.onSaved != nil {
		p.onSaved(user)
	}
	return nil
}

// Username returns the availability checker's state.
func (p *Profile) Username() username.State {
	return p.checker.State()
}

// Snapshot returns the editor state for rendering.
func (p *Profile) Snapshot() ProfileState {
	p.mu.Lock()
	st := ProfileState{
		Fields:     p.fieldsCopyLocked(),
		Submitting: p.submitting,
		User:       p.user,
	}
	p.mu.Unlock()
	st.Username = p.checker.State()
	return st
}

// Wait blocks until in-flight username lookups have returned.
func (p *Profile) Wait() {
	p.checker.Wait()
}

// Close discards the editor; a save landing afterwards is ignored.
func (p *Profile) Close() {
	p.close()
	p.checker.Close()
}

func (p *Profile) checkLocked() error {
	st := p.checker.State()
	if st.Status != username.StatusValid || st.Candidate != p.fields[FieldUsername] {
		return apperr.Invalid(FieldUsername, msgUsernameTaken)
	}
	if !ValidDOB(p.fields[FieldDOB], p.clock.Now()) {
		return apperr.Invalid(FieldDOB, msgAgeRange)
	}
	if err := ValidName(p.fields[FieldName]); err != nil {
		return err
	}
	switch p.fields[FieldAccountType] {
	case AccountPublic, AccountPrivate:
	default:
		return apperr.Invalid(FieldAccountType, msgAccountType)
	}
	return nil
}

// dateOnly trims a stored timestamp such as "2000-05-01T00:00:00.000Z" to
// its date.
func dateOnly(s string) string {
	if len(s) > len(time.DateOnly) && s[len(time.DateOnly)] == 'T' {
		return s[:len(time.DateOnly)]
	}
	return s
}
