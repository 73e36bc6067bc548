package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/notify"
	"github.com/dreamware/tjsocial/internal/username"
	"github.com/dreamware/tjsocial/internal/wizard"
)

// Answers with a meaning of their own at the code and username prompts.
const (
	answerResend = "resend"
	answerBack   = "back"
)

func (a *app) wizardOptions() wizard.Options {
	return wizard.Options{
		Notifier:        a.notifier,
		Logger:          a.logger,
		CooldownSeconds: a.cfg.OTP.CooldownSeconds,
	}
}

func (a *app) signup(ctx context.Context) error {
	reg := wizard.NewRegistration(wizard.RegistrationConfig{
		Options:           a.wizardOptions(),
		Remote:            a.client,
		UsernameDelay:     a.cfg.Username.Debounce,
		UsernameMinLength: a.cfg.Username.MinLength,
		OnComplete:        a.session.Set,
	})
	defer reg.Close()

	for {
		var err error
		switch reg.Snapshot().Phase {
		case wizard.PhaseCredentials:
			err = a.signupCredentials(reg)
		case wizard.PhaseProfile:
			err = a.signupProfile(ctx, reg)
		case wizard.PhaseVerify:
			err = a.signupCode(ctx, reg)
		default:
			u, _ := a.session.User()
			fmt.Fprint(a.out, formatUser(u))
			return nil
		}
		if err != nil && !recoverable(err) {
			return err
		}
	}
}

func (a *app) signupCredentials(reg *wizard.Registration) error {
	fields := []struct{ label, field string }{
		{"Name", wizard.FieldName},
		{"Email", wizard.FieldEmail},
		{"Password", wizard.FieldPassword},
	}
	for _, f := range fields {
		v, err := a.in.ask(f.label)
		if err != nil {
			return err
		}
		if err := a.set(reg.Set, f.field, v); err != nil {
			return err
		}
	}
	reg.BlurName()
	return reg.Next()
}

func (a *app) signupProfile(ctx context.Context, reg *wizard.Registration) error {
	name, err := a.in.ask(`Username (or "back")`)
	if err != nil {
		return err
	}
	if name == answerBack {
		return reg.Back()
	}
	if err := a.set(reg.Set, wizard.FieldUsername, name); err != nil {
		return err
	}
	if st := awaitUsername(ctx, reg); st.Status != username.StatusValid {
		fmt.Fprintf(a.out, "! username %q is not available\n", st.Candidate)
		return nil
	}

	fields := []struct{ label, field string }{
		{"Phone number", wizard.FieldPhone},
		{"Date of birth (YYYY-MM-DD)", wizard.FieldDOB},
	}
	for _, f := range fields {
		v, err := a.in.ask(f.label)
		if err != nil {
			return err
		}
		if err := a.set(reg.Set, f.field, v); err != nil {
			return err
		}
	}
	return reg.Submit(ctx)
}

func (a *app) signupCode(ctx context.Context, reg *wizard.Registration) error {
	code, err := a.in.ask(`Code (or "resend")`)
	if err != nil {
		return err
	}
	if code == answerResend {
		return a.resend(reg.Resend(ctx), reg.Snapshot().Cooldown.Remaining)
	}
	if err := a.set(reg.Set, wizard.FieldOTP, code); err != nil {
		return err
	}
	return reg.Submit(ctx)
}

// set applies one answer and reports a rejected value.
func (a *app) set(set func(field, value string) error, field, value string) error {
	if err := set(field, value); err != nil {
		notify.Error(a.notifier, apperr.UserMessage(err, err.Error()))
		return err
	}
	return nil
}

// resend reports a refused resend and passes other errors through.
func (a *app) resend(err error, remaining int) error {
	if errors.Is(err, wizard.ErrCooldownActive) {
		fmt.Fprintf(a.out, "! wait %s before requesting another code\n", time.Duration(remaining)*time.Second)
		return nil
	}
	return err
}

// awaitUsername blocks until the availability check settles.
func awaitUsername(ctx context.Context, w interface{ Username() username.State }) username.State {
	tick := time.NewTicker(25 * time.Millisecond)
	defer tick.Stop()
	for {
		st := w.Username()
		if st.Status != username.StatusChecking {
			return st
		}
		select {
		case <-ctx.Done():
			return st
		case <-tick.C:
		}
	}
}

func (a *app) recover(ctx context.Context) error {
	rc := wizard.NewRecovery(wizard.RecoveryConfig{
		Options: a.wizardOptions(),
		Remote:  a.client,
		Email:   a.g.email,
	})
	defer rc.Close()

	for {
		var err error
		switch rc.Snapshot().Phase {
		case wizard.PhaseEmail:
			err = a.recoverEmail(ctx, rc)
		case wizard.PhaseReset:
			err = a.recoverReset(ctx, rc)
		default:
			return nil
		}
		if err != nil && !recoverable(err) {
			return err
		}
	}
}

func (a *app) recoverEmail(ctx context.Context, rc *wizard.Recovery) error {
	email, err := a.in.askDefault("Email", rc.Snapshot().Fields[wizard.FieldEmail])
	if err != nil {
		return err
	}
	if err := a.set(rc.Set, wizard.FieldEmail, email); err != nil {
		return err
	}
	return rc.Submit(ctx)
}

func (a *app) recoverReset(ctx context.Context, rc *wizard.Recovery) error {
	code, err := a.in.ask(`Code (or "resend", "back")`)
	if err != nil {
		return err
	}
	switch strings.ToLower(code) {
	case answerResend:
		return a.resend(rc.Resend(ctx), rc.Snapshot().Cooldown.Remaining)
	case answerBack:
		return rc.Back()
	}

	fields := []struct{ label, field, value string }{
		{"", wizard.FieldOTP, code},
		{"New password", wizard.FieldPassword, ""},
		{"Confirm password", wizard.FieldConfirmPassword, ""},
	}
	for _, f := range fields {
		v := f.value
		if f.label != "" {
			if v, err = a.in.ask(f.label); err != nil {
				return err
			}
		}
		if err := a.set(rc.Set, f.field, v); err != nil {
			return err
		}
	}
	return rc.Submit(ctx)
}

func (a *app) profile(ctx context.Context) error {
	if err := a.signIn(ctx, true); err != nil {
		return err
	}
	u, _ := a.session.User()
	p := wizard.NewProfile(wizard.ProfileConfig{
		Options:           a.wizardOptions(),
		Remote:            a.client,
		User:              u,
		UsernameDelay:     a.cfg.Username.Debounce,
		UsernameMinLength: a.cfg.Username.MinLength,
		OnSaved:           a.session.Set,
	})
	defer p.Close()

	for {
		err := a.editProfile(ctx, p)
		if err == nil {
			saved, _ := a.session.User()
			fmt.Fprint(a.out, formatUser(saved))
			return nil
		}
		if !recoverable(err) {
			return err
		}
	}
}

// editProfile asks for every field, offering the current value, and saves.
func (a *app) editProfile(ctx context.Context, p *wizard.Profile) error {
	fields := []struct{ label, field string }{
		{"Name", wizard.FieldName},
		{"Username", wizard.FieldUsername},
		{"Date of birth (YYYY-MM-DD)", wizard.FieldDOB},
		{"Bio", wizard.FieldBio},
		{"Account type (public or private)", wizard.FieldAccountType},
	}
	for _, f := range fields {
		v, err := a.in.askDefault(f.label, p.Snapshot().Fields[f.field])
		if err != nil {
			return err
		}
		if err := a.set(p.Set, f.field, v); err != nil {
			return err
		}
		switch f.field {
		case wizard.FieldName:
			p.BlurName()
		case wizard.FieldUsername:
			if st := awaitUsername(ctx, p); st.Status != username.StatusValid {
				fmt.Fprintf(a.out, "! username %q is not available\n", st.Candidate)
				return apperr.Invalid(wizard.FieldUsername, "username not available")
			}
		}
	}
	return p.Submit(ctx)
}
