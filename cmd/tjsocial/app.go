package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/config"
	"github.com/dreamware/tjsocial/internal/logging"
	"github.com/dreamware/tjsocial/internal/notify"
	"github.com/dreamware/tjsocial/internal/session"
)

var (
	errNoInput       = errors.New("no more input")
	errLoginRequired = errors.New("this command needs -email and -password (or TJ_EMAIL and TJ_PASSWORD)")
)

// app is the state shared by every command of one invocation.
type app struct {
	g        globals
	cfg      config.Config
	client   *api.Client
	session  *session.Session
	logger   *slog.Logger
	notifier notify.Notifier
	in       *prompter
	out      io.Writer
	now      func() time.Time
}

func newApp(g globals, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(g.config, g.envFile)
	if err != nil {
		return nil, err
	}
	if g.apiURL != "" {
		cfg.API.URL = g.apiURL
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Read after config.Load so the dotenv file can provide them.
	if g.email == "" {
		g.email = os.Getenv("TJ_EMAIL")
	}
	if g.password == "" {
		g.password = os.Getenv("TJ_PASSWORD")
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: stderr})
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Config{
		BaseURL:   cfg.API.URL,
		Timeout:   cfg.API.Timeout,
		Retries:   cfg.API.Retries,
		RetryBase: cfg.API.RetryBase,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	notifier := printer(stdout)
	return &app{
		g:        g,
		cfg:      cfg,
		client:   client,
		session:  session.New(client, notifier, logger),
		logger:   logger,
		notifier: notifier,
		in:       &prompter{sc: bufio.NewScanner(stdin), out: stdout},
		out:      stdout,
		now:      time.Now,
	}, nil
}

// signIn logs in with the global credentials. With required unset, missing
// credentials are not an error and the command runs signed out.
func (a *app) signIn(ctx context.Context, required bool) error {
	if a.g.email == "" {
		if required {
			return errLoginRequired
		}
		return nil
	}
	if _, err := a.session.Login(ctx, a.g.email, a.g.password); err != nil {
		return err
	}
	return nil
}

// printer renders notifications as one line each.
func printer(w io.Writer) notify.Notifier {
	var mu sync.Mutex
	return notify.Func(func(n notify.Notification) {
		mark := "*"
		switch n.Level {
		case notify.LevelSuccess:
			mark = "+"
		case notify.LevelError:
			mark = "!"
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s %s\n", mark, n.Message)
	})
}

// prompter reads one answer per line.
type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.sc.Scan() {
		fmt.Fprintln(p.out)
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", errNoInput
	}
	return strings.TrimSpace(p.sc.Text()), nil
}

// askDefault is ask with a value used for an empty answer.
func (p *prompter) askDefault(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	v, err := p.ask(label)
	if err != nil || v != "" {
		return v, err
	}
	return def, nil
}

// recoverable reports whether a wizard step failed in a way the user can
// fix by answering again.
func recoverable(err error) bool {
	return apperr.IsValidation(err) || apperr.IsConflict(err)
}
