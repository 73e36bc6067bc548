// Command tjsocial is a headless TJ Social client. It drives the feed
// paginator, the interaction toggles and the registration and recovery
// wizards against a live API (or cmd/mockapi) and prints what a view would
// render.
//
// Commands:
//
//	feed [-user ID | -mine] [-sort KEY] [-pages N]   Print a feed
//	like POST_ID                                     Toggle a like
//	bookmark POST_ID                                 Toggle a bookmark
//	follow USER_ID                                   Toggle a follow
//	login [-email E] [-password P]                   Check credentials
//	signup                                           Register (prompts on stdin)
//	recover                                          Reset a password (prompts on stdin)
//	profile                                          Edit your profile (prompts on stdin)
//	whoami                                           Show who the session belongs to
//	logout                                           End the session
//
// The session cookie lives only as long as the process, so commands that
// need a signed-in user take -email and -password (or TJ_EMAIL and
// TJ_PASSWORD) and sign in first.
//
// Configuration is read from -config (YAML), the -env dotenv file and TJ_*
// variables; see internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// logFatal is a variable so tests can intercept fatal errors.
var logFatal = log.Fatalf

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logFatal("tjsocial: %v", err)
	}
}

// globals are the flags accepted before the command name.
type globals struct {
	config   string
	envFile  string
	apiURL   string
	logLevel string
	email    string
	password string
}

func parseGlobals(args []string, stderr io.Writer) (globals, []string, error) {
	var g globals
	fs := flag.NewFlagSet("tjsocial", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.config, "config", "", "YAML config file")
	fs.StringVar(&g.envFile, "env", ".env", "dotenv file loaded before TJ_* variables")
	fs.StringVar(&g.apiURL, "api", "", "API base URL (overrides config)")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level (overrides config)")
	fs.StringVar(&g.email, "email", "", "Sign in as this user first (default $TJ_EMAIL)")
	fs.StringVar(&g.password, "password", "", "Password for -email (default $TJ_PASSWORD)")
	fs.Usage = func() {
		printUsage(stderr)
		fmt.Fprintln(stderr, "Global flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return g, nil, err
	}
	return g, fs.Args(), nil
}

// run executes one command. It is main without the process exit.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	g, rest, err := parseGlobals(args, stderr)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		printUsage(stdout)
		return nil
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	case "feed", "like", "bookmark", "follow", "login", "signup", "recover", "profile", "whoami", "logout":
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}

	a, err := newApp(g, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	switch cmd {
	case "feed":
		return a.feed(ctx, cmdArgs)
	case "like":
		return a.toggle(ctx, likeCommand, cmdArgs)
	case "bookmark":
		return a.toggle(ctx, bookmarkCommand, cmdArgs)
	case "follow":
		return a.follow(ctx, cmdArgs)
	case "login":
		return a.login(ctx, cmdArgs)
	case "signup":
		return a.signup(ctx)
	case "profile":
		return a.profile(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "logout":
		return a.logout(ctx)
	default:
		return a.recover(ctx)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tjsocial [global flags] <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  feed [-user ID | -mine] [-sort KEY] [-pages N]")
	fmt.Fprintln(w, "  like POST_ID")
	fmt.Fprintln(w, "  bookmark POST_ID")
	fmt.Fprintln(w, "  follow USER_ID")
	fmt.Fprintln(w, "  login [-email E] [-password P]")
	fmt.Fprintln(w, "  signup")
	fmt.Fprintln(w, "  recover")
	fmt.Fprintln(w, "  profile")
	fmt.Fprintln(w, "  whoami")
	fmt.Fprintln(w, "  logout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sort keys: recent, oldest, likes, comments")
	fmt.Fprintln(w)
}
