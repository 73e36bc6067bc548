// Package main runs the in-memory TJ Social backend for local development.
//
// The server speaks the same envelope, status codes and cookie session as
// the real API, so cmd/tjsocial can be pointed at it. One-time codes are
// written to the log instead of being emailed.
//
// Configuration:
//   - MOCKAPI_LISTEN: Listen address (default: ":8080")
//   - MOCKAPI_SEED: Create demo accounts and posts (default: "true")
//   - MOCKAPI_LOG_LEVEL: debug, info, warn or error (default: "info")
//   - MOCKAPI_LOG_FORMAT: text or json (default: "text")
//
// Example usage:
//
//	MOCKAPI_LISTEN=:8080 MOCKAPI_LOG_LEVEL=debug ./mockapi
//
//	# Sign in as the demo user and read the feed
//	tjsocial login -email demo@example.com -password password123
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dreamware/tjsocial/internal/logging"
	"github.com/dreamware/tjsocial/internal/mockapi"
)

// logFatal is a variable so tests can intercept fatal errors.
var logFatal = log.Fatalf

// Demo credentials created when seeding.
const (
	demoEmail    = "demo@example.com"
	demoPassword = "password123"
)

func main() {
	logger, err := logging.New(logging.Options{
		Level:  getenv("MOCKAPI_LOG_LEVEL", "info"),
		Format: getenv("MOCKAPI_LOG_FORMAT", "text"),
	})
	if err != nil {
		logFatal("logger: %v", err)
		return
	}
	seed, err := strconv.ParseBool(getenv("MOCKAPI_SEED", "true"))
	if err != nil {
		logFatal("MOCKAPI_SEED: %v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, getenv("MOCKAPI_LISTEN", ":8080"), seed, logger, nil); err != nil {
		logFatal("mockapi: %v", err)
	}
}

// run serves the fake backend on listen until ctx is cancelled, then shuts
// down gracefully. ready, when set, receives the bound address once the
// listener is open.
func run(ctx context.Context, listen string, seed bool, logger *slog.Logger, ready func(addr string)) error {
	backend := mockapi.New(mockapi.Config{Logger: logger})
	if seed {
		if err := seedDemo(backend, time.Now()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           newHandler(backend),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	logger.Info("mockapi listening", "addr", ln.Addr().String(), "seeded", seed)
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("mockapi stopped")
	return nil
}

// newHandler mounts the backend next to a health endpoint.
func newHandler(backend http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", backend)
	return mux
}

// seedDemo creates two accounts and a few pages of posts, the newest at now.
func seedDemo(s *mockapi.Server, now time.Time) error {
	demo, err := s.SeedUser("Demo User", "demo", demoEmail, demoPassword)
	if err != nil {
		return err
	}
	ava, err := s.SeedUser("Ava Stone", "ava.stone", "ava@example.com", "password123")
	if err != nil {
		return err
	}

	authors := []string{demo.ID, ava.ID}
	for i := range 24 {
		s.SeedPost(authors[i%len(authors)], mockapi.PostSeed{
			Description:  fmt.Sprintf("Demo post #%d", i+1),
			Hashtags:     []string{"demo"},
			CreatedAt:    now.Add(-time.Duration(24-i) * time.Hour),
			CommentCount: i % 5,
		})
	}
	return nil
}

// getenv returns the environment variable k, or def when it is unset or
// empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
