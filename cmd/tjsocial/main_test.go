package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dreamware/tjsocial/internal/api"
	"github.com/dreamware/tjsocial/internal/apperr"
	"github.com/dreamware/tjsocial/internal/feed"
	"github.com/dreamware/tjsocial/internal/mockapi"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newBackend(t *testing.T) (*mockapi.Server, string) {
	t.Helper()
	backend := mockapi.New(mockapi.Config{
		Logger:     quiet,
		BcryptCost: bcrypt.MinCost,
		Codes:      func() string { return "123456" },
	})
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv.URL
}

// runCLI runs one invocation against url and returns what it printed.
func runCLI(t *testing.T, url, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-env", "", "-api", url, "-log-level", "error"}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func seedJane(t *testing.T, backend *mockapi.Server) api.User {
	t.Helper()
	u, err := backend.SeedUser("Jane", "jane", "jane@example.com", "password1")
	require.NoError(t, err)
	return u
}

// TestRunUsage verifies bare and unknown invocations.
func TestRunUsage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), nil, strings.NewReader(""), &out, io.Discard))
	assert.Contains(t, out.String(), "Usage:")

	err := run(context.Background(), []string{"explode"}, strings.NewReader(""), io.Discard, io.Discard)
	assert.ErrorContains(t, err, `unknown command "explode"`)
}

// TestFeedCommand loads two pages and prints them oldest first.
func TestFeedCommand(t *testing.T) {
	backend, url := newBackend(t)
	jane := seedJane(t, backend)
	start := time.Now().Add(-time.Hour)
	for i := range 12 {
		backend.SeedPost(jane.ID, mockapi.PostSeed{
			Description: fmt.Sprintf("post %d", i),
			CreatedAt:   start.Add(time.Duration(i) * time.Minute),
		})
	}

	out, err := runCLI(t, url, "", "feed", "-pages", "2", "-sort", "oldest")
	require.NoError(t, err)
	assert.Contains(t, out, "== Oldest (12 posts) ==")
	assert.Contains(t, out, "-- end of feed --")
	first, last := strings.Index(out, "  post 0\n"), strings.Index(out, "  post 11\n")
	require.True(t, first >= 0 && last >= 0, out)
	assert.Less(t, first, last)

	out, err = runCLI(t, url, "", "feed", "-sort", "recent")
	require.NoError(t, err)
	assert.Contains(t, out, "== Most Recent (10 posts) ==")
	assert.NotContains(t, out, "end of feed")
}

// TestFeedCommandFlags covers flag validation.
func TestFeedCommandFlags(t *testing.T) {
	_, url := newBackend(t)

	_, err := runCLI(t, url, "", "feed", "-mine")
	assert.ErrorIs(t, err, errLoginRequired)

	_, err = runCLI(t, url, "", "feed", "-mine", "-user", "u1")
	assert.ErrorContains(t, err, "exclusive")

	_, err = runCLI(t, url, "", "feed", "-sort", "loudest")
	assert.ErrorContains(t, err, "unknown sort key")
}

// TestLikeCommand toggles a like on a post found in the home feed.
func TestLikeCommand(t *testing.T) {
	backend, url := newBackend(t)
	jane := seedJane(t, backend)
	id := backend.SeedPost(jane.ID, mockapi.PostSeed{Description: "hello"})
	login := []string{"-email", "jane@example.com", "-password", "password1"}

	out, err := runCLI(t, url, "", append(login, "like", id)...)
	require.NoError(t, err)
	assert.Contains(t, out, "+ Welcome Jane")
	assert.Contains(t, out, "+ Post Liked")
	assert.Contains(t, out, "1 like · 0 comments · liked")

	out, err = runCLI(t, url, "", append(login, "bookmark", id)...)
	require.NoError(t, err)
	assert.Contains(t, out, "+ Post Bookmarked")
	assert.Contains(t, out, "· liked · bookmarked")

	_, err = runCLI(t, url, "", append(login, "like", "missing")...)
	assert.ErrorContains(t, err, "not in the first 3 pages")

	_, err = runCLI(t, url, "", "like", id)
	assert.ErrorIs(t, err, errLoginRequired)
}

// TestFollowCommand follows and unfollows; the second run's prediction is
// corrected by the server.
func TestFollowCommand(t *testing.T) {
	backend, url := newBackend(t)
	jane := seedJane(t, backend)
	_, err := backend.SeedUser("Bob", "bob", "bob@example.com", "password2")
	require.NoError(t, err)
	login := []string{"-email", "bob@example.com", "-password", "password2"}

	out, err := runCLI(t, url, "", append(login, "follow", jane.ID)...)
	require.NoError(t, err)
	assert.Contains(t, out, "+ Followed")
	assert.Contains(t, out, "following "+jane.ID+": true")

	out, err = runCLI(t, url, "", append(login, "follow", jane.ID)...)
	require.NoError(t, err)
	assert.Contains(t, out, "+ Unfollowed")
	assert.Contains(t, out, "following "+jane.ID+": false")
}

// TestLoginCommand covers local rejection and a successful sign-in.
func TestLoginCommand(t *testing.T) {
	backend, url := newBackend(t)
	seedJane(t, backend)

	out, err := runCLI(t, url, "", "login", "-email", "jane@example.com", "-password", "short")
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, out, "! Not valid Password Min length 8")
	assert.Equal(t, 0, backend.Hits(mockapi.RouteLogin))

	out, err = runCLI(t, url, "jane@example.com\npassword1\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Jane (@jane) · 0 followers · 0 following")

	out, err = runCLI(t, url, "", "login", "-email", "jane@example.com", "-password", "password9")
	assert.True(t, apperr.IsConflict(err))
	assert.Contains(t, out, "! Wrong Credentials Provided")
}

// TestSignupCommand walks the registration prompts, including a short
// username and a wrong code.
func TestSignupCommand(t *testing.T) {
	t.Setenv("TJ_USERNAME_DEBOUNCE", "10ms")
	backend, url := newBackend(t)

	answers := strings.Join([]string{
		"jane doe", "jane@example.com", "password1",
		"ja",
		"jane_doe", "9876543210", "1999-12-31",
		"resend",
		"000000",
		"123456",
	}, "\n") + "\n"
	out, err := runCLI(t, url, answers, "signup")
	require.NoError(t, err, out)

	assert.Contains(t, out, `! username "ja" is not available`)
	assert.Contains(t, out, "+ Now Just Verify with OTP")
	assert.Contains(t, out, "! wait 1m0s before requesting another code")
	assert.Contains(t, out, "! OTP is Not Valid")
	assert.Contains(t, out, "+ OTP Verified Welcome")
	assert.Contains(t, out, "Signed in as Jane Doe (@jane_doe)")
	assert.Equal(t, 1, backend.Hits(mockapi.RouteSignup))
	assert.Equal(t, 0, backend.Hits(mockapi.RouteResend))

	out, err = runCLI(t, url, "", "login", "-email", "jane@example.com", "-password", "password1")
	require.NoError(t, err)
	assert.Contains(t, out, "@jane_doe")
}

// TestSignupRunsOutOfInput verifies a closed stdin ends the wizard.
func TestSignupRunsOutOfInput(t *testing.T) {
	_, url := newBackend(t)
	_, err := runCLI(t, url, "jane doe\n", "signup")
	assert.ErrorIs(t, err, errNoInput)
}

// TestRecoverCommand resets a password and signs in with it.
func TestRecoverCommand(t *testing.T) {
	backend, url := newBackend(t)
	seedJane(t, backend)

	answers := "jane@\njane@example.com\n123456\nnew password\nnew password\n"
	out, err := runCLI(t, url, answers, "recover")
	require.NoError(t, err, out)
	assert.Contains(t, out, "! Not valid Email")
	assert.Contains(t, out, "+ OTP sent to jane@example.com")
	assert.Contains(t, out, "+ Password Changed Successfully")
	assert.Equal(t, 1, backend.Hits(mockapi.RouteForgot))

	_, err = runCLI(t, url, "", "login", "-email", "jane@example.com", "-password", "new password")
	assert.NoError(t, err)
}

// TestProfileCommand renames the user after one refused username.
func TestProfileCommand(t *testing.T) {
	t.Setenv("TJ_USERNAME_DEBOUNCE", "10ms")
	backend, url := newBackend(t)
	seedJane(t, backend)
	_, err := backend.SeedUser("Bob", "bob", "bob@example.com", "password2")
	require.NoError(t, err)
	login := []string{"-email", "jane@example.com", "-password", "password1"}

	answers := strings.Join([]string{
		"", "bob",
		"", "jane_doe", "2000-05-01", "hi there", "",
	}, "\n") + "\n"
	out, err := runCLI(t, url, answers, append(login, "profile")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, `! username "bob" is not available`)
	assert.Contains(t, out, "Username [jane]: ")
	assert.Contains(t, out, "+ Account Updated Successfully")
	assert.Contains(t, out, "Signed in as Jane (@jane_doe)")
	assert.Equal(t, 1, backend.Hits(mockapi.RouteUpdate))

	out, err = runCLI(t, url, "", append(login, "whoami")...)
	require.NoError(t, err)
	assert.Contains(t, out, "@jane_doe")
}

// TestWhoamiAndLogout covers both session commands.
func TestWhoamiAndLogout(t *testing.T) {
	backend, url := newBackend(t)
	seedJane(t, backend)
	login := []string{"-email", "jane@example.com", "-password", "password1"}

	out, err := runCLI(t, url, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	out, err = runCLI(t, url, "", append(login, "whoami")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Jane (@jane)")

	out, err = runCLI(t, url, "", append(login, "logout")...)
	require.NoError(t, err)
	assert.Contains(t, out, "+ Signed out successfully")
	assert.Equal(t, 1, backend.Hits(mockapi.RouteLogout))

	_, err = runCLI(t, url, "", "logout")
	assert.ErrorIs(t, err, errLoginRequired)
}

// TestFormatItem checks the humanized rendering of one post.
func TestFormatItem(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	it := feed.Item{
		ID:           "p1",
		Author:       feed.Author{Name: "Jane", Username: "jane"},
		Description:  "hello",
		Hashtags:     []string{"go", "tj"},
		Images:       []string{"a.png"},
		LikeCount:    1204,
		CommentCount: 1,
		Liked:        true,
		CreatedAt:    now.Add(-3 * time.Hour),
	}
	want := "Jane (@jane) · 3 hours ago\n" +
		"  hello\n" +
		"  #go #tj\n" +
		"  [1 image]\n" +
		"  1,204 likes · 1 comment · liked\n" +
		"  id p1\n"
	assert.Equal(t, want, formatItem(it, now))
}

// TestCount tests pluralised counts
func TestCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 likes"},
		{1, "1 like"},
		{2, "2 likes"},
		{1204, "1,204 likes"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, count(tt.n, "like"))
		})
	}
}
