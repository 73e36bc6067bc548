// Package mockapi is an in-memory stand-in for the TJ Social backend. It
// serves every endpoint the client uses with the same envelope, status
// codes and cookie session, which lets the engine run end to end without
// the real service.
//
// One-time codes are reported through Config.OnCode instead of email.
// Faults can be injected per route to exercise rollbacks and retries.
package mockapi

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/dreamware/tjsocial/internal/api"
)

// Route names, usable with Inject and Hits.
const (
	RouteFeed      = "feed"
	RouteUserPosts = "user-posts"
	RouteMyPosts   = "my-posts"
	RouteDelete    = "delete-post"
	RouteLike      = "like"
	RouteBookmark  = "bookmark"
	RouteFollow    = "follow"
	RouteUsername  = "username"
	RouteSignup    = "signup"
	RouteVerify    = "verify-otp"
	RouteResend    = "resend-otp"
	RouteForgot    = "forgot-password"
	RouteChange    = "change-password"
	RouteLogin     = "login"
	RouteLogout    = "logout"
	RouteMe        = "me"
	RouteUpdate    = "update-profile"
)

const (
	sessionName = "tj_session"
	sessionUser = "user_id"
)

// Config configures a Server. Zero values pick the defaults.
type Config struct {
	Logger     *slog.Logger
	PageSize   int    // Posts per page (default 10)
	BcryptCost int    // Default bcrypt.DefaultCost
	SessionKey []byte // Cookie signing key (default random)

	// Codes generates one-time codes (default six random digits).
	Codes func() string
	// OnCode receives every code the server "emails".
	OnCode func(email, code string)
	// Now is the server's clock (default time.Now).
	Now func() time.Time
}

// Server is the fake backend. Safe for concurrent use.
type Server struct {
	router   *mux.Router
	store    *sessions.CookieStore
	logger   *slog.Logger
	codes    func() string
	onCode   func(email, code string)
	now      func() time.Time
	pageSize int
	cost     int

	mu         sync.Mutex
	users      map[string]*account // by id
	byEmail    map[string]string
	byUsername map[string]string
	byPhone    map[string]string
	pending    map[string]*pendingSignup
	resets     map[string]string // email -> code
	posts      []*post
	likes      map[string]map[string]bool // post -> users
	bookmarks  map[string]map[string]bool // post -> users
	follows    map[string]map[string]bool // user -> followers
	faults     map[string][]int
	hits       map[string]int
}

// New creates an empty server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if len(cfg.SessionKey) == 0 {
		cfg.SessionKey = randomKey()
	}
	if cfg.Codes == nil {
		cfg.Codes = randomCode
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	store := sessions.NewCookieStore(cfg.SessionKey)
	store.Options = &sessions.Options{Path: "/", MaxAge: 7 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode}

	s := &Server{
		store:      store,
		logger:     cfg.Logger,
		codes:      cfg.Codes,
		onCode:     cfg.OnCode,
		now:        cfg.Now,
		pageSize:   cfg.PageSize,
		cost:       cfg.BcryptCost,
		users:      make(map[string]*account),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		byPhone:    make(map[string]string),
		pending:    make(map[string]*pendingSignup),
		resets:     make(map[string]string),
		likes:      make(map[string]map[string]bool),
		bookmarks:  make(map[string]map[string]bool),
		follows:    make(map[string]map[string]bool),
		faults:     make(map[string][]int),
		hits:       make(map[string]int),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.injectFaults)

	r.HandleFunc("/post", s.handleFeed).Methods(http.MethodGet).Name(RouteFeed)
	r.HandleFunc("/post/mine", s.handleMyPosts).Methods(http.MethodGet).Name(RouteMyPosts)
	r.HandleFunc("/post/user/{id}", s.handleUserPosts).Methods(http.MethodGet).Name(RouteUserPosts)
	r.HandleFunc("/post/{id}", s.handleDeletePost).Methods(http.MethodDelete).Name(RouteDelete)
	r.HandleFunc("/like/{id}", s.handleLike).Methods(http.MethodPost).Name(RouteLike)
	r.HandleFunc("/bookmark/{id}", s.handleBookmark).Methods(http.MethodPost).Name(RouteBookmark)
	r.HandleFunc("/follow/{id}", s.handleFollow).Methods(http.MethodPost).Name(RouteFollow)

	r.HandleFunc("/user", s.handleMe).Methods(http.MethodGet).Name(RouteMe)
	u := r.PathPrefix("/user").Subrouter()
	u.HandleFunc("/username", s.handleUsername).Methods(http.MethodPost).Name(RouteUsername)
	u.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost).Name(RouteSignup)
	u.HandleFunc("/verify-otp/{pending}", s.handleVerify).Methods(http.MethodPost).Name(RouteVerify)
	u.HandleFunc("/resend-otp/{pending}", s.handleResend).Methods(http.MethodPost).Name(RouteResend)
	u.HandleFunc("/forgot-password", s.handleForgot).Methods(http.MethodPost).Name(RouteForgot)
	u.HandleFunc("/change-password", s.handleChange).Methods(http.MethodPost).Name(RouteChange)
	u.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	u.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost).Name(RouteLogout)
	u.HandleFunc("/update", s.handleUpdate).Methods(http.MethodPatch).Name(RouteUpdate)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusNotFound, nil, "Route not found")
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Inject makes the next len(statuses) requests to route fail with the
// given statuses, in order.
func (s *Server) Inject(route string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = append(s.faults[route], statuses...)
}

// Hits returns how many requests reached route, failed ones included.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", r.Header.Get(api.RequestIDHeader),
			"duration", time.Since(start))
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		s.mu.Lock()
		s.hits[name]++
		status := 0
		if q := s.faults[name]; len(q) > 0 {
			status, s.faults[name] = q[0], q[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			respond(w, status, nil, "Injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// respond writes the response envelope.
func respond(w http.ResponseWriter, status int, data any, msg string) {
	body, err := api.Response(data, msg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// currentUser returns the id of the session's user, or "".
func (s *Server) currentUser(r *http.Request) string {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	id, _ := sess.Values[sessionUser].(string)
	return id
}

// signIn stores userID in the session cookie.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values[sessionUser] = userID
	return sess.Save(r, w)
}

// signOut expires the session cookie.
func (s *Server) signOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, sessionName)
	delete(sess.Values, sessionUser)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// requireUser writes 401 and returns "" when nobody is signed in.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) string {
	id := s.currentUser(r)
	if id == "" {
		respond(w, http.StatusUnauthorized, nil, "Login required")
		return ""
	}
	s.mu.Lock()
	_, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		respond(w, http.StatusUnauthorized, nil, "Login required")
		return ""
	}
	return id
}

func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		panic(fmt.Sprintf("mockapi: random code: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("mockapi: session key: %v", err))
	}
	return key
}
