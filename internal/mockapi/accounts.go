package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/dreamware/tjsocial/internal/api"
)

type account struct {
	user api.User
	hash []byte
}

type pendingSignup struct {
	req  api.SignupRequest
	hash []byte
	code string
}

// SeedUser creates a verified account directly.
func (s *Server) SeedUser(name, username, email, password string) (api.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return api.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return api.User{}, fmt.Errorf("mockapi: email %s already registered", email)
	}
	if _, taken := s.byUsername[username]; taken {
		return api.User{}, fmt.Errorf("mockapi: username %s already taken", username)
	}
	u := api.User{ID: uuid.NewString(), Name: name, Username: username, Email: email, Verified: true}
	s.addAccountLocked(&account{user: u, hash: hash})
	return u, nil
}

func (s *Server) addAccountLocked(a *account) {
	s.users[a.user.ID] = a
	s.byEmail[a.user.Email] = a.user.ID
	s.byUsername[a.user.Username] = a.user.ID
	if a.user.PhoneNumber != "" {
		s.byPhone[a.user.PhoneNumber] = a.user.ID
	}
}

// userLocked returns the account with live follower counts.
func (s *Server) userLocked(id string) api.User {
	a := s.users[id]
	u := a.user
	u.FollowerCount = len(s.follows[id])
	u.FollowingCount = 0
	for _, followers := range s.follows {
		if followers[id] {
			u.FollowingCount++
		}
	}
	return u
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond(w, http.StatusBadRequest, nil, "Invalid request body")
		return false
	}
	return true
}

// normalizeUsername lower-cases and drops characters usernames may not hold.
func normalizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// suggestLocked returns the normalised candidate, or the first free
// numbered variant when it is taken by someone other than self.
func (s *Server) suggestLocked(candidate, self string) string {
	base := normalizeUsername(candidate)
	name := base
	for i := 1; ; i++ {
		owner, taken := s.byUsername[name]
		if !taken || owner == self {
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}

func (s *Server) handleUsername(w http.ResponseWriter, r *http.Request) {
	var req api.UsernameRequest
	if !decode(w, r, &req) {
		return
	}
	self := s.currentUser(r)
	s.mu.Lock()
	suggestion := s.suggestLocked(req.Username, self)
	s.mu.Unlock()
	respond(w, http.StatusOK, suggestion, "")
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		respond(w, http.StatusBadRequest, nil, "All fields are required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		respond(w, http.StatusInternalServerError, nil, "Could not hash password")
		return
	}

	s.mu.Lock()
	_, emailTaken := s.byEmail[req.Email]
	_, phoneTaken := s.byPhone[req.PhoneNumber]
	if emailTaken || (req.PhoneNumber != "" && phoneTaken) {
		s.mu.Unlock()
		respond(w, http.StatusConflict, nil, "Email or Phone Number already exists")
		return
	}
	if s.suggestLocked(req.Username, "") != req.Username {
		s.mu.Unlock()
		respond(w, http.StatusConflict, nil, "Username is not available")
		return
	}
	id := uuid.NewString()
	code := s.codes()
	s.pending[id] = &pendingSignup{req: req, hash: hash, code: code}
	s.mu.Unlock()

	s.sendCode(req.Email, code)
	respond(w, http.StatusCreated, id, "OTP sent to your email")
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyRequest
	if !decode(w, r, &req) {
		return
	}
	pendingID := mux.Vars(r)["pending"]

	s.mu.Lock()
	p, ok := s.pending[pendingID]
	if !ok {
		s.mu.Unlock()
		respond(w, http.StatusNotFound, nil, "Registration not found")
		return
	}
	if req.OTP != p.code {
		s.mu.Unlock()
		respond(w, http.StatusBadRequest, nil, "OTP is Not Valid")
		return
	}
	if _, taken := s.byUsername[p.req.Username]; taken {
		s.mu.Unlock()
		respond(w, http.StatusConflict, nil, "Username is not available")
		return
	}
	delete(s.pending, pendingID)
	u := api.User{
		ID:          uuid.NewString(),
		Name:        p.req.Name,
		Username:    p.req.Username,
		Email:       p.req.Email,
		PhoneNumber: p.req.PhoneNumber,
		DOB:         p.req.DOB,
		AccountType: "public",
		Verified:    true,
	}
	s.addAccountLocked(&account{user: u, hash: p.hash})
	u = s.userLocked(u.ID)
	s.mu.Unlock()

	if err := s.signIn(w, r, u.ID); err != nil {
		respond(w, http.StatusInternalServerError, nil, "Could not start session")
		return
	}
	respond(w, http.StatusOK, u, "OTP Verified")
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	pendingID := mux.Vars(r)["pending"]
	s.mu.Lock()
	p, ok := s.pending[pendingID]
	if !ok {
		s.mu.Unlock()
		respond(w, http.StatusNotFound, nil, "Registration not found")
		return
	}
	p.code = s.codes()
	email, code := p.req.Email, p.code
	s.mu.Unlock()

	s.sendCode(email, code)
	respond(w, http.StatusOK, nil, "OTP Resent")
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	var req api.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	if _, ok := s.byEmail[req.Email]; !ok {
		s.mu.Unlock()
		respond(w, http.StatusNotFound, nil, "User not found")
		return
	}
	code := s.codes()
	s.resets[req.Email] = code
	s.mu.Unlock()

	s.sendCode(req.Email, code)
	respond(w, http.StatusOK, nil, "OTP sent to "+req.Email)
}

func (s *Server) handleChange(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Password == "" {
		respond(w, http.StatusBadRequest, nil, "Password is required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		respond(w, http.StatusInternalServerError, nil, "Could not hash password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.resets[req.Email]
	if !ok || code != req.OTP {
		respond(w, http.StatusBadRequest, nil, "Invalid OTP")
		return
	}
	delete(s.resets, req.Email)
	s.users[s.byEmail[req.Email]].hash = hash
	respond(w, http.StatusOK, nil, "Password Changed")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	id, ok := s.byEmail[req.Email]
	var hash []byte
	if ok {
		hash = s.users[id].hash
	}
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		respond(w, http.StatusUnauthorized, nil, "Wrong Credentials Provided")
		return
	}
	if err := s.signIn(w, r, id); err != nil {
		respond(w, http.StatusInternalServerError, nil, "Could not start session")
		return
	}
	s.mu.Lock()
	u := s.userLocked(id)
	s.mu.Unlock()
	respond(w, http.StatusOK, u, "Logged in")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.requireUser(w, r) == "" {
		return
	}
	if err := s.signOut(w, r); err != nil {
		respond(w, http.StatusInternalServerError, nil, "Could not end session")
		return
	}
	respond(w, http.StatusOK, nil, "Logged out")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := s.requireUser(w, r)
	if id == "" {
		return
	}
	s.mu.Lock()
	u := s.userLocked(id)
	s.mu.Unlock()
	respond(w, http.StatusOK, u, "")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := s.requireUser(w, r)
	if id == "" {
		return
	}
	var req api.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" || req.Username == "" {
		respond(w, http.StatusBadRequest, nil, "Name and username are required")
		return
	}
	switch req.AccountType {
	case "", "public", "private":
	default:
		respond(w, http.StatusBadRequest, nil, "Unknown account type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suggestLocked(req.Username, id) != req.Username {
		respond(w, http.StatusConflict, nil, "Username is not available")
		return
	}
	a := s.users[id]
	if a.user.Username != req.Username {
		delete(s.byUsername, a.user.Username)
		s.byUsername[req.Username] = id
	}
	a.user.Name = req.Name
	a.user.Username = req.Username
	a.user.DOB = req.DOB
	a.user.Bio = req.Bio
	if req.AccountType != "" {
		a.user.AccountType = req.AccountType
	}
	respond(w, http.StatusOK, s.userLocked(id), "Account Updated")
}

func (s *Server) sendCode(email, code string) {
	s.logger.Info("one-time code issued", "email", email, "code", code)
	if s.onCode != nil {
		s.onCode(email, code)
	}
}
