package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dreamware/tjsocial/internal/sequence"
)

// TestClassification verifies each predicate recognises wrapped errors of its kind only.
func TestClassification(t *testing.T) {
	validation := fmt.Errorf("phase 1: %w", Invalid("email", "Not valid Email"))
	network := fmt.Errorf("fetch: %w", &NetworkError{Op: "GET /post", Err: errors.New("timeout")})
	conflict := &ConflictError{Op: "POST /user/signup", Status: 409, Reason: "Email already exists"}
	stale := fmt.Errorf("toggle: %w", sequence.ErrStale)

	tests := []struct {
		name                                 string
		err                                  error
		isValidation, isNet, isConf, isStale bool
	}{
		{"validation", validation, true, false, false, false},
		{"network", network, false, true, false, false},
		{"conflict", conflict, false, false, true, false},
		{"stale", stale, false, false, false, true},
		{"plain", errors.New("other"), false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isValidation, IsValidation(tt.err))
			assert.Equal(t, tt.isNet, IsNetwork(tt.err))
			assert.Equal(t, tt.isConf, IsConflict(tt.err))
			assert.Equal(t, tt.isStale, IsStale(tt.err))
		})
	}
}

// TestUserMessage verifies which text reaches a notification.
func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Not valid Email", UserMessage(Invalid("email", "Not valid Email"), "generic"))
	assert.Equal(t, "Username taken", UserMessage(&ConflictError{Status: 409, Reason: "Username taken"}, "generic"))
	assert.Equal(t, "generic", UserMessage(&ConflictError{Status: 400}, "generic"))
	assert.Equal(t, "generic", UserMessage(&NetworkError{Op: "x", Err: errors.New("refused")}, "generic"))
}

// TestErrorStrings verifies messages carry operation and status context.
func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "validation: password: too short", Invalid("password", "too short").Error())
	assert.Equal(t, "validation: mismatch", Invalid("", "mismatch").Error())

	n := &NetworkError{Op: "GET /post", Status: 502, Err: errors.New("bad gateway")}
	assert.Equal(t, "GET /post: http 502: bad gateway", n.Error())
	assert.ErrorContains(t, &ConflictError{Op: "POST /like/1", Status: 404}, "rejected with http 404")
}
