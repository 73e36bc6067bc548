package wizard

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dreamware/tjsocial/internal/apperr"
)

var (
	emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	dobPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Local validation limits.
const (
	MinNameLength     = 3
	MinPasswordLength = 8
	PhoneDigits       = 10
	OTPLength         = 6
	MinAge            = 13
	MaxAge            = 100
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidPhone reports whether s is exactly ten digits.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ValidName reports whether s holds only letters and spaces and is long
// enough once trimmed.
func ValidName(s string) error {
	if !namePattern.MatchString(s) {
		return apperr.Invalid(FieldName, "Name must contain only letters and spaces.")
	}
	if utf8.RuneCountInString(strings.TrimSpace(s)) < MinNameLength {
		return apperr.Invalid(FieldName, "Name must be at least 3 characters long.")
	}
	return nil
}

// ValidPassword reports whether s is long enough once trimmed.
func ValidPassword(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= MinPasswordLength
}

// ValidDOB reports whether dob is a YYYY-MM-DD date that puts the person's
// age on now's date between MinAge and MaxAge, inclusive.
func ValidDOB(dob string, now time.Time) bool {
	if !dobPattern.MatchString(dob) {
		return false
	}
	born, err := time.Parse(time.DateOnly, dob)
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	youngest := today.AddDate(-MinAge, 0, 0)
	oldest := today.AddDate(-MaxAge, 0, 0)
	return !born.After(youngest) && !born.Before(oldest)
}

// FormatName trims, lower-cases and capitalises each word of a display
// name, as applied when the name field loses focus.
func FormatName(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// NormalizeOTP removes whitespace from an entered code.
func NormalizeOTP(s string) string {
	return strings.Join(strings.Fields(s), "")
}
