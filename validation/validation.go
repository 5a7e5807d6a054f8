// Package validation provides form-level input validation. All checks run
// before any network call; failures surface per field.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	MinPasswordLength    = 6
	MinDisplayNameLength = 3
	MinPostLength        = 5
	MaxPostLength        = 500
)

func ValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// Signup validates the sign-up form. The returned map is keyed by field
// name and empty when every field is valid.
func Signup(email, password, displayName string) map[string]string {
	errs := map[string]string{}

	if strings.TrimSpace(email) == "" {
		errs["email"] = "Email is required"
	} else if !ValidEmail(email) {
		errs["email"] = "Please enter a valid email"
	}

	if strings.TrimSpace(password) == "" {
		errs["password"] = "Password is required"
	} else if utf8.RuneCountInString(password) < MinPasswordLength {
		errs["password"] = "Password must be at least 6 characters"
	}

	if strings.TrimSpace(displayName) == "" {
		errs["display_name"] = "Username is required"
	} else if utf8.RuneCountInString(strings.TrimSpace(displayName)) < MinDisplayNameLength {
		errs["display_name"] = "Username must be at least 3 characters"
	}

	return errs
}

// Login validates the login form.
func Login(email, password string) map[string]string {
	errs := map[string]string{}

	if strings.TrimSpace(email) == "" {
		errs["email"] = "Email is required"
	} else if !ValidEmail(email) {
		errs["email"] = "Please enter a valid email"
	}

	if strings.TrimSpace(password) == "" {
		errs["password"] = "Password is required"
	}

	return errs
}

// Post validates post creation input. A post needs non-empty text or an
// image reference, at least one of the two.
func Post(content, imageURI string) map[string]string {
	errs := map[string]string{}
	text := strings.TrimSpace(content)

	if text == "" && imageURI == "" {
		errs["content"] = "Write something or attach an image before posting"
		return errs
	}

	length := utf8.RuneCountInString(text)
	if text != "" && length < MinPostLength {
		errs["content"] = "Post text must be at least 5 characters"
	}
	if length > MaxPostLength {
		errs["content"] = "Post text must be at most 500 characters"
	}

	return errs
}
