package validation

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmailRequired    = errors.New("email address is required")
	ErrEmailTooLong     = errors.New("email address is too long (max 254 characters)")
	ErrEmailInvalid     = errors.New("invalid email address format")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrPasswordTooLong  = errors.New("password must not exceed 72 bytes")
	ErrPasswordCommon   = errors.New("password is too common, please choose a stronger one")
	ErrNameRequired     = errors.New("name is required")
	ErrNameTooLong      = errors.New("name is too long (max 100 characters)")
)

const (
	maxEmailLength    = 254
	minPasswordLength = 12
	maxPasswordBytes  = 72 // bcrypt ignores everything after this
	maxNameLength     = 100
)

var commonPasswordFragments = []string{
	"password", "123456", "qwerty", "admin", "letmein",
	"welcome", "monkey", "dragon", "master", "sunshine",
}

// ValidateEmail checks an address against RFC 5322 as parsed by net/mail.
// Display names ("Ada <ada@example.com>") are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > maxEmailLength {
		return ErrEmailTooLong
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}

	lower := strings.ToLower(password)
	for _, fragment := range commonPasswordFragments {
		if strings.Contains(lower, fragment) {
			return ErrPasswordCommon
		}
	}
	return nil
}

func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}
