package validation

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

var (
	ErrFileNameRequired = errors.New("file name is required")
	ErrFileNameTooLong  = errors.New("file name is too long (max 255 characters)")
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrMessageTooLong   = errors.New("message is too long (max 2000 characters)")
)

const (
	maxFileNameLength = 255
	maxMessageLength  = 2000
)

// CleanFileName strips any client supplied directories from a file name.
func CleanFileName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ValidateUpload checks a share upload before anything is stored.
// Exactly maxSize bytes is accepted.
func ValidateUpload(name string, size, maxSize int64) error {
	if name == "" {
		return ErrFileNameRequired
	}
	if utf8.RuneCountInString(name) > maxFileNameLength {
		return ErrFileNameTooLong
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > maxSize {
		return fmt.Errorf("%w: maximum size is %d MB", ErrFileTooLarge, maxSize>>20)
	}
	return nil
}

func ValidateMessage(message string) error {
	if utf8.RuneCountInString(message) > maxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
