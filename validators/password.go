package validators

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrPasswordEmpty    = errors.New("no password provided")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordInvalid  = errors.New("password contains invalid characters")
)

func PasswordValidator(p string) error {
	if strings.TrimSpace(p) == "" {
		return ErrPasswordEmpty
	}

	if !utf8.ValidString(p) || strings.ContainsRune(p, 0) {
		return ErrPasswordInvalid
	}

	n := utf8.RuneCountInString(p)
	if n < 8 {
		return ErrPasswordTooShort
	}

	if n > 255 {
		return ErrPasswordTooLong
	}

	return nil
}
