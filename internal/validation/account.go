// Package validation checks account fields before they reach the database.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	minUsernameLength = 3
	maxUsernameLength = 150

	maxEmailLength = 254
)

// ValidatePassword accepts 8 to 128 characters that are neither blank nor all digits.
func ValidatePassword(password string) error {
	switch n := utf8.RuneCountInString(password); {
	case n < minPasswordLength:
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	case n > maxPasswordLength:
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLength)
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be blank")
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return errors.New("password cannot be entirely numeric")
	}
	return nil
}

func usernameRune(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-')
}

// ValidateUsername accepts ASCII letters, digits, dots, underscores and hyphens,
// not starting or ending with an underscore or hyphen.
func ValidateUsername(username string) error {
	if n := len(username); n < minUsernameLength || n > maxUsernameLength {
		return fmt.Errorf("username must be %d to %d characters long", minUsernameLength, maxUsernameLength)
	}
	if strings.IndexFunc(username, func(r rune) bool { return !usernameRune(r) }) >= 0 {
		return errors.New("username can only contain letters, numbers, dots, underscores, and hyphens")
	}
	if strings.ContainsAny(username[:1], "_-") || strings.ContainsAny(username[len(username)-1:], "_-") {
		return errors.New("username cannot start or end with underscore or hyphen")
	}
	return nil
}

// ValidateEmail wants a bare addr-spec (no display name) with a dotted domain.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return errors.New("invalid email format")
	}
	_, domain, _ := strings.Cut(email, "@")
	if dot := strings.LastIndexByte(domain, '.'); dot <= 0 || len(domain)-dot-1 < 2 {
		return errors.New("invalid email format")
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
