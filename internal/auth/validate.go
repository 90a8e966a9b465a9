package auth

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// FieldError reports an invalid sign-in or registration field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// UserMessage is the text shown next to the field.
func (e *FieldError) UserMessage() string { return e.Message }

// ValidateLogin checks sign-in fields before they are sent.
func ValidateLogin(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return &FieldError{Field: "password", Message: "Password is required"}
	}
	return nil
}

// ValidateRegistration checks account fields before they are sent.
func ValidateRegistration(username, email, password string) error {
	if len(strings.TrimSpace(username)) < minUsernameLen {
		return &FieldError{Field: "username", Message: fmt.Sprintf("Username must be at least %d characters", minUsernameLen)}
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return &FieldError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLen)}
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return &FieldError{Field: "email", Message: "Invalid email address"}
	}
	return nil
}
