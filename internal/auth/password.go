package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with the configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value. A mismatch
// is reported as false, never as an error to the caller.
func ComparePassword(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// PasswordStrength is the outcome of the strength policy check. Errors
// lists every violated rule so callers can display the complete set.
type PasswordStrength struct {
	IsValid bool
	Errors  []string
}

// ValidatePasswordStrength enforces the password policy: at least 8
// characters, one uppercase letter, one lowercase letter, and one digit.
func ValidatePasswordStrength(password string) PasswordStrength {
	var errs []string

	if len(password) < 8 {
		errs = append(errs, "password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		errs = append(errs, "password must contain at least 1 uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "password must contain at least 1 lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "password must contain at least 1 number")
	}

	return PasswordStrength{IsValid: len(errs) == 0, Errors: errs}
}
