package utils

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// PasswordStrength represents the strength level of a secret
type PasswordStrength int

const (
	PasswordWeak PasswordStrength = iota
	PasswordMedium
	PasswordStrong
	PasswordVeryStrong
)

// String returns the string representation of password strength
func (ps PasswordStrength) String() string {
	switch ps {
	case PasswordWeak:
		return "weak"
	case PasswordMedium:
		return "medium"
	case PasswordStrong:
		return "strong"
	case PasswordVeryStrong:
		return "very strong"
	default:
		return "unknown"
	}
}

// PasswordValidationResult represents the result of password validation
type PasswordValidationResult struct {
	Strength    PasswordStrength `json:"strength"`
	Score       int              `json:"score"`
	IsValid     bool             `json:"is_valid"`
	Suggestions []string         `json:"suggestions"`
}

var (
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

var commonPatterns = []string{
	"123456", "password", "qwerty", "admin", "inkcloud", "discord",
	"111111", "000000", "abc123", "changeme",
}

// CheckPasswordStrength scores a secret such as AUTH_KEY or ENCRYPTION_KEY.
func CheckPasswordStrength(password string) PasswordValidationResult {
	result := PasswordValidationResult{
		Suggestions: make([]string, 0),
	}

	switch {
	case len(password) < 8:
		result.Suggestions = append(result.Suggestions, "use at least 8 characters")
	case len(password) >= 12:
		result.Score += 2
	default:
		result.Score++
	}

	checks := []struct {
		pattern    *regexp.Regexp
		score      int
		suggestion string
	}{
		{lowerPattern, 1, "add lowercase letters"},
		{upperPattern, 1, "add uppercase letters"},
		{digitPattern, 1, "add digits"},
		{specialPattern, 2, "add special characters"},
	}
	for _, check := range checks {
		if check.pattern.MatchString(password) {
			result.Score += check.score
		} else {
			result.Suggestions = append(result.Suggestions, check.suggestion)
		}
	}

	if len(password) >= 16 {
		result.Score++
	}

	passwordLower := strings.ToLower(password)
	for _, pattern := range commonPatterns {
		if strings.Contains(passwordLower, pattern) {
			result.Score -= 2
			result.Suggestions = append(result.Suggestions, "avoid common words and sequences")
			break
		}
	}

	switch {
	case result.Score < 3:
		result.Strength = PasswordWeak
	case result.Score < 5:
		result.Strength = PasswordMedium
	case result.Score < 7:
		result.Strength = PasswordStrong
	default:
		result.Strength = PasswordVeryStrong
	}

	result.IsValid = result.Strength >= PasswordMedium && len(password) >= 8
	return result
}

// ValidatePasswordStrength logs a warning when a configured secret is weak. It never blocks startup.
func ValidatePasswordStrength(password, name string) {
	result := CheckPasswordStrength(password)
	if result.IsValid {
		return
	}
	logrus.WithFields(logrus.Fields{
		"setting":     name,
		"strength":    result.Strength.String(),
		"suggestions": strings.Join(result.Suggestions, "; "),
	}).Warn("Configured secret is weak")
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsBcryptHash reports whether s looks like a bcrypt hash ($2a$, $2b$ or $2y$).
func IsBcryptHash(s string) bool {
	return len(s) > 4 && (s[:4] == "$2a$" || s[:4] == "$2b$" || s[:4] == "$2y$")
}

// aesKeySalt is fixed so the same passphrase always yields the same key across restarts.
const aesKeySalt = "inkcloud-settings-encryption"

// DeriveAESKey stretches a passphrase into a 32-byte AES-256 key.
func DeriveAESKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(aesKeySalt), 100_000, 32, sha256.New)
}

// MaskSecret shortens a secret for log output.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return fmt.Sprintf("%s...%s", secret[:4], secret[len(secret)-4:])
}
