package utils

import (
	"bufio"
	"errors"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrWeakPassword = errors.New("password must be at least 8 characters with uppercase, lowercase, and number")

	passwordCharset = regexp.MustCompile(`^[a-zA-Z\d@$!%*?&]{8,}$`)
	hasLower        = regexp.MustCompile(`[a-z]`)
	hasUpper        = regexp.MustCompile(`[A-Z]`)
	hasDigit        = regexp.MustCompile(`\d`)
)

// ValidatePassword requires 8+ allowed characters including a lowercase letter,
// an uppercase letter and a digit.
func ValidatePassword(password string) error {
	if !passwordCharset.MatchString(password) ||
		!hasLower.MatchString(password) ||
		!hasUpper.MatchString(password) ||
		!hasDigit.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeEmail trims and lowercases an address before it is stored or compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordBlacklist holds forbidden passwords, compared case-insensitively.
// A nil blacklist forbids nothing.
type PasswordBlacklist map[string]struct{}

// ReadPasswordBlacklist reads one password per line. Blank lines and lines
// starting with # are skipped.
func ReadPasswordBlacklist(r io.Reader) (PasswordBlacklist, error) {
	list := PasswordBlacklist{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func LoadPasswordBlacklist(path string) (PasswordBlacklist, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadPasswordBlacklist(file)
}

func (b PasswordBlacklist) Contains(password string) bool {
	_, ok := b[strings.ToLower(password)]
	return ok
}
