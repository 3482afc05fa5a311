package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Token formats:
//
//	session: ws_{prefix}_{secret}   e.g. ws_7a9x3k_4f8d...  (6 + 48 hex)
//	reset:   wr_{secret}                                    (48 hex)
const (
	TokenPrefixLen = 6
	TokenSecretLen = 48
)

var (
	// ErrInvalidTokenFormat indicates the token does not match the session format.
	ErrInvalidTokenFormat = errors.New("invalid session token format")

	sessionTokenRegex = regexp.MustCompile(`^ws_([a-f0-9]{6})_([a-f0-9]{48})$`)
	resetTokenRegex   = regexp.MustCompile(`^wr_[a-f0-9]{48}$`)
)

// GeneratedToken contains the parts of a newly issued token.
type GeneratedToken struct {
	Plaintext string // returned to the client once
	Hash      string // SHA-256, stored
	Prefix    string // visible prefix for support and logs
}

// GenerateSessionToken creates a new session bearer token.
func GenerateSessionToken() (*GeneratedToken, error) {
	prefix, err := randomHex(TokenPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(TokenSecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := fmt.Sprintf("ws_%s_%s", prefix, secret)
	return &GeneratedToken{
		Plaintext: plaintext,
		Hash:      HashToken(plaintext),
		Prefix:    prefix,
	}, nil
}

// GenerateResetToken creates a single-use password reset token.
func GenerateResetToken() (*GeneratedToken, error) {
	secret, err := randomHex(TokenSecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	plaintext := "wr_" + secret
	return &GeneratedToken{Plaintext: plaintext, Hash: HashToken(plaintext)}, nil
}

// ParseSessionToken validates the format and returns the visible prefix.
func ParseSessionToken(token string) (string, error) {
	m := sessionTokenRegex.FindStringSubmatch(token)
	if m == nil {
		return "", ErrInvalidTokenFormat
	}
	return m[1], nil
}

// ValidResetToken reports whether token has the reset token format.
func ValidResetToken(token string) bool {
	return resetTokenRegex.MatchString(token)
}

// RandomState returns a URL-safe random string for OAuth state parameters.
func RandomState() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
