// Package otp issues and checks the six digit one-time codes used for email
// verification and second-factor login.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	// Digits is the length of every issued code.
	Digits = 6

	RegistrationTTL = 15 * time.Minute
	LoginTTL        = 10 * time.Minute
)

var (
	ErrInvalidCode = errors.New("invalid code")
	ErrExpiredCode = errors.New("code has expired")
)

var codeSpace = big.NewInt(900000)

// Code is a freshly issued one-time code and the instant it stops being valid.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Generate returns a uniformly random code in [100000, 999999] valid for ttl.
func Generate(now time.Time, ttl time.Duration) (Code, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return Code{}, fmt.Errorf("generate code: %w", err)
	}
	return Code{
		Value:     fmt.Sprintf("%0*d", Digits, 100000+n.Int64()),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Verify checks a submitted code against the stored one. A missing code, a
// submission that is not six digits, or a mismatch yields ErrInvalidCode; a matching code at or past its expiry yields
// ErrExpiredCode.
func Verify(stored *string, expiresAt *time.Time, submitted string, now time.Time) error {
	if stored == nil || *stored == "" || expiresAt == nil {
		return ErrInvalidCode
	}
	submitted = strings.TrimSpace(submitted)
	if !WellFormed(submitted) {
		return ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(*stored), []byte(submitted)) != 1 {
		return ErrInvalidCode
	}
	if !now.Before(*expiresAt) {
		return ErrExpiredCode
	}
	return nil
}

// WellFormed reports whether s is exactly six ASCII digits.
func WellFormed(s string) bool {
	if len(s) != Digits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
