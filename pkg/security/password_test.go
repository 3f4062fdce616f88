package security_test

import (
	"testing"

	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/security"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{BcryptCost: bcrypt.MinCost}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" || hash == "very-secure-password" {
		t.Fatalf("HashPassword returned unexpected value %q", hash)
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPasswordUsesConfiguredCost(t *testing.T) {
	hash, err := security.HashPassword("pw123456", config.PasswordConfig{BcryptCost: 5})
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost: %v", err)
	}
	if cost != 5 {
		t.Fatalf("expected cost 5, got %d", cost)
	}
}

func TestHashPasswordRejectsBadInput(t *testing.T) {
	if _, err := security.HashPassword("", config.PasswordConfig{BcryptCost: bcrypt.MinCost}); err == nil {
		t.Fatal("expected error for empty password")
	}
	if _, err := security.HashPassword("pw123456", config.PasswordConfig{BcryptCost: 2}); err == nil {
		t.Fatal("expected error for cost below minimum")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
