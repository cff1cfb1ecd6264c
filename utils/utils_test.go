package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordUsesConfiguredCost(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != BcryptCost {
		t.Errorf("cost = %d, want %d", cost, BcryptCost)
	}
	if !CheckPasswordHash("s3cret-pass", hash) {
		t.Error("CheckPasswordHash() rejected the right password")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("CheckPasswordHash() accepted a wrong password")
	}
}

func TestBurnPasswordCheckRunsFullCompare(t *testing.T) {
	cost, err := bcrypt.Cost([]byte(dummyHash()))
	if err != nil {
		t.Fatalf("dummy hash is not a bcrypt hash: %v", err)
	}
	if cost != BcryptCost {
		t.Errorf("dummy hash cost = %d, want %d", cost, BcryptCost)
	}
	if dummyHash() != dummyHash() {
		t.Error("dummy hash regenerated between calls")
	}
	for _, password := range []string{"", "motdepasse", strings.Repeat("x", 64)} {
		if BurnPasswordCheck(password) {
			t.Errorf("BurnPasswordCheck(%q) = true", password)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateInviteCode()
		if len(code) != inviteCodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		if strings.ToUpper(code) != code {
			t.Fatalf("code %q is not upper case", code)
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("only %d distinct codes out of 100", len(seen))
	}
}

func TestGenerateToken(t *testing.T) {
	a, b := GenerateToken(), GenerateToken()
	if len(a) != 64 || a == b {
		t.Errorf("unexpected tokens %q %q", a, b)
	}
}
