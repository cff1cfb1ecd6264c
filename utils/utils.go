package utils

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost задаёт стоимость bcrypt для паролей.
const BcryptCost = 12

const inviteCodeLength = 8

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var dummyHash = sync.OnceValue(func() string {
	hash, _ := HashPassword(GenerateToken())
	return hash
})

// BurnPasswordCheck takes as long as CheckPasswordHash against a stored hash
// and always fails. Used when the account does not exist.
func BurnPasswordCheck(password string) bool {
	_ = CheckPasswordHash(password, dummyHash())
	return false
}

// NormalizeEmail trims and lower-cases an address before any lookup or write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateInviteCode returns a short upper-case code for sharing a competition.
// Uniqueness is enforced by the store; callers retry on collision.
func GenerateInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:inviteCodeLength])
}

// GenerateToken returns an opaque random token for verification links.
func GenerateToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}
