package utils

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the work factor applied to stored credentials when
// no explicit cost is configured.
const DefaultBcryptCost = 12

// HashPassword returns the bcrypt hash of plain using the given cost. A cost
// below bcrypt.MinCost falls back to DefaultBcryptCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
