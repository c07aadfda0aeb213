package helpers

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ClampCost keeps a configured work factor inside bcrypt's accepted range.
func ClampCost(cost int) int {
	if cost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		return bcrypt.MaxCost
	}
	return cost
}

// HashPassword hashes the plain text password using bcrypt with the given cost
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), ClampCost(cost))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password.
// Malformed hashes simply do not match.
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// DummyHash returns a fixed bcrypt hash at DefaultCost. Login compares against it
// when the email is unknown so both failure paths cost one bcrypt comparison.
func DummyHash() string {
	dummyOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
		if err == nil {
			dummyHash = string(b)
		}
	})
	return dummyHash
}
