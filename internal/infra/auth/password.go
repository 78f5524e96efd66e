package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes new passwords with bcrypt and still verifies the salted
// SHA-256 hashes written by the first version of the CRM.
type Hasher struct {
	Cost int
}

func NewHasher() *Hasher {
	return &Hasher{Cost: bcrypt.DefaultCost}
}

func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks password against a stored hash. needsUpgrade is true when the
// match was against a legacy hash or a bcrypt hash below the current cost.
func (h *Hasher) Verify(password, hash, salt string) (ok bool, needsUpgrade bool) {
	if salt != "" {
		sum := sha256.Sum256([]byte(password + salt))
		legacy := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(legacy), []byte(hash)) == 1 {
			return true, true
		}
		return false, false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, false
	}
	return true, h.needsRehash(hash)
}

func (h *Hasher) needsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.Cost
}
