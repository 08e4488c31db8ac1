package order

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// codeLetters excludes the ambiguous I and O.
const codeLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"

// NewOrderCode generates a human-shareable order code of the form
// LLL-DDDDDD. Uniqueness is enforced by the store; callers retry on
// collision.
func NewOrderCode() (string, error) {
	letters := make([]byte, 3)
	for i := range letters {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeLetters))))
		if err != nil {
			return "", fmt.Errorf("generate order code: %w", err)
		}
		letters[i] = codeLetters[n.Int64()]
	}

	digits, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate order code: %w", err)
	}

	return fmt.Sprintf("%s-%06d", letters, digits.Int64()), nil
}

// NewReleaseToken generates the opaque capability credential permitting a
// buyer-initiated release. It is created once per order and never rotated.
func NewReleaseToken() string {
	return uuid.NewString()
}
