package reward

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// tokenPrefix brands every progress token handed to a student.
const tokenPrefix = "YH-"

// tokenAlphabet is the uppercase alphanumeric body of a token.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// tokenBodyLength is the number of random characters after the prefix.
const tokenBodyLength = 8

// MintToken returns an opaque progress token of the form "YH-XXXXXXXX" where
// each X is an uppercase letter or digit drawn from crypto/rand.
func MintToken() (string, error) {
	buf := make([]byte, tokenBodyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return tokenPrefix + string(buf), nil
}

// manualKey builds a record key for a manual adjustment. The "manual_" prefix
// keeps these out of the objective-key namespace, and the uuid suffix keeps
// same-second adjustments distinct.
func manualKey(now time.Time) string {
	return fmt.Sprintf("manual_%d_%s", now.Unix(), uuid.NewString()[:8])
}
