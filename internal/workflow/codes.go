package workflow

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// generateCode returns a uniform random 6-digit verification code,
// zero-padded. Codes are scoped to their inspection and are not checked
// for collisions against other open codes.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %v", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// newReference returns a globally unique opaque payment reference.
func newReference() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate payment reference: %v", err)
	}
	return hex.EncodeToString(buf), nil
}
