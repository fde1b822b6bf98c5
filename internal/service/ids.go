package service

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/rand"
)

// generateCode draws a uniform 6-digit verification code in
// [100000, 999999].
func generateCode() string {
	return fmt.Sprintf("%d", 100000+rand.Intn(900000))
}

// newResetToken returns 32 random bytes as 64 hex characters.
func newResetToken() string {
	bytes := make([]byte, 32)
	_, _ = cryptorand.Read(bytes)
	return hex.EncodeToString(bytes)
}
