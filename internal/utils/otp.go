package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTP returns a uniformly random numeric code with exactly n digits,
// leading zeros included.
func GenerateOTP(n int) (string, error) {
	if n <= 0 || n > 18 {
		return "", fmt.Errorf("invalid otp length %d", n)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
