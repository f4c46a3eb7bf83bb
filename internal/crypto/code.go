package crypto

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// NumericCode returns a uniformly distributed decimal code of n digits.
// Leading zeros are kept.
func NumericCode(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}
