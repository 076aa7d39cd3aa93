package rand

import (
	"crypto/rand"
	"math/big"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()-_=+"

// NewSecret generates a cryptographically secure random string, used as
// the token-signing secret when none is configured. The default length
// is 32 characters; an optional length argument overrides it.
func NewSecret(length ...int) string {
	n := 32
	if len(length) > 0 && length[0] > 0 {
		n = length[0]
	}

	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			panic(err)
		}
		b[i] = charset[num.Int64()]
	}
	return string(b)
}
