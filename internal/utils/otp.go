package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// OTPLength is the number of digits in a phone login code.
const OTPLength = 6

// NewOTP returns a uniformly random numeric code of OTPLength digits,
// zero-padded.
func NewOTP() (string, error) {
	buf := make([]byte, OTPLength)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// HashOTP returns the SHA-256 hex digest of a code bound to its phone
// number, so a leaked store entry cannot be replayed for another number.
func HashOTP(phone, code string) string {
	sum := sha256.Sum256([]byte(phone + ":" + code))
	return hex.EncodeToString(sum[:])
}
