package utils

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned by NormalizePhone for input that cannot be an
// E.164 number.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone strips formatting characters and returns the number in
// E.164 form ("+" followed by 8 to 15 digits).  A leading "00" international
// prefix is accepted in place of "+".
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	if !strings.HasPrefix(s, "+") {
		return "", ErrInvalidPhone
	}
	var b strings.Builder
	b.WriteByte('+')
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.Len() - 1
	if digits < 8 || digits > 15 || b.String()[1] == '0' {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}
