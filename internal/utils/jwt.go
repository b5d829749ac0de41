package utils // package utils provides helpers for credentials, hashing and codes

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential is returned when a credential fails signature,
// algorithm or claim checks, including expiry.
var ErrInvalidCredential = errors.New("invalid credential")

// Credential is a signed HS256 JWT identifying a logged-in user together
// with its expiry.  It is delivered to the browser in an httpOnly cookie.
type Credential struct {
	Token string
	Exp   time.Time
}

// Claims are the values carried by a credential.
type Claims struct {
	UserID uint64
	Role   string
}

// NewCredential builds and signs a credential for a user.  The JWT includes
// the standard claims sub (user id as a decimal string), exp and iat, plus
// the user's role.
func NewCredential(secret string, userID uint64, role string, ttl time.Duration) (Credential, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: signed, Exp: exp}, nil
}

// ParseCredential verifies raw with secret and returns its claims.  Any
// failure, expiry included, is reported as ErrInvalidCredential wrapping the
// underlying cause.
func ParseCredential(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrInvalidCredential
	}
	sub, err := mc.GetSubject()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return Claims{}, fmt.Errorf("%w: bad subject %q", ErrInvalidCredential, sub)
	}
	role, _ := mc["role"].(string)
	return Claims{UserID: id, Role: role}, nil
}
