package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRoundTrip(t *testing.T) {
	cred, err := NewCredential("secret", 42, "host", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.Exp, 5*time.Second)

	claims, err := ParseCredential("secret", cred.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "host", claims.Role)
}

func TestParseCredentialRejects(t *testing.T) {
	expired, err := NewCredential("secret", 1, "guest", -time.Minute)
	require.NoError(t, err)

	other, err := NewCredential("other", 1, "guest", time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})
	noneRaw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"})
	noExpRaw, err := noExp.SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"expired", expired.Token},
		{"wrong secret", other.Token},
		{"alg none", noneRaw},
		{"missing exp", noExpRaw},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCredential("secret", tt.raw)
			assert.True(t, errors.Is(err, ErrInvalidCredential), "got %v", err)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
	assert.False(t, VerifyPassword("", "hunter22"))
}

func TestNewOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewOTP()
		require.NoError(t, err)
		assert.Len(t, code, OTPLength)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
	assert.NotEqual(t, HashOTP("+15550001111", "123456"), HashOTP("+15550002222", "123456"))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 010-9999", "+15550109999", false},
		{"0044 20 7946 0018", "+442079460018", false},
		{"5550109999", "", true},
		{"+1", "", true},
		{"+0123456789", "", true},
		{"+1555abc9999", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidPhone, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(0, 0))
	assert.Equal(t, 4.33, AverageRating(13, 3))
	assert.Equal(t, 4.67, AverageRating(14, 3))
	assert.Equal(t, 5.0, AverageRating(10, 2))
}
