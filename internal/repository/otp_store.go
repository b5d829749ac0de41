package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/staybook/staybook/internal/utils"
)

// OTP verification failures.  Handlers report all of them as 401 except
// ErrOTPUnavailable, which means no Redis client is configured.
var (
	ErrOTPUnavailable = errors.New("otp store unavailable")
	ErrOTPNotFound    = errors.New("otp expired or not requested")
	ErrOTPMismatch    = errors.New("otp mismatch")
	ErrOTPAttempts    = errors.New("too many otp attempts")
)

// OTPStore keeps one pending login code per phone number in Redis as a
// hash {code: sha256, attempts: n} that expires after TTL.  Only the digest
// of the code is stored.
type OTPStore struct {
	rdb         *redis.Client
	ttl         time.Duration
	maxAttempts int
	prefix      string
}

// NewOTPStore returns a store backed by rdb.  A nil client yields a store
// whose operations fail with ErrOTPUnavailable.
func NewOTPStore(rdb *redis.Client, ttl time.Duration, maxAttempts int) *OTPStore {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OTPStore{rdb: rdb, ttl: ttl, maxAttempts: maxAttempts, prefix: "staybook:otp:"}
}

// TTL reports how long a saved code stays valid.
func (s *OTPStore) TTL() time.Duration { return s.ttl }

// Save replaces any pending code for phone.
func (s *OTPStore) Save(ctx context.Context, phone, code string) error {
	if s.rdb == nil {
		return ErrOTPUnavailable
	}
	key := s.prefix + phone
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "code", utils.HashOTP(phone, code), "attempts", 0)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// verifyOTP checks, counts and consumes in one step so parallel guesses
// cannot read the same attempt count.  Replies: 0 match (entry deleted),
// 1 no entry, 2 mismatch, 3 attempts exhausted (entry deleted).
var verifyOTP = redis.NewScript(`
local key = KEYS[1]
local max_attempts = tonumber(ARGV[2])

local stored = redis.call('HGET', key, 'code')
if not stored then
  return 1
end
local attempts = tonumber(redis.call('HGET', key, 'attempts') or '0')
if attempts >= max_attempts then
  redis.call('DEL', key)
  return 3
end
if stored == ARGV[1] then
  redis.call('DEL', key)
  return 0
end
attempts = redis.call('HINCRBY', key, 'attempts', 1)
if attempts >= max_attempts then
  redis.call('DEL', key)
  return 3
end
return 2
`)

// Verify checks code against the pending entry for phone.  A correct code
// is consumed.  A wrong one counts as an attempt; once maxAttempts wrong
// codes were tried the entry is burned.
func (s *OTPStore) Verify(ctx context.Context, phone, code string) error {
	if s.rdb == nil {
		return ErrOTPUnavailable
	}
	res, err := verifyOTP.Run(ctx, s.rdb, []string{s.prefix + phone}, utils.HashOTP(phone, code), s.maxAttempts).Int()
	if err != nil {
		return err
	}
	switch res {
	case 0:
		return nil
	case 1:
		return ErrOTPNotFound
	case 2:
		return ErrOTPMismatch
	default:
		return ErrOTPAttempts
	}
}
