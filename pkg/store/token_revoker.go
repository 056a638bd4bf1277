package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker tracks revoked token ids until expiry.
type TokenRevoker interface {
	Revoke(jti string, ttl time.Duration) error
	Claim(jti string, ttl time.Duration) (bool, error)
	IsRevoked(jti string) (bool, error)
}

// UserTokenRevoker revokes every token of a user issued before a cutoff.
type UserTokenRevoker interface {
	RevokeUser(userID string, cutoff time.Time) error
	RevokedAfter(userID string) (time.Time, error)
}

// MemoryTokenRevoker keeps revocations in-memory (single instance only).
type MemoryTokenRevoker struct {
	mu      sync.Mutex
	tokens  map[string]time.Time
	cutoffs map[string]time.Time
}

// NewMemoryTokenRevoker builds an in-memory revoker.
func NewMemoryTokenRevoker() *MemoryTokenRevoker {
	return &MemoryTokenRevoker{
		tokens:  make(map[string]time.Time),
		cutoffs: make(map[string]time.Time),
	}
}

// Revoke marks a token id as revoked until its expiry.
func (r *MemoryTokenRevoker) Revoke(jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	r.tokens[jti] = time.Now().Add(ttl)
	r.mu.Unlock()
	return nil
}

// Claim revokes jti unless a live revocation already exists.
func (r *MemoryTokenRevoker) Claim(jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if expiry, ok := r.tokens[jti]; ok && now.Before(expiry) {
		return false, nil
	}
	r.tokens[jti] = now.Add(ttl)
	return true, nil
}

// IsRevoked checks if the token id is revoked.
func (r *MemoryTokenRevoker) IsRevoked(jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiry, ok := r.tokens[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(r.tokens, jti)
		return false, nil
	}
	return true, nil
}

// RevokeUser records a cutoff; older cutoffs never replace newer ones.
func (r *MemoryTokenRevoker) RevokeUser(userID string, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.cutoffs[userID]; ok && !cutoff.After(current) {
		return nil
	}
	r.cutoffs[userID] = cutoff
	return nil
}

// RevokedAfter returns the user's cutoff, or the zero time when none is set.
func (r *MemoryTokenRevoker) RevokedAfter(userID string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cutoffs[userID], nil
}

var userCutoffScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// RedisTokenRevoker stores revocations in Redis with TTL.
type RedisTokenRevoker struct {
	client    *redis.Client
	cutoffTTL time.Duration
}

// NewRedisTokenRevoker builds a Redis-backed revoker. cutoffTTL should be at
// least the longest token lifetime so user cutoffs outlive the tokens they cover.
func NewRedisTokenRevoker(addr, password string, cutoffTTL time.Duration) *RedisTokenRevoker {
	if cutoffTTL <= 0 {
		cutoffTTL = 7 * 24 * time.Hour
	}
	return &RedisTokenRevoker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		cutoffTTL: cutoffTTL,
	}
}

// Revoke marks a token id as revoked until expiry.
func (r *RedisTokenRevoker) Revoke(jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return r.client.Set(ctx, revocationKey(jti), "1", ttl).Err()
}

// Claim revokes jti with SET NX so concurrent callers race on one key.
func (r *RedisTokenRevoker) Claim(jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return r.client.SetNX(ctx, revocationKey(jti), "1", ttl).Result()
}

// IsRevoked checks if the token id is revoked.
func (r *RedisTokenRevoker) IsRevoked(jti string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	res, err := r.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return res > 0, nil
}

// RevokeUser stores the cutoff as unix seconds, keeping the newest value.
func (r *RedisTokenRevoker) RevokeUser(userID string, cutoff time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return userCutoffScript.Run(ctx, r.client,
		[]string{userCutoffKey(userID)},
		cutoff.UTC().Unix(), r.cutoffTTL.Milliseconds(),
	).Err()
}

// RevokedAfter returns the user's cutoff, or the zero time when none is set.
func (r *RedisTokenRevoker) RevokedAfter(userID string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	raw, err := r.client.Get(ctx, userCutoffKey(userID)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}

// Close releases the underlying client.
func (r *RedisTokenRevoker) Close() error {
	return r.client.Close()
}

func revocationKey(jti string) string {
	return "jobboard:revoked:" + jti
}

func userCutoffKey(userID string) string {
	return "jobboard:revoked_user:" + userID
}
