package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations invalidates tokens before they expire: a single token on
// logout, or every token of a user when the account loses access.
type Revocations interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeUser rejects all tokens of userID issued before the current second
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// CheckRevoked returns ErrTokenRevoked when claims were revoked by either path
func CheckRevoked(ctx context.Context, r Revocations, claims *Claims) error {
	if r == nil {
		return nil
	}
	if claims.ID != "" {
		revoked, err := r.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return err
		}
		if revoked {
			return ErrTokenRevoked
		}
	}
	revoked, err := r.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

const revocationPrefix = "auth:revoked:"

// RedisRevocations shares revocations between instances
type RedisRevocations struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocations wraps an existing client
func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client, now: time.Now}
}

func (r *RedisRevocations) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revocationPrefix+"jti:"+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationPrefix+"jti:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRevocations) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	at := strconv.FormatInt(r.now().Unix(), 10)
	if err := r.client.Set(ctx, revocationPrefix+"user:"+userID, at, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := r.client.Get(ctx, revocationPrefix+"user:"+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user revocation: %w", err)
	}
	at, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt revocation timestamp %q: %w", raw, err)
	}
	// iat has second precision; a pair issued in the revoking second stays valid
	return issuedAt.Unix() < at, nil
}

var _ Revocations = (*RedisRevocations)(nil)

// MemoryRevocations is the single-instance variant
type MemoryRevocations struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	users  map[string]userRevocation
	now    func() time.Time
}

type userRevocation struct {
	at        time.Time
	expiresAt time.Time
}

// NewMemoryRevocations creates an empty revocation list
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		tokens: make(map[string]time.Time),
		users:  make(map[string]userRevocation),
		now:    time.Now,
	}
}

func (r *MemoryRevocations) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[jti] = r.now().Add(ttl)
	return nil
}

func (r *MemoryRevocations) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.tokens[jti]
	if !ok {
		return false, nil
	}
	if !r.now().Before(exp) {
		delete(r.tokens, jti)
		return false, nil
	}
	return true, nil
}

func (r *MemoryRevocations) RevokeUser(_ context.Context, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	rev := userRevocation{at: now}
	if ttl > 0 {
		rev.expiresAt = now.Add(ttl)
	}
	r.users[userID] = rev
	return nil
}

func (r *MemoryRevocations) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	if !rev.expiresAt.IsZero() && !r.now().Before(rev.expiresAt) {
		delete(r.users, userID)
		return false, nil
	}
	return issuedAt.Unix() < rev.at.Unix(), nil
}

var _ Revocations = (*MemoryRevocations)(nil)
