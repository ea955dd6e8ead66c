package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-portal/internal/observability"
)

// auditPrefixLen is how much of a revoked token is written to the audit log.
const auditPrefixLen = 20

// minRedisRevocationTTL keeps entries for tokens whose expiry is already near or past.
const minRedisRevocationTTL = time.Minute

// RevocationStore records tokens invalidated before their natural expiry.
// There is no way to remove an entry.
type RevocationStore interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// MemoryRevocationStore is a process-local set. It is never pruned and does not
// survive a restart; use the Redis store when more than one instance serves traffic.
type MemoryRevocationStore struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

// NewMemoryRevocationStore returns an empty in-memory set.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{tokens: make(map[string]struct{})}
}

// Revoke adds token to the set.
func (s *MemoryRevocationStore) Revoke(_ context.Context, token string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = struct{}{}
	return nil
}

// IsRevoked is a constant-time membership test.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok, nil
}

// Len reports the number of revoked tokens.
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// RedisRevocationStore shares the revocation set between instances.
// Entries expire together with the token they revoke.
type RedisRevocationStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisRevocationStore builds a store; keyPrefix defaults to "revoked_token:".
func NewRedisRevocationStore(client redis.Cmdable, keyPrefix string) *RedisRevocationStore {
	if keyPrefix == "" {
		keyPrefix = "revoked_token:"
	}
	return &RedisRevocationStore{client: client, keyPrefix: keyPrefix}
}

// Revoke stores a marker keyed by the token digest.
func (s *RedisRevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl < minRedisRevocationTTL {
			ttl = minRedisRevocationTTL
		}
	}
	return s.client.Set(ctx, s.key(token), "1", ttl).Err()
}

// IsRevoked checks for the marker.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.keyPrefix + hex.EncodeToString(sum[:])
}

// RevocationManager is the entry point used by handlers and middleware.
type RevocationManager struct {
	store   RevocationStore
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRevocationManager wraps a store with audit logging.
func NewRevocationManager(store RevocationStore, logger *zap.Logger, metrics *observability.Metrics) *RevocationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationManager{store: store, logger: logger, metrics: metrics}
}

// Revoke invalidates token for the rest of its life and logs a truncated prefix.
func (m *RevocationManager) Revoke(ctx context.Context, token string) error {
	expiresAt, _ := PeekExpiry(token)
	if err := m.store.Revoke(ctx, token, expiresAt); err != nil {
		return err
	}
	m.metrics.RecordRevocation()
	m.logger.Info("token revoked", zap.String("token_prefix", TokenPrefix(token)))
	return nil
}

// IsRevoked reports whether token was revoked.
func (m *RevocationManager) IsRevoked(ctx context.Context, token string) (bool, error) {
	return m.store.IsRevoked(ctx, token)
}

// TokenPrefix truncates a token for logs.
func TokenPrefix(token string) string {
	if len(token) <= auditPrefixLen {
		return token + "..."
	}
	return token[:auditPrefixLen] + "..."
}
