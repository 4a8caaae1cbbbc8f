// =============================
// File: internal/metadata/store.go
// =============================
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Record is the off-chain metadata row for one launched token. It is a
// cache, never authoritative: fund-moving decisions always re-read chain
// state.
type Record struct {
	Mint        string    `json:"mint"`
	Name        string    `json:"name,omitempty"`
	Symbol      string    `json:"symbol,omitempty"`
	ImageURI    string    `json:"image_uri,omitempty"`
	Creator     string    `json:"creator,omitempty"`
	LaunchMode  string    `json:"launch_mode,omitempty"`
	TokensSold  uint64    `json:"tokens_sold,omitempty"`
	TotalSupply uint64    `json:"total_supply,omitempty"`

	// PoolTokenAccount lets the account resolver skip an on-chain scan when
	// a previous resolution already located the vault.
	PoolTokenAccount string `json:"pool_token_account,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the external metadata collaborator, a record store indexed by
// token identity. Implementations must tolerate being unavailable; callers
// treat every failure as best-effort.
type Store interface {
	// Get returns the record for a mint, or nil when none is stored.
	Get(ctx context.Context, mint string) (*Record, error)
	// Upsert merges the given record under the mint key.
	Upsert(ctx context.Context, mint string, rec *Record) error
}

const keyPrefix = "launchpad:token:"

// RedisStore backs Store with Redis. Records expire after the freshness
// window so stale launch state ages out on its own.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(addr, password string, db int, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl:    ttl,
		logger: logger.Named("metadata"),
	}
}

func (s *RedisStore) Get(ctx context.Context, mint string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+mint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metadata get %s: %w", mint, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("Dropping undecodable metadata record",
			zap.String("mint", mint), zap.Error(err))
		return nil, nil
	}
	return &rec, nil
}

func (s *RedisStore) Upsert(ctx context.Context, mint string, rec *Record) error {
	rec.Mint = mint
	rec.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("metadata marshal %s: %w", mint, err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+mint, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("metadata upsert %s: %w", mint, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var _ Store = (*RedisStore)(nil)
