package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/redis/go-redis/v9"
)

var logger = flogging.MustGetLogger("certregistry.store.redis")

// DefaultPrefix namespaces the registry hash when none is given.
const DefaultPrefix = "certregistry"

// Store keeps the whole registry region in one Redis hash so a single key
// TTL acts as the region's retention window. Retention units are seconds.
type Store struct {
	client redis.Cmdable
	key    string
}

// NewStore creates a store using hash "<prefix>:state".
func NewStore(client redis.Cmdable, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, key: prefix + ":state"}
}

// Key returns the hash holding the registry state.
func (s *Store) Key() string { return s.key }

func (s *Store) Get(ctx context.Context, field string) ([]byte, error) {
	value, err := s.client.HGet(ctx, s.key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget %s: %w", field, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, field string, value []byte) error {
	if err := s.client.HSet(ctx, s.key, field, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", field, err)
	}
	return nil
}

// Commit writes all entries with one HSET and, when retention is due, an
// EXPIRE inside a MULTI/EXEC transaction.
func (s *Store) Commit(ctx context.Context, entries map[string][]byte, threshold, extendTo uint64) error {
	if len(entries) == 0 {
		return s.ExtendRetention(ctx, threshold, extendTo)
	}
	ttl, err := s.client.TTL(ctx, s.key).Result()
	if err != nil {
		return fmt.Errorf("redis ttl: %w", err)
	}
	// A missing key (-2) is created by the HSET below and needs a TTL too.
	extend := ttl < 0 || ttl < seconds(threshold)

	values := make(map[string]interface{}, len(entries))
	for field, value := range entries {
		values[field] = value
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, values)
		if extend {
			pipe.Expire(ctx, s.key, seconds(extendTo))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}
	if extend {
		logger.Debugf("Retention of %s extended to %ds", s.key, extendTo)
	}
	return nil
}

// ExtendRetention sets the hash TTL to extendTo seconds when it has none or
// less than threshold seconds remain.
func (s *Store) ExtendRetention(ctx context.Context, threshold, extendTo uint64) error {
	ttl, err := s.client.TTL(ctx, s.key).Result()
	if err != nil {
		return fmt.Errorf("redis ttl: %w", err)
	}
	// -2: key missing, nothing to keep alive.
	if ttl == -2 {
		return nil
	}
	if ttl >= 0 && ttl >= seconds(threshold) {
		return nil
	}
	if err := s.client.Expire(ctx, s.key, seconds(extendTo)).Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	logger.Debugf("Retention of %s extended to %ds", s.key, extendTo)
	return nil
}

// TTL returns the remaining retention window, negative when none is set.
func (s *Store) TTL(ctx context.Context) (time.Duration, error) {
	return s.client.TTL(ctx, s.key).Result()
}

func seconds(n uint64) time.Duration {
	return time.Duration(n) * time.Second
}
