package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in redis so several gateway instances can
// serve chunks of the same upload. Expiry is native: the metadata key and
// the chunk hash share a TTL, so Sweep has nothing to do.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func metaKey(id string) string   { return "upload:session:" + id }
func chunksKey(id string) string { return "upload:chunks:" + id }

func (s *RedisStore) Create(ctx context.Context, sess *Session, ttl time.Duration) error {
	cp := *sess
	cp.ExpiresAt = time.Now().Add(ttl)
	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("session marshal error: %w", err)
	}
	if err := s.client.Set(ctx, metaKey(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, metaKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrorSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session unmarshal error: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, metaKey(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return common.ErrorSessionNotFound
	}
	// The chunk hash may not exist yet; a failed expire there is fine.
	s.client.Expire(ctx, chunksKey(id), ttl)
	return nil
}

func (s *RedisStore) PutChunk(ctx context.Context, id string, index int, data []byte) error {
	exists, err := s.client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if exists == 0 {
		return common.ErrorSessionNotFound
	}
	if err := s.client.HSet(ctx, chunksKey(id), strconv.Itoa(index), data).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) ChunkCount(ctx context.Context, id string) (int, error) {
	exists, err := s.client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	if exists == 0 {
		return 0, common.ErrorSessionNotFound
	}
	n, err := s.client.HLen(ctx, chunksKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Chunks(ctx context.Context, id string) (map[int][]byte, error) {
	exists, err := s.client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if exists == 0 {
		return nil, common.ErrorSessionNotFound
	}
	raw, err := s.client.HGetAll(ctx, chunksKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	out := make(map[int][]byte, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("bad chunk index %q: %w", k, err)
		}
		out[idx] = []byte(v)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, metaKey(id), chunksKey(id)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Sweep is a no-op: redis drops expired keys itself.
func (s *RedisStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}
