package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisNamespace = "otp"

// incrAttempts bumps the attempt counter only while the record exists, so a
// late wrong guess cannot resurrect an evicted key without a TTL.
var incrAttempts = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

// RedisStore keeps records as hashes under "otp:<phone>" with a key TTL.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(phone string) string {
	return redisNamespace + ":" + phone
}

func (s *RedisStore) Save(ctx context.Context, phone string, rec Record, ttl time.Duration) error {
	key := s.key(phone)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code", rec.Code,
			"expires", rec.Expires.UnixMilli(),
			"attempts", rec.Attempts,
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("otp: save: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, phone string) (Record, error) {
	fields, err := s.client.HGetAll(ctx, s.key(phone)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("otp: get: %w", err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}

	expires, err := strconv.ParseInt(fields["expires"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("otp: decode expires: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return Record{}, fmt.Errorf("otp: decode attempts: %w", err)
	}
	return Record{
		Code:     fields["code"],
		Expires:  time.UnixMilli(expires),
		Attempts: attempts,
	}, nil
}

func (s *RedisStore) IncrAttempts(ctx context.Context, phone string) (int, error) {
	n, err := incrAttempts.Run(ctx, s.client, []string{s.key(phone)}).Int()
	if err != nil {
		return 0, fmt.Errorf("otp: incr attempts: %w", err)
	}
	if n < 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, s.key(phone)).Err(); err != nil {
		return fmt.Errorf("otp: delete: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
