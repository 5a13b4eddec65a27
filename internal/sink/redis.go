package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrFrameNotFound 设备暂无缓存帧
var ErrFrameNotFound = errors.New("frame not found")

// RedisCmdable *redis.Client 的最小子集
type RedisCmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisStore 保存每个来源的最新帧（含载荷）与最近事件摘要
type RedisStore struct {
	client     RedisCmdable
	prefix     string
	ttl        time.Duration
	historyLen int
}

func NewRedisStore(client RedisCmdable, prefix string, ttl time.Duration, historyLen int) *RedisStore {
	if prefix == "" {
		prefix = "lcd"
	}
	if historyLen <= 0 {
		historyLen = 32
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, historyLen: historyLen}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) frameKey(source string) string   { return s.prefix + ":frame:" + source }
func (s *RedisStore) historyKey(source string) string { return s.prefix + ":history:" + source }

func (s *RedisStore) HandleFrame(ctx context.Context, env Envelope) error {
	if !env.IsError() {
		b, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		if err := s.client.Set(ctx, s.frameKey(env.Source), b, s.ttl).Err(); err != nil {
			return fmt.Errorf("redis set latest frame: %w", err)
		}
	}

	sum, err := json.Marshal(env.Summary())
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	hk := s.historyKey(env.Source)
	if err := s.client.LPush(ctx, hk, sum).Err(); err != nil {
		return fmt.Errorf("redis push history: %w", err)
	}
	if err := s.client.LTrim(ctx, hk, 0, int64(s.historyLen-1)).Err(); err != nil {
		return fmt.Errorf("redis trim history: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, hk, s.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire history: %w", err)
		}
	}
	return nil
}

// Latest 读取来源的最新帧
func (s *RedisStore) Latest(ctx context.Context, source string) (*Envelope, error) {
	b, err := s.client.Get(ctx, s.frameKey(source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFrameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get latest frame: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode latest frame: %w", err)
	}
	return &env, nil
}

// History 读取最近 n 条事件摘要（新在前）
func (s *RedisStore) History(ctx context.Context, source string, n int) ([]Envelope, error) {
	if n <= 0 || n > s.historyLen {
		n = s.historyLen
	}
	vals, err := s.client.LRange(ctx, s.historyKey(source), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read history: %w", err)
	}
	out := make([]Envelope, 0, len(vals))
	for _, v := range vals {
		var env Envelope
		if err := json.Unmarshal([]byte(v), &env); err != nil {
			continue
		}
		out = append(out, env)
	}
	return out, nil
}
