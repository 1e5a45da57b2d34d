package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"botmesero-backend/internal/models"
)

const redisHistoryPrefix = "botmesero:history:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ConnectRedis builds a client and verifies it with a ping.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisHistory stores each chat's turns as a Redis list of JSON documents,
// so several bot processes can share conversation state. idleTTL is applied
// as the key expiry and refreshed on every append.
type RedisHistory struct {
	rdb      redis.Cmdable
	maxTurns int
	idleTTL  time.Duration
}

func NewRedisHistory(rdb redis.Cmdable, maxTurns int, idleTTL time.Duration) *RedisHistory {
	return &RedisHistory{rdb: rdb, maxTurns: maxTurns, idleTTL: idleTTL}
}

func historyKey(chatID string) string {
	return redisHistoryPrefix + chatID
}

func (r *RedisHistory) Append(ctx context.Context, chatID string, turn models.Turn) error {
	if chatID == "" {
		return ErrEmptyChatID
	}
	b, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}
	key := historyKey(chatID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, b)
		if r.maxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-r.maxTurns), -1)
		}
		if r.idleTTL > 0 {
			pipe.Expire(ctx, key, r.idleTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append turn for chat %s: %w", chatID, err)
	}
	return nil
}

func (r *RedisHistory) History(ctx context.Context, chatID string) ([]models.Turn, error) {
	raw, err := r.rdb.LRange(ctx, historyKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history for chat %s: %w", chatID, err)
	}
	out := make([]models.Turn, 0, len(raw))
	for _, s := range raw {
		var t models.Turn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("failed to decode turn for chat %s: %w", chatID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *RedisHistory) Clear(ctx context.Context, chatID string) error {
	if err := r.rdb.Del(ctx, historyKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history for chat %s: %w", chatID, err)
	}
	return nil
}
