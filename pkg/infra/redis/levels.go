package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyLevels    = "smartbin:levels"
	keyUpdatedAt = "smartbin:updated_at"
	keyBeginAt   = "smartbin:begin_at"
)

// SetLevel 覆盖分类的最新值，并记录更新时间
func (c *Client) SetLevel(ctx context.Context, class string, level int, at time.Time) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keyLevels, class, level)
		pipe.Set(ctx, keyUpdatedAt, at.UnixMilli(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set level %s: %w", class, err)
	}
	return nil
}

// Levels 全部分类的最新值
func (c *Client) Levels(ctx context.Context) (map[string]int, error) {
	raw, err := c.rdb.HGetAll(ctx, keyLevels).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read levels: %w", err)
	}
	out := make(map[string]int, len(raw))
	for class, v := range raw {
		level, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt level for %s: %q", class, v)
		}
		out[class] = level
	}
	return out, nil
}

// SetBegin 记录开始处理时间
func (c *Client) SetBegin(ctx context.Context, at time.Time) error {
	if err := c.rdb.Set(ctx, keyBeginAt, at.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("failed to set begin time: %w", err)
	}
	return nil
}

// UpdatedAt 最近一次更新时间（毫秒），从未更新返回 0
func (c *Client) UpdatedAt(ctx context.Context) (int64, error) {
	return c.millis(ctx, keyUpdatedAt)
}

// BeginAt 最近一次开始处理时间（毫秒），从未开始返回 0
func (c *Client) BeginAt(ctx context.Context) (int64, error) {
	return c.millis(ctx, keyBeginAt)
}

func (c *Client) millis(ctx context.Context, key string) (int64, error) {
	v, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}
