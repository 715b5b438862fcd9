package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"smartbin/internal/entity"
)

// Client Redis 客户端封装（发布/订阅 + 最新满溢度）
type Client struct {
	rdb *redis.Client
}

// NewClient 创建客户端并测试连接
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Publish 序列化为 JSON 后发布到频道；string / []byte 原样发布
func (c *Client) Publish(ctx context.Context, channel string, payload interface{}) error {
	var msg interface{}
	switch v := payload.(type) {
	case string, []byte:
		msg = v
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		msg = b
	}

	if err := c.rdb.Publish(ctx, channel, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Listen 订阅频道，ctx 取消后关闭订阅和返回的 channel
func (c *Client) Listen(ctx context.Context, channels ...string) (<-chan entity.Event, error) {
	ps := c.rdb.Subscribe(ctx, channels...)
	// 等待订阅确认
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe %v: %w", channels, err)
	}

	out := make(chan entity.Event)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- entity.Event{Channel: m.Channel, Payload: m.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
