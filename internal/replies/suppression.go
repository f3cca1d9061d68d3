package replies

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/Keiracom/Agency-OS-sub001/platform/config"

	"github.com/redis/go-redis/v9"
)

// Suppressor is the global do-not-contact set. Addresses added here are
// checked by the dispatch gate before every send on every channel.
type Suppressor interface {
	Suppress(ctx context.Context, channel, address string) error
	IsSuppressed(ctx context.Context, channel, address string) (bool, error)
}

// RedisSuppressor stores suppressed addresses in one redis set per channel.
type RedisSuppressor struct {
	client *redis.Client
}

// NewRedisSuppressor connects to redis using the same URL scheme as the task
// queue.
func NewRedisSuppressor(cfg config.SuppressionConfig) (*RedisSuppressor, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &RedisSuppressor{client: redis.NewClient(opt)}, nil
}

// NewRedisSuppressorFromClient wraps an existing client. Used by tests.
func NewRedisSuppressorFromClient(client *redis.Client) *RedisSuppressor {
	return &RedisSuppressor{client: client}
}

func (s *RedisSuppressor) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Suppress adds a normalized address to the channel's do-not-contact set.
// Adding an already-present address is a no-op.
func (s *RedisSuppressor) Suppress(ctx context.Context, channel, address string) error {
	address = normalizeAddress(address)
	if address == "" {
		return fmt.Errorf("empty address")
	}
	return s.client.SAdd(ctx, suppressionKey(channel), address).Err()
}

// IsSuppressed reports whether an address is on the channel's
// do-not-contact set.
func (s *RedisSuppressor) IsSuppressed(ctx context.Context, channel, address string) (bool, error) {
	address = normalizeAddress(address)
	if address == "" {
		return false, nil
	}
	return s.client.SIsMember(ctx, suppressionKey(channel), address).Result()
}

func suppressionKey(channel string) string {
	return "suppression:" + strings.ToLower(strings.TrimSpace(channel))
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
