// Package relay republishes game lifecycle events on a Redis channel so other
// processes can follow rounds without polling the API.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
)

const publishTimeout = 2 * time.Second

// Connect parses a redis:// URL and returns a client for it.
func Connect(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

type Publisher struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

func New(rdb *redis.Client, channel string, logger *slog.Logger) *Publisher {
	return &Publisher{rdb: rdb, channel: channel, logger: logger}
}

// Notify publishes e as JSON. A failed publish is logged and dropped.
func (p *Publisher) Notify(e game.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("encoding event", "event", e.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warn("relay publish failed", "channel", p.channel, "event", e.Type, "round_id", e.RoundID, "error", err)
	}
}

// Ping reports whether Redis is reachable.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
