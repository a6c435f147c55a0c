// Package cache holds short-lived read-side snapshots in Redis. The workflow
// never depends on it for correctness; a cold or broken cache just means
// recomputing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/service"
)

const (
	summaryKey        = "bans:dashboard-summary"
	defaultSummaryTTL = 30 * time.Second
)

type Summary struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummary(client *redis.Client, ttl time.Duration) *Summary {
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &Summary{client: client, ttl: ttl}
}

func (c *Summary) GetSummary(ctx context.Context) (*service.DashboardSummary, error) {
	raw, err := c.client.Get(ctx, summaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	var summary service.DashboardSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// a corrupt entry behaves like a miss
		return nil, nil
	}
	return &summary, nil
}

func (c *Summary) SetSummary(ctx context.Context, summary service.DashboardSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}
