package redisstore

import (
	"context"
	"fmt"
	"time"
)

func statusKey(target string) string {
	return fmt.Sprintf("monitor:status:%s", target)
}

// StoreStatus publishes the latest check outcome of a target.
func (c *Client) StoreStatus(ctx context.Context, target string, status string, statusCode int, latencyMs int64, checkedAt time.Time) error {
	key := statusKey(target)

	return retry(ctx, 2, func() error {
		return c.rdb.HSet(ctx, key, map[string]any{
			"status":      status,
			"status_code": statusCode,
			"latency_ms":  latencyMs,
			"checked_at":  checkedAt.Unix(),
		}).Err()
	})
}
