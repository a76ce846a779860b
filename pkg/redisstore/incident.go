package redisstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const incidentIndexKey string = "monitor:incidents"

func incidentKey(id string) string {
	return fmt.Sprintf("monitor:incident:%s", id)
}

// SaveIncident overwrites the hash for id and adds it to the index in one
// transaction, so a reader never sees an indexed id without its fields.
func (c *Client) SaveIncident(ctx context.Context, id string, fields map[string]any) error {
	key := incidentKey(id)

	return retry(ctx, 3, func() error {
		_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, fields)
			pipe.SAdd(ctx, incidentIndexKey, id)
			return nil
		})
		return err
	})
}

func (c *Client) GetIncident(ctx context.Context, id string) (map[string]string, error) {
	resp, err := c.rdb.HGetAll(ctx, incidentKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, ErrKeyNotFound
	}
	return resp, nil
}

// ListIncidents returns every indexed incident hash, ordered by id. Index
// entries whose hash has gone missing are skipped.
func (c *Client) ListIncidents(ctx context.Context) ([]map[string]string, error) {
	var ids []string
	err := retry(ctx, 2, func() error {
		var err error
		ids, err = c.rdb.SMembers(ctx, incidentIndexKey).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	out := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		h, err := c.GetIncident(ctx, id)
		if err == ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
