package incident

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"healthwatch/pkg/apperror"
	"healthwatch/pkg/utils"
)

// HashStore is the slice of the redis client the incident store needs.
type HashStore interface {
	SaveIncident(ctx context.Context, id string, fields map[string]any) error
	ListIncidents(ctx context.Context) ([]map[string]string, error)
}

// RedisStore keeps each incident as a hash at monitor:incident:<id>. The
// underlying client is shared and closed by its owner.
type RedisStore struct {
	client HashStore
}

func NewRedisStore(client HashStore) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, inc Incident) error {
	const op string = "store.redis.save"

	return utils.WrapStoreError(op, s.client.SaveIncident(ctx, inc.ID, toHash(inc)), nil)
}

func (s *RedisStore) List(ctx context.Context) ([]Incident, error) {
	const op string = "store.redis.list"

	hashes, err := s.client.ListIncidents(ctx)
	if err != nil {
		return nil, utils.WrapStoreError(op, err, nil)
	}

	out := make([]Incident, 0, len(hashes))
	for _, h := range hashes {
		inc, err := fromHash(h)
		if err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, fmt.Errorf("%s: %w", h["id"], err))
		}
		out = append(out, inc)
	}
	return out, nil
}

func (s *RedisStore) Close() error { return nil }

func toHash(inc Incident) map[string]any {
	h := map[string]any{
		"id":                   inc.ID,
		"service_name":         inc.ServiceName,
		"status":               string(inc.Status),
		"start_time":           inc.StartTime.Format(time.RFC3339Nano),
		"url":                  inc.Details.URL,
		"status_code":          inc.Details.StatusCode,
		"error":                inc.Details.Error,
		"reason":               inc.Details.Reason,
		"response_time_ms":     inc.Details.ResponseTimeMs,
		"timeout_seconds":      inc.Details.TimeoutSeconds,
		"consecutive_failures": inc.Details.ConsecutiveFailures,
	}
	if inc.EndTime != nil {
		h["end_time"] = inc.EndTime.Format(time.RFC3339Nano)
	}
	if inc.DurationSeconds != nil {
		h["duration_seconds"] = strconv.FormatFloat(*inc.DurationSeconds, 'f', -1, 64)
	}
	return h
}

func fromHash(h map[string]string) (Incident, error) {
	start, err := time.Parse(time.RFC3339Nano, h["start_time"])
	if err != nil {
		return Incident{}, fmt.Errorf("start_time: %w", err)
	}

	inc := Incident{
		ID:          h["id"],
		ServiceName: h["service_name"],
		Status:      Status(h["status"]),
		StartTime:   start,
		Details: Details{
			URL:    h["url"],
			Error:  h["error"],
			Reason: h["reason"],
		},
	}

	if v := h["end_time"]; v != "" {
		end, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return Incident{}, fmt.Errorf("end_time: %w", err)
		}
		inc.EndTime = &end
	}
	if v := h["duration_seconds"]; v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Incident{}, fmt.Errorf("duration_seconds: %w", err)
		}
		inc.DurationSeconds = &d
	}

	// numeric detail fields are informational; a bad value reads as zero
	inc.Details.StatusCode, _ = strconv.Atoi(h["status_code"])
	inc.Details.ResponseTimeMs, _ = strconv.ParseInt(h["response_time_ms"], 10, 64)
	inc.Details.TimeoutSeconds, _ = strconv.ParseFloat(h["timeout_seconds"], 64)
	inc.Details.ConsecutiveFailures, _ = strconv.Atoi(h["consecutive_failures"])

	return inc, nil
}
