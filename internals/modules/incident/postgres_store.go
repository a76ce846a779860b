package incident

import (
	"context"

	"healthwatch/pkg/utils"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const createIncidentsTable = `
CREATE TABLE IF NOT EXISTS incidents (
    id                   TEXT PRIMARY KEY,
    service_name         TEXT NOT NULL,
    status               TEXT NOT NULL,
    start_time           TIMESTAMPTZ NOT NULL,
    end_time             TIMESTAMPTZ,
    duration_seconds     DOUBLE PRECISION,
    url                  TEXT NOT NULL DEFAULT '',
    status_code          INTEGER NOT NULL DEFAULT 0,
    error_message        TEXT,
    reason               TEXT,
    response_time_ms     BIGINT NOT NULL DEFAULT 0,
    timeout_seconds      DOUBLE PRECISION NOT NULL DEFAULT 0,
    consecutive_failures INTEGER NOT NULL DEFAULT 0,
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS incidents_active_service_idx
    ON incidents (service_name) WHERE status = 'ACTIVE';
`

const upsertIncident = `
INSERT INTO incidents (
    id, service_name, status, start_time, end_time, duration_seconds,
    url, status_code, error_message, reason, response_time_ms,
    timeout_seconds, consecutive_failures
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
    service_name         = EXCLUDED.service_name,
    status               = EXCLUDED.status,
    start_time           = EXCLUDED.start_time,
    end_time             = EXCLUDED.end_time,
    duration_seconds     = EXCLUDED.duration_seconds,
    url                  = EXCLUDED.url,
    status_code          = EXCLUDED.status_code,
    error_message        = EXCLUDED.error_message,
    reason               = EXCLUDED.reason,
    response_time_ms     = EXCLUDED.response_time_ms,
    timeout_seconds      = EXCLUDED.timeout_seconds,
    consecutive_failures = EXCLUDED.consecutive_failures,
    updated_at           = now()
`

const listIncidents = `
SELECT id, service_name, status, start_time, end_time, duration_seconds,
       url, status_code, error_message, reason, response_time_ms,
       timeout_seconds, consecutive_failures
  FROM incidents
 ORDER BY start_time, id
`

// PostgresStore keeps incidents in the incidents table. The pool is owned by
// the caller.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *zerolog.Logger) (*PostgresStore, error) {
	const op string = "store.postgres.new"

	if _, err := pool.Exec(ctx, createIncidentsTable); err != nil {
		return nil, utils.WrapStoreError(op, err, logger)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Save(ctx context.Context, inc Incident) error {
	const op string = "store.postgres.save"

	_, err := s.pool.Exec(ctx, upsertIncident,
		inc.ID,
		inc.ServiceName,
		string(inc.Status),
		inc.StartTime,
		utils.ToPgTimestamptz(inc.EndTime),
		utils.ToPgFloat8(inc.DurationSeconds),
		inc.Details.URL,
		inc.Details.StatusCode,
		utils.ToPgText(inc.Details.Error),
		utils.ToPgText(inc.Details.Reason),
		inc.Details.ResponseTimeMs,
		inc.Details.TimeoutSeconds,
		inc.Details.ConsecutiveFailures,
	)
	return utils.WrapStoreError(op, err, s.logger)
}

func (s *PostgresStore) List(ctx context.Context) ([]Incident, error) {
	const op string = "store.postgres.list"

	rows, err := s.pool.Query(ctx, listIncidents)
	if err != nil {
		return nil, utils.WrapStoreError(op, err, s.logger)
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		var (
			inc      Incident
			status   string
			endTime  pgtype.Timestamptz
			duration pgtype.Float8
			errMsg   pgtype.Text
			reason   pgtype.Text
		)
		if err := rows.Scan(
			&inc.ID,
			&inc.ServiceName,
			&status,
			&inc.StartTime,
			&endTime,
			&duration,
			&inc.Details.URL,
			&inc.Details.StatusCode,
			&errMsg,
			&reason,
			&inc.Details.ResponseTimeMs,
			&inc.Details.TimeoutSeconds,
			&inc.Details.ConsecutiveFailures,
		); err != nil {
			return nil, utils.WrapStoreError(op, err, s.logger)
		}
		inc.Status = Status(status)
		inc.EndTime = utils.FromPgTimestamptz(endTime)
		inc.DurationSeconds = utils.FromPgFloat8(duration)
		inc.Details.Error = utils.FromPgText(errMsg)
		inc.Details.Reason = utils.FromPgText(reason)
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapStoreError(op, err, s.logger)
	}
	return out, nil
}

func (s *PostgresStore) Close() error { return nil }
