package utils

import (
	"context"
	"errors"
	"net"

	"healthwatch/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// WrapStoreError maps an incident store failure onto an *apperror.Error.
// Postgres diagnostics are logged when log is non-nil.
func WrapStoreError(op string, err error, log *zerolog.Logger) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.New(apperror.RequestTimeout, op, err).
			WithMessage("storage request cancelled or timed out")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if log != nil {
			log.Error().
				Str("op", op).
				Str("pg_code", pgErr.Code).
				Str("pg_constraint", pgErr.ConstraintName).
				Str("pg_table", pgErr.TableName).
				Str("pg_detail", pgErr.Detail).
				Err(err).
				Msg("postgres error")
		}
		return apperror.New(apperror.DatabaseErr, op, err).WithMessage("incident database error")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperror.New(apperror.Dependency, op, err).WithMessage("incident store unreachable")
	}

	return apperror.New(apperror.DatabaseErr, op, err).WithMessage("incident store error")
}
