package postgres

import (
	"errors"
	"strings"

	"linkpay/internal/core/ports"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapWriteError translates unique violations into storage sentinels.
// Primary key collisions become ports.ErrDuplicateID so callers can retry
// with a fresh id; any other unique constraint becomes ports.ErrAlreadyExists.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}
	if strings.HasSuffix(pgErr.ConstraintName, "_pkey") {
		return errors.Join(ports.ErrDuplicateID, err)
	}
	return errors.Join(ports.ErrAlreadyExists, err)
}
