package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"classroll/internal/apperr"
)

// Postgres SQLSTATE codes the engine reacts to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Classify maps a driver error onto an apperr kind. what names the entity for messages.
// Errors that already carry a kind are returned unchanged.
func Classify(op, what string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != nil {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(op, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Wrap(apperr.ErrDuplicate, op, what+" already exists", err)
		case codeForeignKeyViolation:
			return apperr.Wrap(apperr.ErrNotFound, op, "referenced entity not found", err)
		case codeExclusionViolation, codeSerializationFailure, codeDeadlockDetected:
			return apperr.Wrap(apperr.ErrStore, op, "concurrent write rejected, retry", err)
		}
	}
	return apperr.Wrap(apperr.ErrStore, op, "store unavailable", err)
}
