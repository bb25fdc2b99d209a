package storage

import (
	"errors"
	"fmt"

	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgRaiseException      = "P0001"
)

// classify turns a gorm/pgx error into an AppError.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var ae *appErr.AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErr.Wrap(err, appErr.CodeNotFound, op+": record not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return appErr.Wrap(err, appErr.CodeConflict, fmt.Sprintf("%s: %s", op, detail(pgErr))).
				WithMeta("constraint", pgErr.ConstraintName)
		case pgForeignKeyViolation, pgCheckViolation, pgRaiseException:
			return appErr.Wrap(err, appErr.CodeInvalid, fmt.Sprintf("%s: %s", op, detail(pgErr))).
				WithMeta("constraint", pgErr.ConstraintName)
		}
	}
	return appErr.Wrap(err, appErr.CodeStorage, op+" failed")
}

func detail(e *pgconn.PgError) string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

func notFound(op string, id any) error {
	return appErr.Newf(appErr.CodeNotFound, "%s: %v not found", op, id)
}
