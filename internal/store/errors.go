package store

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/quorum/internal/apperr"
)

// mapErr converts driver errors into coded errors. Constraint violations and
// busy/locked states surface as CONFLICT; anything unrecognised is returned
// unchanged and becomes UNKNOWN at the boundary.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *apperr.Error
	if errors.As(err, &coded) {
		return err
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrConstraint:
			return apperr.Conflict("conflicting concurrent change").WithCause(err)
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return apperr.Conflict("storage is busy, retry the request").WithCause(err)
		}
	}
	return err
}

// notFound maps sql.ErrNoRows to a NOT_FOUND error with msg.
func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(msg)
	}
	return mapErr(err)
}

// expectOne fails with a NOT_FOUND error when res did not touch exactly one row.
func expectOne(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return apperr.NotFound(msg)
	}
	return nil
}
