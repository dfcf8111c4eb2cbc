package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation   = "23505"
	pqInvalidTextFormat = "22P02"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// isInvalidID reports a malformed uuid key rejected by Postgres before the
// lookup ran. No row can match such a key.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextFormat
}

func notFoundOnInvalidID(err error) error {
	if isInvalidID(err) {
		return sql.ErrNoRows
	}
	return err
}
