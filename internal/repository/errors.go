package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateQueueNumber is returned by Create when another ticket already
// holds the queue number.
var ErrDuplicateQueueNumber = errors.New("duplicate queue number")

// ErrUnknownRedemptionRequest is returned by Create when the ticket links a
// request that does not exist.
var ErrUnknownRedemptionRequest = errors.New("unknown redemption request")

// ErrUnknownColumn is returned when a search names a column outside the searchable set.
var ErrUnknownColumn = errors.New("unknown search column")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	notNullViolation    = "23502"
	invalidTextSyntax   = "22P02"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// isNotNullViolation reports a swap whose partner row does not exist.
func isNotNullViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == notNullViolation
}

// validID reports whether id can name a uuid row. Non-uuid ids match nothing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// isMalformedID reports a uuid column compared against a non-uuid string,
// which can match no row.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextSyntax
}

// SearchableColumns lists the ticket columns a substring search may target.
var SearchableColumns = map[string]struct{}{
	"roblox_username": {},
	"contact_info":    {},
	"assigned_code":   {},
	"customer_name":   {},
}

func validateColumns(columns []string) error {
	if len(columns) == 0 {
		return ErrUnknownColumn
	}
	for _, c := range columns {
		if _, ok := SearchableColumns[c]; !ok {
			return ErrUnknownColumn
		}
	}
	return nil
}
