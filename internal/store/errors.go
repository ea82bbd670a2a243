package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// Common store error types
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")
)

// ValidationError reports invalid input, keyed by JSON field name
type ValidationError struct {
	Fields map[string][]string
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if len(ve.Fields) == 1 {
		for field, msgs := range ve.Fields {
			if len(msgs) > 0 {
				return fmt.Sprintf("validation failed: %s: %s", field, msgs[0])
			}
		}
	}
	return fmt.Sprintf("validation failed: %d fields", len(ve.Fields))
}

// Add records a message for field
func (ve *ValidationError) Add(field, message string) {
	if ve.Fields == nil {
		ve.Fields = make(map[string][]string)
	}
	ve.Fields[field] = append(ve.Fields[field], message)
}

// OrNil returns ve when it holds at least one message
func (ve *ValidationError) OrNil() error {
	if ve == nil || len(ve.Fields) == 0 {
		return nil
	}
	return ve
}

// ConvertDBError converts driver-specific errors to store errors
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	// PostgreSQL via pgx
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return convertPostgresCode(pgErr.Code, pgErr.Detail, err)
	}

	// PostgreSQL via lib/pq
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return convertPostgresCode(string(pqErr.Code), pqErr.Detail, err)
	}

	// SQLite via modernc.org/sqlite
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, liteErr.Error())
		case sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, liteErr.Error())
		}
	}

	// SQLite via mattn/go-sqlite3 (cgo builds only)
	if converted, ok := convertCgoSQLiteError(err); ok {
		return converted
	}

	return err
}

func convertPostgresCode(code, detail string, err error) error {
	switch code {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %s", ErrUniqueViolation, detail)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %s", ErrForeignKeyViolation, detail)
	}
	return err
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if the error is ErrUniqueViolation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}
