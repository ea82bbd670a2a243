//go:build cgo

package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

func convertCgoSQLiteError(err error) (error, bool) {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return nil, false
	}
	switch liteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %s", ErrUniqueViolation, liteErr.Error()), true
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %s", ErrForeignKeyViolation, liteErr.Error()), true
	}
	return nil, false
}
