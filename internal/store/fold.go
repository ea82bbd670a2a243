package store

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// foldFunction lowercases text with Unicode rules. SQLite's LOWER and LIKE
// only fold ASCII, so text searches compare foldFunction(column) against a
// pattern folded the same way in Go.
const foldFunction = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunction, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return fold(v), nil
		case []byte:
			return fold(string(v)), nil
		default:
			return v, nil
		}
	})
}

func fold(s string) string {
	return strings.ToLower(s)
}

// sqlDriverName returns the database/sql name to open for a configured driver
func sqlDriverName(driver string) string {
	if driver == "sqlite3" {
		return cgoSQLiteDriver
	}
	return driver
}

// containsFolded builds a case-insensitive substring condition over columns
// and the matching arguments.
func containsFolded(dialect Dialect, q string, columns ...string) (string, []any) {
	pattern := likePattern(fold(q))
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		if dialect == DialectPostgres {
			conds[i] = col + ` ILIKE ? ESCAPE '\'`
			args[i] = likePattern(q)
		} else {
			conds[i] = foldFunction + "(" + col + `) LIKE ? ESCAPE '\'`
			args[i] = pattern
		}
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}
