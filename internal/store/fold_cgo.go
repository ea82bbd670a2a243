//go:build cgo

package store

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
)

// cgoSQLiteDriver is mattn/go-sqlite3 with the fold function registered on
// every connection.
const cgoSQLiteDriver = "sqlite3_faithdive"

func init() {
	sql.Register(cgoSQLiteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(foldFunction, fold, true)
		},
	})
}
