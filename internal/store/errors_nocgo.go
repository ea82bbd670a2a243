//go:build !cgo

package store

import (
	_ "github.com/mattn/go-sqlite3" // registers a stub "sqlite3" driver that reports the missing cgo toolchain
)

func convertCgoSQLiteError(error) (error, bool) {
	return nil, false
}
