//go:build !cgo

package store

// Without cgo the stub "sqlite3" driver reports the missing toolchain on open.
const cgoSQLiteDriver = "sqlite3"
