package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrWrongType   = errors.New("db: key holds the wrong kind of value")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpDel    = "DEL"
	OpHMGet  = "HMGET"
	OpHSet   = "HSET"
	OpScan   = "SCAN"
	OpGet    = "GET"
	OpSet    = "SET"
	OpExpire = "EXPIRE"
	OpZAdd   = "ZADD"
	OpZRange = "ZRANGE"
	OpZScore = "ZSCORE"
	OpZCard  = "ZCARD"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
