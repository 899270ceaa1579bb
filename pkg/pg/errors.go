package pg

import "errors"

var (
	ErrEmptyConnectionString = errors.New("empty connection string")
	ErrFailedToParseConfig   = errors.New("failed to parse pool config")
	ErrFailedToOpenDB        = errors.New("failed to open database")
	ErrFailedToPingDB        = errors.New("failed to ping database")
	ErrMigrationFailed       = errors.New("migration failed")
)
