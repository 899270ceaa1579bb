package mongo

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("empty connection url")
	ErrEmptyDatabaseName  = errors.New("empty database name")
	ErrFailedToConnect    = errors.New("failed to connect to mongodb")
	ErrFailedToPing       = errors.New("failed to ping mongodb")
)
