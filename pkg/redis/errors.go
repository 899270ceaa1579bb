package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("empty connection url")
	ErrFailedToParseURL   = errors.New("failed to parse redis url")
	ErrFailedToPing       = errors.New("failed to ping redis")
	ErrLockFailed         = errors.New("failed to acquire lock")
)
