package billing

import "errors"

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrInvalidPayload   = errors.New("invalid webhook payload")

	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrVersionConflict    = errors.New("subscriber record was modified concurrently")

	ErrAlreadyActive = errors.New("subscription already active")
	ErrNotActive     = errors.New("subscription not active")

	ErrProviderCall = errors.New("billing provider call failed")

	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrPlanNotFound             = errors.New("plan not found")

	ErrMissingWebhookSecret = errors.New("webhook secret is required")
	ErrMissingSecretKey     = errors.New("provider secret key is required")

	ErrLockNotAcquired = errors.New("subscriber lock not acquired")
)
