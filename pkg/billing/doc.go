// Package billing implements the subscription lifecycle and webhook-event
// processing engine: it authenticates payment-provider webhooks, decodes them
// into typed events, and applies them to subscriber billing state without
// corrupting entitlement under replay, partial failure, or concurrent
// delivery.
//
// # Pipeline
//
// An inbound delivery flows through WebhookHandler in a fixed order:
//
//	signature verification -> ParseEvent -> per-subscriber lock -> Router -> Manager -> SubscriberStore
//
// VerifySignature runs before any parsing or I/O; a forged delivery exits
// with zero side effects. The Router resolves the target subscriber and maps
// each event type to exactly one Manager operation. All operations are
// idempotent, so the at-least-once provider can redeliver freely and a 500
// response is always safe to retry.
//
// # Entitlement model
//
// The stored Subscriber.Plan is a cache of the pure EffectivePlan function
// over Status and ExpiresAt. The two may drift transiently after an
// out-of-order delivery; Manager.Sync restores the invariant, and Sweeper
// runs it periodically across all billed subscribers.
//
// # Concurrency
//
// Deliveries for different subscribers run fully in parallel. Deliveries for
// the same subscriber are serialized by a Locker, and every store write is
// conditional on the record's Version, so a racing duplicate loses with
// ErrVersionConflict instead of overwriting fresher state.
//
// # Storage
//
// SubscriberStore has three implementations: the in-memory store in this
// package, PostgreSQL in billing/pgstore, and MongoDB in billing/mongostore.
package billing
