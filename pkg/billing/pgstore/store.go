// Package pgstore provides the PostgreSQL-backed SubscriberStore.
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkdeck/linkdeck/pkg/billing"
)

// Store implements billing.SubscriberStore on a pgx connection pool.
// Updates are conditional on the record version, giving the optimistic
// concurrency the webhook pipeline relies on.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL subscriber store. Panics on a nil pool to fail
// fast during initialization.
func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgstore: pgxpool.Pool is required")
	}
	return &Store{pool: pool}
}

const subscriberColumns = `id, email, plan, status, started_at, expires_at, customer_ref, subscription_ref, version, updated_at`

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*billing.Subscriber, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE id = $1`, id)
	return scanSubscriber(row)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*billing.Subscriber, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE lower(email) = lower($1)`, email)
	return scanSubscriber(row)
}

func (s *Store) Create(ctx context.Context, subscriber *billing.Subscriber) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscribers (id, email, plan, status, started_at, expires_at, customer_ref, subscription_ref, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
		subscriber.ID, subscriber.Email, subscriber.Plan, subscriber.Status,
		subscriber.StartedAt, subscriber.ExpiresAt,
		subscriber.CustomerRef, subscriber.SubscriptionRef, subscriber.Version)
	return err
}

// Update writes the record only if the stored version still matches, then
// bumps it. A no-rows result is disambiguated into ErrVersionConflict or
// ErrSubscriberNotFound with a follow-up existence check.
func (s *Store) Update(ctx context.Context, subscriber *billing.Subscriber) error {
	row := s.pool.QueryRow(ctx,
		`UPDATE subscribers
		 SET email = $2, plan = $3, status = $4, started_at = $5, expires_at = $6,
		     customer_ref = $7, subscription_ref = $8, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $9
		 RETURNING version, updated_at`,
		subscriber.ID, subscriber.Email, subscriber.Plan, subscriber.Status,
		subscriber.StartedAt, subscriber.ExpiresAt,
		subscriber.CustomerRef, subscriber.SubscriptionRef, subscriber.Version)

	var version int64
	var updatedAt time.Time
	if err := row.Scan(&version, &updatedAt); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		var exists bool
		if checkErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM subscribers WHERE id = $1)`, subscriber.ID,
		).Scan(&exists); checkErr != nil {
			return checkErr
		}
		if !exists {
			return billing.ErrSubscriberNotFound
		}
		return billing.ErrVersionConflict
	}

	subscriber.Version = version
	subscriber.UpdatedAt = updatedAt
	return nil
}

func (s *Store) ListBilled(ctx context.Context) ([]*billing.Subscriber, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE status <> $1`, billing.StatusNone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscribers(rows)
}

func (s *Store) ListLapsedPro(ctx context.Context, now time.Time) ([]*billing.Subscriber, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE plan = $1 AND expires_at < $2`,
		billing.PlanPro, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscribers(rows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubscriber(row scannable) (*billing.Subscriber, error) {
	var subscriber billing.Subscriber
	err := row.Scan(
		&subscriber.ID, &subscriber.Email, &subscriber.Plan, &subscriber.Status,
		&subscriber.StartedAt, &subscriber.ExpiresAt,
		&subscriber.CustomerRef, &subscriber.SubscriptionRef,
		&subscriber.Version, &subscriber.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrSubscriberNotFound
		}
		return nil, err
	}
	return &subscriber, nil
}

func collectSubscribers(rows pgx.Rows) ([]*billing.Subscriber, error) {
	var out []*billing.Subscriber
	for rows.Next() {
		subscriber, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, subscriber)
	}
	return out, rows.Err()
}
