// Package mongostore provides the MongoDB-backed SubscriberStore.
package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/linkdeck/linkdeck/pkg/billing"
)

const collectionName = "subscribers"

// Store implements billing.SubscriberStore on a MongoDB collection.
// Conditional updates filter on the stored version, mirroring the SQL
// backend's optimistic concurrency.
type Store struct {
	collection *mongo.Collection
}

// New creates a MongoDB subscriber store. Panics on a nil database to fail
// fast during initialization.
func New(db *mongo.Database) *Store {
	if db == nil {
		panic("mongostore: mongo.Database is required")
	}
	return &Store{collection: db.Collection(collectionName)}
}

// document is the persisted shape. UUIDs are stored as strings to keep the
// collection readable in shell tooling.
type document struct {
	ID              string     `bson:"_id"`
	Email           string     `bson:"email"`
	Plan            string     `bson:"plan"`
	Status          string     `bson:"status"`
	StartedAt       *time.Time `bson:"started_at,omitempty"`
	ExpiresAt       *time.Time `bson:"expires_at,omitempty"`
	CustomerRef     string     `bson:"customer_ref"`
	SubscriptionRef string     `bson:"subscription_ref"`
	Version         int64      `bson:"version"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*billing.Subscriber, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*billing.Subscriber, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *Store) Create(ctx context.Context, subscriber *billing.Subscriber) error {
	doc := toDocument(subscriber)
	doc.UpdatedAt = time.Now().UTC()
	_, err := s.collection.InsertOne(ctx, doc)
	return err
}

func (s *Store) Update(ctx context.Context, subscriber *billing.Subscriber) error {
	now := time.Now().UTC()
	doc := toDocument(subscriber)

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "version": subscriber.Version},
		bson.M{
			"$set": bson.M{
				"email":            doc.Email,
				"plan":             doc.Plan,
				"status":           doc.Status,
				"started_at":       doc.StartedAt,
				"expires_at":       doc.ExpiresAt,
				"customer_ref":     doc.CustomerRef,
				"subscription_ref": doc.SubscriptionRef,
				"updated_at":       now,
			},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		count, countErr := s.collection.CountDocuments(ctx, bson.M{"_id": doc.ID})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return billing.ErrSubscriberNotFound
		}
		return billing.ErrVersionConflict
	}

	subscriber.Version++
	subscriber.UpdatedAt = now
	return nil
}

func (s *Store) ListBilled(ctx context.Context) ([]*billing.Subscriber, error) {
	return s.find(ctx, bson.M{"status": bson.M{"$ne": string(billing.StatusNone)}})
}

func (s *Store) ListLapsedPro(ctx context.Context, now time.Time) ([]*billing.Subscriber, error) {
	return s.find(ctx, bson.M{
		"plan":       string(billing.PlanPro),
		"expires_at": bson.M{"$lt": now},
	})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*billing.Subscriber, error) {
	var doc document
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, billing.ErrSubscriberNotFound
		}
		return nil, err
	}
	return fromDocument(&doc)
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]*billing.Subscriber, error) {
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*billing.Subscriber
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		subscriber, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, subscriber)
	}
	return out, cursor.Err()
}

func toDocument(subscriber *billing.Subscriber) *document {
	return &document{
		ID:              subscriber.ID.String(),
		Email:           normalizeEmail(subscriber.Email),
		Plan:            string(subscriber.Plan),
		Status:          string(subscriber.Status),
		StartedAt:       subscriber.StartedAt,
		ExpiresAt:       subscriber.ExpiresAt,
		CustomerRef:     subscriber.CustomerRef,
		SubscriptionRef: subscriber.SubscriptionRef,
		Version:         subscriber.Version,
		UpdatedAt:       subscriber.UpdatedAt,
	}
}

func fromDocument(doc *document) (*billing.Subscriber, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	return &billing.Subscriber{
		ID:              id,
		Email:           doc.Email,
		Plan:            billing.PlanType(doc.Plan),
		Status:          billing.SubscriptionStatus(doc.Status),
		StartedAt:       doc.StartedAt,
		ExpiresAt:       doc.ExpiresAt,
		CustomerRef:     doc.CustomerRef,
		SubscriptionRef: doc.SubscriptionRef,
		Version:         doc.Version,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
