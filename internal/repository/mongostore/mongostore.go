// Package mongostore implements the credential and booking stores on
// MongoDB.  It is selected with STORE_DRIVER=mongo.  Email uniqueness is a
// unique index on users.email, created at connect time.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/tripbook/internal/model"
	"github.com/iliyamo/tripbook/internal/repository"
)

const (
	usersCollection    = "users"
	bookingsCollection = "bookings"
)

// Store owns the client and hands out the two collection-backed stores.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, verifies the connection and makes sure the indexes
// exist.  Nested payload documents decode as maps rather than bson.D so they
// serialize back to JSON objects.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true}).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_users_email"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	_, err = s.db.Collection(bookingsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("idx_bookings_owner_created"),
	})
	if err != nil {
		return fmt.Errorf("create bookings index: %w", err)
	}
	return nil
}

func (s *Store) Users() *UserStore {
	return &UserStore{coll: s.db.Collection(usersCollection)}
}

func (s *Store) Bookings() *BookingStore {
	return &BookingStore{coll: s.db.Collection(bookingsCollection)}
}

// Ping reports whether the primary is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// UserStore is the users collection.
type UserStore struct{ coll *mongo.Collection }

func (u *UserStore) Insert(ctx context.Context, user *model.User) error {
	if _, err := u.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (u *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var out model.User
	err := u.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &out, nil
}

// BookingStore is the bookings collection.
type BookingStore struct{ coll *mongo.Collection }

func (b *BookingStore) Insert(ctx context.Context, booking *model.Booking) error {
	if _, err := b.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (b *BookingStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := b.coll.Find(ctx, bson.D{{Key: "owner_id", Value: ownerID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	out := make([]model.Booking, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	for i := range out {
		// BSON dates carry millisecond precision and decode in local time.
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}
