package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoOptions configures [DialMongo] and [NewMongo].
type MongoOptions struct {
	URI             string
	Database        string
	Collection      string
	ConnectAttempts int
	ConnectDelay    time.Duration
}

type mongoRecord struct {
	ID        string     `bson:"_id"`
	Data      []byte     `bson:"data"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// Mongo is a MongoDB-backed [Store]. One document per session; reclamation
// of expired records belongs to a TTL index on expires_at, with a lazy
// expiry check on Load because the TTL monitor runs on a coarse interval.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo wraps an existing client. Call [Mongo.EnsureIndexes] once before
// serving traffic.
func NewMongo(client *mongo.Client, opts MongoOptions) *Mongo {
	return &Mongo{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}
}

// DialMongo connects to the configured URI with bounded retry: up to
// ConnectAttempts tries with ConnectDelay between them, then gives up with
// [ErrUnavailable].
func DialMongo(ctx context.Context, opts MongoOptions) (*Mongo, error) {
	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 && opts.ConnectDelay > 0 {
			select {
			case <-time.After(opts.ConnectDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}

		client, err := mongo.Connect(options.Client().ApplyURI(opts.URI))
		if err != nil {
			lastErr = err
			continue
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			lastErr = err
			_ = client.Disconnect(ctx)
			continue
		}
		return NewMongo(client, opts), nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// EnsureIndexes creates the TTL index that makes MongoDB reclaim expired
// session documents natively. Idempotent.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Load implements [Store].
func (m *Mongo) Load(ctx context.Context, id string) ([]byte, error) {
	var rec mongoRecord
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if rec.ExpiresAt != nil && !rec.ExpiresAt.After(time.Now()) {
		// The TTL monitor has not swept this document yet.
		_, _ = m.coll.DeleteOne(ctx, bson.M{"_id": id})
		return nil, ErrNotFound
	}

	return rec.Data, nil
}

// Save implements [Store].
func (m *Mongo) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	rec := m.record(id, data, ttl)
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": id}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Create implements [Store]. The unique _id index makes the insert an
// atomic insert-if-absent.
func (m *Mongo) Create(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	_, err := m.coll.InsertOne(ctx, m.record(id, data, ttl))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements [Store].
func (m *Mongo) Delete(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Touch implements [Store].
func (m *Mongo) Touch(ctx context.Context, id string, ttl time.Duration) error {
	var update bson.M
	if ttl <= 0 {
		update = bson.M{"$unset": bson.M{"expires_at": ""}}
	} else {
		update = bson.M{"$set": bson.M{"expires_at": time.Now().Add(ttl)}}
	}

	res, err := m.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping implements [Store].
func (m *Mongo) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) record(id string, data []byte, ttl time.Duration) mongoRecord {
	rec := mongoRecord{ID: id, Data: data}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		rec.ExpiresAt = &expires
	}
	return rec
}
