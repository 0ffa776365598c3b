package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoKV stores values in a single collection with a TTL index on expireAt.
// Mongo's expiry monitor only sweeps about once a minute, so reads double-check
// the deadline themselves.
type MongoKV struct {
	collection *mongo.Collection
}

type mongoDoc struct {
	Key      string     `bson:"_id"`
	Value    string     `bson:"value"`
	ExpireAt *time.Time `bson:"expireAt,omitempty"`
}

// NewMongoKV binds to the kv collection of the given database and ensures the
// TTL index exists.
func NewMongoKV(ctx context.Context, db *mongo.Database) (*MongoKV, error) {
	coll := db.Collection("kv")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, err
	}
	return &MongoKV{collection: coll}, nil
}

func (m *MongoKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	doc := mongoDoc{Key: key, Value: value}
	if ttl > 0 {
		deadline := time.Now().Add(ttl)
		doc.ExpireAt = &deadline
	}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m *MongoKV) Get(ctx context.Context, key string) (string, bool, error) {
	var doc mongoDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if doc.ExpireAt != nil && time.Now().After(*doc.ExpireAt) {
		return "", false, nil
	}
	return doc.Value, true, nil
}

func (m *MongoKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := m.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return err
}

func (m *MongoKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}
