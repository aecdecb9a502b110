package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	log.Println("Connected to MongoDB")
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}

func (db *DB) collection(name string) *mongo.Collection {
	return db.Database.Collection(name)
}

// ReadOnce implements Remote.
func (db *DB) ReadOnce(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := db.collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return toDocument(raw), nil
}

// QueryOnce implements Remote.
func (db *DB) QueryOnce(ctx context.Context, collection string, q Query) ([]Document, error) {
	filter := bson.M{}
	if q.EqualField != "" {
		filter[q.EqualField] = q.EqualValue
	}
	opts := options.Find()
	if q.OrderBy != "" {
		// Fetch the highest-valued records first, then restore ascending
		// order so the snapshot arrives sorted by the metric with only the
		// last LimitToLast entries present.
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: -1}})
		if q.LimitToLast > 0 {
			opts.SetLimit(int64(q.LimitToLast))
		}
	} else {
		opts.SetSort(bson.D{{Key: "_id", Value: 1}})
	}
	cur, err := db.collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			log.Printf("query %s: skipping undecodable document: %v", collection, err)
			continue
		}
		docs = append(docs, toDocument(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if q.OrderBy != "" {
		reverse(docs)
	}
	return docs, nil
}

// Write implements Remote. The write is an upsert so creating and replacing
// are the same operation, matching the remote store contract.
func (db *DB) Write(ctx context.Context, collection, id string, fields map[string]any) error {
	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = id
	opts := options.Replace().SetUpsert(true)
	if _, err := db.collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// UpdateFields implements Remote.
func (db *DB) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	if _, err := db.collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Delete implements Remote. Deleting an absent document succeeds.
func (db *DB) Delete(ctx context.Context, collection, id string) error {
	if _, err := db.collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Subscribe implements Remote. A change stream on the collection triggers a
// re-run of the shaped query after every event, so each delivery is the
// complete current result in server order, never a delta.
func (db *DB) Subscribe(ctx context.Context, collection string, q Query, onSnapshot func([]Document), onError func(error)) (Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	sub := &mongoSubscription{cancel: cancel}

	stream, err := db.collection(collection).Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrSyncLost, err)
	}

	docs, err := db.QueryOnce(ctx, collection, q)
	if err != nil {
		stream.Close(context.Background())
		cancel()
		return nil, err
	}
	sub.deliver(func() { onSnapshot(docs) })

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			snapshot, err := db.QueryOnce(streamCtx, collection, q)
			if err != nil {
				sub.deliver(func() { onError(fmt.Errorf("%w: %v", ErrSyncLost, err)) })
				return
			}
			sub.deliver(func() { onSnapshot(snapshot) })
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			sub.deliver(func() { onError(fmt.Errorf("%w: %v", ErrSyncLost, err)) })
		}
	}()
	return sub, nil
}

// mongoSubscription guards callback delivery so nothing runs after Close.
type mongoSubscription struct {
	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// deliver runs fn unless the subscription is closed. The lock is released
// before fn runs so a callback may call Close without deadlocking.
func (s *mongoSubscription) deliver(fn func()) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	fn()
}

func (s *mongoSubscription) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	return nil
}

func toDocument(raw bson.M) Document {
	doc := Document{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			doc.ID = fmt.Sprint(v)
			continue
		}
		doc.Fields[k] = v
	}
	return doc
}

func reverse(docs []Document) {
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
}
