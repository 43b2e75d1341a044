package sink

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rmf-simulator/internal/model"
)

type MongoOptions struct {
	TTL   time.Duration
	Retry RetryPolicy
}

type documentStore interface {
	insertMany(ctx context.Context, collection string, docs []any) error
	ensureIndexes(ctx context.Context, collection string, indexes []mongo.IndexModel) error
	disconnect(ctx context.Context) error
}

// MongoSink writes one document per sample into a collection per metric.
type MongoSink struct {
	store  documentStore
	ttl    time.Duration
	logger *slog.Logger
}

func OpenMongo(ctx context.Context, uri, database string, opts MongoOptions, logger *slog.Logger) (*MongoSink, error) {
	var client *mongo.Client
	dial := func(ctx context.Context) error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(ctx)
			return err
		}
		client = c
		return nil
	}
	if err := connectWithRetry(ctx, logger, "mongodb/"+database, opts.Retry, dial); err != nil {
		return nil, err
	}
	logger.Info("mongodb connected", "database", database)

	s := newMongoSink(&mongoStore{client: client, db: client.Database(database)}, opts.TTL, logger)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func newMongoSink(store documentStore, ttl time.Duration, logger *slog.Logger) *MongoSink {
	return &MongoSink{store: store, ttl: ttl, logger: logger}
}

func (s *MongoSink) Name() string {
	return "mongodb"
}

func (s *MongoSink) EnsureIndexes(ctx context.Context) error {
	for _, def := range model.Catalog {
		if err := s.store.ensureIndexes(ctx, def.Table(), indexModels(def, s.ttl)); err != nil {
			return fmt.Errorf("indexes %s: %w", def.Table(), err)
		}
	}
	return nil
}

func (s *MongoSink) Write(ctx context.Context, batch model.MetricBatch) error {
	groups := batch.ByMetric()
	for _, def := range model.Catalog {
		samples := groups[def.Name]
		if len(samples) == 0 {
			continue
		}
		docs := make([]any, 0, len(samples))
		for _, smp := range samples {
			docs = append(docs, sampleDocument(def, batch.ID, smp))
		}
		if err := s.store.insertMany(ctx, def.Table(), docs); err != nil {
			return fmt.Errorf("insert %s: %w", def.Table(), err)
		}
	}
	return nil
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.store.disconnect(ctx)
}

func sampleDocument(def model.MetricDef, batchID string, smp model.MetricSample) bson.D {
	doc := bson.D{
		{Key: "timestamp", Value: smp.Timestamp.UTC()},
		{Key: "sysplex", Value: smp.Sysplex},
		{Key: "lpar", Value: smp.LPAR},
	}
	for _, l := range def.Labels {
		doc = append(doc, bson.E{Key: l, Value: smp.Label(l)})
	}
	if def.Integer {
		doc = append(doc, bson.E{Key: def.ValueColumn, Value: int64(math.Round(smp.Value))})
	} else {
		doc = append(doc, bson.E{Key: def.ValueColumn, Value: smp.Value})
	}
	return append(doc, bson.E{Key: "batch_id", Value: batchID})
}

func indexModels(def model.MetricDef, ttl time.Duration) []mongo.IndexModel {
	tsOpts := options.Index()
	if ttl > 0 {
		tsOpts.SetExpireAfterSeconds(int32(ttl / time.Second))
	}
	labelKeys := bson.D{}
	for _, l := range def.Labels {
		labelKeys = append(labelKeys, bson.E{Key: l, Value: 1})
	}
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: tsOpts},
		{Keys: bson.D{{Key: "lpar", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "sysplex", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: labelKeys},
	}
}

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func (m *mongoStore) insertMany(ctx context.Context, collection string, docs []any) error {
	_, err := m.db.Collection(collection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

func (m *mongoStore) ensureIndexes(ctx context.Context, collection string, indexes []mongo.IndexModel) error {
	_, err := m.db.Collection(collection).Indexes().CreateMany(ctx, indexes)
	return err
}

func (m *mongoStore) disconnect(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
