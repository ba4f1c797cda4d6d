package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// DefaultDatabase is used when no database name is configured.
	DefaultDatabase = "pkgscope"

	reportsCollection = "reports"
	disconnectTimeout = 5 * time.Second
)

// MongoStore archives reports in the "reports" collection.
type MongoStore struct {
	client  *mongo.Client
	reports *mongo.Collection
}

// reportDocument is the stored shape of a Report.
type reportDocument struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	Package   string    `bson:"package"`
	Version   string    `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	Payload   []byte    `bson:"payload"`
}

// NewMongoStore connects to uri, verifies the connection and ensures the
// package/created_at index exists.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{
		client:  client,
		reports: client.Database(database).Collection(reportsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.reports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "package", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("create report index: %w", err)
	}
	return nil
}

func (s *MongoStore) SaveReport(ctx context.Context, r *Report) error {
	_, err := s.reports.InsertOne(ctx, reportDocument{
		ID:        r.ID,
		Kind:      string(r.Kind),
		Package:   r.Package,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		Payload:   r.Payload,
	})
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *MongoStore) RecentReports(ctx context.Context, pkg string, limit int) ([]*Report, error) {
	filter := bson.D{}
	if pkg != "" {
		filter = bson.D{{Key: "package", Value: pkg}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cur, err := s.reports.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	var docs []reportDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}

	out := make([]*Report, len(docs))
	for i, d := range docs {
		out[i] = &Report{
			ID:        d.ID,
			Kind:      Kind(d.Kind),
			Package:   d.Package,
			Version:   d.Version,
			CreatedAt: d.CreatedAt,
			Payload:   d.Payload,
		}
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
