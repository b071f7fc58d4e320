package notify

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Failure is a delivery that came back with a fail tag.
type Failure struct {
	Event Event     `json:"event" bson:"event"`
	Tag   string    `json:"tag" bson:"tag"`
	Error string    `json:"error" bson:"error"`
	At    time.Time `json:"at" bson:"at"`
}

// FailureLog keeps failed deliveries for operators; nothing retries them.
type FailureLog interface {
	Record(ctx context.Context, f Failure) error
	Recent(ctx context.Context, limit int) ([]Failure, error)
}

// MemoryLog is a bounded ring of failures.
type MemoryLog struct {
	mu   sync.Mutex
	size int
	list []Failure
}

func NewMemoryLog(size int) *MemoryLog {
	if size <= 0 {
		size = 100
	}
	return &MemoryLog{size: size}
}

func (m *MemoryLog) Record(_ context.Context, f Failure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, f)
	if len(m.list) > m.size {
		m.list = m.list[len(m.list)-m.size:]
	}
	return nil
}

// Recent returns newest first.
func (m *MemoryLog) Recent(_ context.Context, limit int) ([]Failure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.list) {
		limit = len(m.list)
	}
	out := make([]Failure, 0, limit)
	for i := len(m.list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.list[i])
	}
	return out, nil
}

// FailureCollection is the collection MongoLog writes to.
const FailureCollection = "notification_failures"

// MongoLog stores failures in MongoDB.
type MongoLog struct {
	col *mongo.Collection
}

func NewMongoLog(ctx context.Context, db *mongo.Database) (*MongoLog, error) {
	col := db.Collection(FailureCollection)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "at", Value: -1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &MongoLog{col: col}, nil
}

func (m *MongoLog) Record(ctx context.Context, f Failure) error {
	_, err := m.col.InsertOne(ctx, f)
	return err
}

func (m *MongoLog) Recent(ctx context.Context, limit int) ([]Failure, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []Failure{}
	for cur.Next(ctx) {
		var f Failure
		if err := cur.Decode(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, cur.Err()
}
