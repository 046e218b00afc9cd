package presence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// visitorRetentionSeconds is how long a visitor record survives after its
// last activity before the TTL monitor deletes it.
const visitorRetentionSeconds = 24 * 60 * 60

// MongoStore persists visitors in a MongoDB collection. Old records are
// removed by a TTL index on lastActivity rather than application code.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a visitor store backed by the "visitors" collection
// of the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("visitors")}
}

// EnsureIndexes creates the indexes the store depends on: the unique session
// key, the 24h TTL on last activity, and the live-count query index. Index
// creation is idempotent; call it on startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "lastActivity", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(visitorRetentionSeconds),
		},
		{
			Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "lastActivity", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create visitor indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Upsert(ctx context.Context, p JoinParams, now time.Time) error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}

	update := bson.M{
		"$set": bson.M{
			"socketId":     p.SocketID,
			"page":         p.Page,
			"isActive":     true,
			"lastActivity": now,
		},
		// Address and agent are captured at first contact and never
		// rewritten by later heartbeats.
		"$setOnInsert": bson.M{
			"ipAddress":  p.IPAddress,
			"userAgent":  p.UserAgent,
			"firstVisit": now,
		},
	}

	_, err := s.coll.UpdateOne(ctx, bson.M{"sessionId": p.SessionID}, update,
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert visitor: %w", err)
	}
	return nil
}

func (s *MongoStore) Deactivate(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	if sessionID == "" {
		return false, ErrMissingSessionID
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"sessionId": sessionID}, bson.M{
		"$set":   bson.M{"isActive": false, "lastActivity": now},
		"$unset": bson.M{"socketId": ""},
	})
	if err != nil {
		return false, fmt.Errorf("failed to deactivate visitor: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DeactivateBySocket(ctx context.Context, socketID string, now time.Time) (bool, error) {
	if socketID == "" {
		return false, ErrMissingSocketID
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"socketId": socketID}, bson.M{
		"$set":   bson.M{"isActive": false, "lastActivity": now},
		"$unset": bson.M{"socketId": ""},
	})
	if err != nil {
		return false, fmt.Errorf("failed to deactivate visitor by socket: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, bson.M{
		"isActive":     true,
		"lastActivity": bson.M{"$lt": cutoff},
	}, bson.M{
		"$set":   bson.M{"isActive": false},
		"$unset": bson.M{"socketId": ""},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate stale visitors: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) LiveCount(ctx context.Context, since time.Time) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{
		"isActive":     true,
		"lastActivity": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count live visitors: %w", err)
	}
	return count, nil
}

func (s *MongoStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{
		"firstVisit": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return count, nil
}

func (s *MongoStore) Total(ctx context.Context) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count all visitors: %w", err)
	}
	return count, nil
}
