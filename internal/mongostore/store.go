// Package mongostore keeps the user, activity and trackpoint collections in
// MongoDB and answers the reports with aggregation pipelines.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jengzang/geolife-loader/internal/logging"
	"github.com/jengzang/geolife-loader/internal/models"
)

// Collection names
const (
	UserCollection       = "user"
	ActivityCollection   = "activity"
	TrackpointCollection = "trackpoint"
)

// Config holds connection settings
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store is a connected MongoDB database
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    zerolog.Logger
}

// Connect dials MongoDB and verifies the connection with a ping
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(cfg.Database),
		log:    logging.With().Str("component", "mongostore").Str("database", cfg.Database).Logger(),
	}
	s.log.Debug().Msg("Connected to MongoDB")
	return s, nil
}

// GetCollection returns a handle to one collection
func (s *Store) GetCollection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Reset drops the three collections and recreates the user.activity_id index
// used by the reports to find an activity's owner
func (s *Store) Reset(ctx context.Context) error {
	for _, name := range []string{UserCollection, ActivityCollection, TrackpointCollection} {
		if err := s.GetCollection(name).Drop(ctx); err != nil {
			return fmt.Errorf("failed to drop %s: %w", name, err)
		}
	}

	_, err := s.GetCollection(UserCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "activity_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to index user.activity_id: %w", err)
	}
	return nil
}

// InsertUsers inserts one batch of users
func (s *Store) InsertUsers(ctx context.Context, users []models.User) error {
	docs := make([]interface{}, 0, len(users))
	for _, u := range users {
		if u.ActivityIDs == nil {
			u.ActivityIDs = []int64{}
		}
		docs = append(docs, u)
	}
	return s.insertMany(ctx, UserCollection, docs)
}

// InsertActivities inserts one batch of activities
func (s *Store) InsertActivities(ctx context.Context, activities []models.Activity) error {
	docs := make([]interface{}, 0, len(activities))
	for _, a := range activities {
		docs = append(docs, a)
	}
	return s.insertMany(ctx, ActivityCollection, docs)
}

// InsertTrackpoints inserts one batch of trackpoints
func (s *Store) InsertTrackpoints(ctx context.Context, trackpoints []models.Trackpoint) error {
	docs := make([]interface{}, 0, len(trackpoints))
	for _, tp := range trackpoints {
		docs = append(docs, tp)
	}
	return s.insertMany(ctx, TrackpointCollection, docs)
}

func (s *Store) insertMany(ctx context.Context, collection string, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	res, err := s.GetCollection(collection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	s.log.Debug().Str("collection", collection).Int("inserted", len(res.InsertedIDs)).Msg("Batch inserted")
	return nil
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
