package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used by the repositories.
const (
	Users         = "users"
	Videos        = "videos"
	Tweets        = "tweets"
	Subscriptions = "subscriptions"
)

// Connect dials MongoDB, verifies the deployment answers a ping and returns the client together
// with the named database.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Client, *mongo.Database, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("vidtube"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, client.Database(database), nil
}

// IndexPlan lists the indexes each collection needs.
func IndexPlan() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		Users: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "fullName", Value: 1}}, Options: options.Index().SetName("full_name")},
		},
		Videos: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("owner_created")},
			{Keys: bson.D{{Key: "isPublished", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("published_created")},
		},
		Tweets: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("owner_created")},
		},
		Subscriptions: {
			{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}}, Options: options.Index().SetUnique(true).SetName("subscriber_channel_unique")},
			{Keys: bson.D{{Key: "channel", Value: 1}}, Options: options.Index().SetName("channel")},
		},
	}
}

// EnsureIndexes creates every index in IndexPlan. Existing indexes with the same definition are
// left untouched by the server.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for _, name := range []string{Users, Videos, Tweets, Subscriptions} {
		models := IndexPlan()[name]
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// IndexStatus reports, for every index in IndexPlan keyed as "collection.name", whether it
// exists on the server.
func IndexStatus(ctx context.Context, database *mongo.Database) (map[string]bool, error) {
	status := make(map[string]bool)
	for collection, models := range IndexPlan() {
		cursor, err := database.Collection(collection).Indexes().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list indexes on %s: %w", collection, err)
		}
		var existing []struct {
			Name string `bson:"name"`
		}
		if err := cursor.All(ctx, &existing); err != nil {
			return nil, fmt.Errorf("decode indexes on %s: %w", collection, err)
		}

		present := make(map[string]bool, len(existing))
		for _, idx := range existing {
			present[idx.Name] = true
		}
		for _, model := range models {
			name := *model.Options.Name
			status[collection+"."+name] = present[name]
		}
	}
	return status, nil
}

// Health adapts a client to readiness probes.
type Health struct {
	Client *mongo.Client
}

// Ping checks that the primary answers.
func (h Health) Ping(ctx context.Context) error {
	return h.Client.Ping(ctx, readpref.Primary())
}
