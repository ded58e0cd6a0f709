package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// MongoSubscriptionRepository provides MongoDB-backed persistence for subscriptions. The relation
// queries start from the users collection so an unknown user resolves to ErrNotFound.
type MongoSubscriptionRepository struct {
	subscriptions *mongo.Collection
	users         *mongo.Collection
	now           func() time.Time
}

var _ SubscriptionRepository = (*MongoSubscriptionRepository)(nil)

// NewMongoSubscriptionRepository constructs a subscription repository.
func NewMongoSubscriptionRepository(database *mongo.Database) *MongoSubscriptionRepository {
	return &MongoSubscriptionRepository{
		subscriptions: database.Collection(db.Subscriptions),
		users:         database.Collection(db.Users),
		now:           utcNow,
	}
}

// Toggle removes the subscription when it exists and creates it otherwise. It reports whether the
// subscriber is subscribed afterwards. A concurrent insert that hits the unique index counts as
// subscribed.
func (r *MongoSubscriptionRepository) Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	ctx, span := logging.StartSpan(ctx, "subscriptions.toggle")
	defer span.End()

	filter := bson.M{"subscriber": subscriber, "channel": channel}
	deleted, err := r.subscriptions.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if deleted.DeletedCount > 0 {
		return false, nil
	}

	now := r.now()
	_, err = r.subscriptions.InsertOne(ctx, models.Subscription{
		ID:         primitive.NewObjectID(),
		Subscriber: subscriber,
		Channel:    channel,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	return true, nil
}

// ChannelSubscribers lists the public views of users subscribed to channel.
func (r *MongoSubscriptionRepository) ChannelSubscribers(ctx context.Context, channel primitive.ObjectID) (models.SubscriberList, error) {
	ctx, span := logging.StartSpan(ctx, "subscriptions.channel_subscribers")
	defer span.End()

	var rows []models.SubscriberList
	if err := r.aggregate(ctx, ChannelSubscribersPipeline(channel), &rows); err != nil {
		return models.SubscriberList{}, err
	}
	if len(rows) == 0 {
		return models.SubscriberList{}, ErrNotFound
	}
	if rows[0].Subscribers == nil {
		rows[0].Subscribers = []models.UserView{}
	}
	return rows[0], nil
}

// SubscribedChannels lists the public views of channels subscriber follows.
func (r *MongoSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriber primitive.ObjectID) (models.ChannelList, error) {
	ctx, span := logging.StartSpan(ctx, "subscriptions.subscribed_channels")
	defer span.End()

	var rows []models.ChannelList
	if err := r.aggregate(ctx, SubscribedChannelsPipeline(subscriber), &rows); err != nil {
		return models.ChannelList{}, err
	}
	if len(rows) == 0 {
		return models.ChannelList{}, ErrNotFound
	}
	if rows[0].Channels == nil {
		rows[0].Channels = []models.UserView{}
	}
	return rows[0], nil
}

func (r *MongoSubscriptionRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate subscriptions: %w", err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode subscriptions: %w", err)
	}
	return nil
}
