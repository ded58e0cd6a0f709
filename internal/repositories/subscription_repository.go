package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/models"
)

// SubscriptionRepository defines the data access contract for channel subscriptions.
type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error)
	ChannelSubscribers(ctx context.Context, channel primitive.ObjectID) (models.SubscriberList, error)
	SubscribedChannels(ctx context.Context, subscriber primitive.ObjectID) (models.ChannelList, error)
}
