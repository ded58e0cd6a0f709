package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/models"
)

// TweetRepository defines the data access contract for tweets.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) (models.Tweet, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Tweet, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, content string) (models.Tweet, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
