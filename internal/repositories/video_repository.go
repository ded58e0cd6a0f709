package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/models"
)

// VideoRepository defines the data access contract for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) (models.Video, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	FindWithOwner(ctx context.Context, id primitive.ObjectID) (models.VideoWithOwner, error)
	List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.VideoUpdate) (models.Video, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	TogglePublish(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
}
