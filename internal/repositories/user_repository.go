package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for users and the queries joined onto them.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	RotateRefreshToken(ctx context.Context, id primitive.ObjectID, current, next string) error
	UnsetRefreshToken(ctx context.Context, id primitive.ObjectID) error
	SetPassword(ctx context.Context, id primitive.ObjectID, plain string) error
	UpdateAccount(ctx context.Context, id primitive.ObjectID, fullName, email string) (models.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (models.User, error)
	SetCoverImage(ctx context.Context, id primitive.ObjectID, url string) (models.User, error)
	AppendWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error
	ChannelProfile(ctx context.Context, username string, viewer primitive.ObjectID) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.VideoWithOwner, error)
}
