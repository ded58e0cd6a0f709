package handlers

import (
	"context"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/events"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
)

// UserStore captures the persistence operations required by the user and auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, plain string) error
	UpdateAccount(ctx context.Context, id primitive.ObjectID, fullName, email string) (models.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (models.User, error)
	SetCoverImage(ctx context.Context, id primitive.ObjectID, url string) (models.User, error)
	AppendWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error
	ChannelProfile(ctx context.Context, username string, viewer primitive.ObjectID) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.VideoWithOwner, error)
}

// SessionManager issues, rotates and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.User, models.SessionTokens, error)
	Revoke(ctx context.Context, userID primitive.ObjectID) error
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// VideoStore captures persistence for uploaded videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) (models.Video, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	FindWithOwner(ctx context.Context, id primitive.ObjectID) (models.VideoWithOwner, error)
	List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.VideoUpdate) (models.Video, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	TogglePublish(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) (models.Tweet, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Tweet, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, content string) (models.Tweet, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SubscriptionStore captures persistence for channel subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error)
	ChannelSubscribers(ctx context.Context, channel primitive.ObjectID) (models.SubscriberList, error)
	SubscribedChannels(ctx context.Context, subscriber primitive.ObjectID) (models.ChannelList, error)
}

// MediaRelay moves stashed files to object storage and schedules their removal.
type MediaRelay interface {
	Upload(ctx context.Context, localPath string, kind media.Kind) (media.Asset, error)
	Delete(ctx context.Context, assetURL string)
}

// FileStash holds multipart files on local disk until they are relayed.
type FileStash interface {
	Save(r io.Reader, filename string) (string, error)
	Cleanup(paths ...string) error
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
