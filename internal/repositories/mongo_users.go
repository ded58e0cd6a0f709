package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/passwords"
)

// MongoUserRepository provides MongoDB-backed persistence for users.
type MongoUserRepository struct {
	users *mongo.Collection
	now   func() time.Time
}

var _ UserRepository = (*MongoUserRepository)(nil)

// NewMongoUserRepository constructs a user repository backed by the users collection.
func NewMongoUserRepository(database *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: database.Collection(db.Users), now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

// Create hashes the plain password carried by user and inserts the record. Username and email are
// stored lowercase.
func (r *MongoUserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "users.create")
	defer span.End()

	hashed, err := passwords.Hash(user.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := r.now()
	user.ID = primitive.NewObjectID()
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Password = hashed
	user.RefreshToken = ""
	if user.WatchHistory == nil {
		user.WatchHistory = []primitive.ObjectID{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		return models.User{}, translate(err, "insert user")
	}
	return user, nil
}

// FindByID fetches a user by id.
func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "users.find_by_id")
	defer span.End()

	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return models.User{}, translate(err, "find user")
	}
	return user, nil
}

// FindByUsernameOrEmail fetches the user matching either identifier. Blank identifiers are ignored.
func (r *MongoUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "users.find_by_identifier")
	defer span.End()

	var or bson.A
	if username = strings.ToLower(strings.TrimSpace(username)); username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return models.User{}, ErrNotFound
	}

	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"$or": or}).Decode(&user); err != nil {
		return models.User{}, translate(err, "find user by identifier")
	}
	return user, nil
}

// SetRefreshToken overwrites the single stored refresh token.
func (r *MongoUserRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	ctx, span := logging.StartSpan(ctx, "users.set_refresh_token")
	defer span.End()

	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": r.now()}}, "set refresh token")
}

// RotateRefreshToken swaps current for next in one conditional write.
func (r *MongoUserRepository) RotateRefreshToken(ctx context.Context, id primitive.ObjectID, current, next string) error {
	ctx, span := logging.StartSpan(ctx, "users.rotate_refresh_token")
	defer span.End()

	filter := bson.M{"_id": id, "refreshToken": current}
	result, err := r.users.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"refreshToken": next, "updatedAt": r.now()}})
	if err != nil {
		return translate(err, "rotate refresh token")
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UnsetRefreshToken removes the stored refresh token.
func (r *MongoUserRepository) UnsetRefreshToken(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := logging.StartSpan(ctx, "users.unset_refresh_token")
	defer span.End()

	return r.updateOne(ctx, id, bson.M{
		"$unset": bson.M{"refreshToken": 1},
		"$set":   bson.M{"updatedAt": r.now()},
	}, "unset refresh token")
}

// SetPassword hashes plain and stores it as the user's password.
func (r *MongoUserRepository) SetPassword(ctx context.Context, id primitive.ObjectID, plain string) error {
	ctx, span := logging.StartSpan(ctx, "users.set_password")
	defer span.End()

	hashed, err := passwords.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"password": hashed, "updatedAt": r.now()}}, "set password")
}

// UpdateAccount changes the display name and email.
func (r *MongoUserRepository) UpdateAccount(ctx context.Context, id primitive.ObjectID, fullName, email string) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "users.update_account")
	defer span.End()

	return r.findAndSet(ctx, id, bson.M{
		"fullName": strings.TrimSpace(fullName),
		"email":    strings.ToLower(strings.TrimSpace(email)),
	}, "update account")
}

// SetAvatar stores a new avatar URL.
func (r *MongoUserRepository) SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "users.set_avatar")
	defer span.End()

	return r.findAndSet(ctx, id, bson.M{"avatar": url}, "set avatar")
}

// SetCoverImage stores a new cover image URL.
func (r *MongoUserRepository) SetCoverImage(ctx context.Context, id primitive.ObjectID, url string) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "users.set_cover_image")
	defer span.End()

	return r.findAndSet(ctx, id, bson.M{"coverImage": url}, "set cover image")
}

// AppendWatchHistory records videoID at the end of the user's watch history.
func (r *MongoUserRepository) AppendWatchHistory(ctx context.Context, id, videoID primitive.ObjectID) error {
	ctx, span := logging.StartSpan(ctx, "users.append_watch_history")
	defer span.End()

	return r.updateOne(ctx, id, bson.M{"$push": bson.M{"watchHistory": videoID}}, "append watch history")
}

// ChannelProfile loads the channel page for username as seen by viewer.
func (r *MongoUserRepository) ChannelProfile(ctx context.Context, username string, viewer primitive.ObjectID) (models.ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "users.channel_profile")
	defer span.End()

	cursor, err := r.users.Aggregate(ctx, ChannelProfilePipeline(username, viewer))
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("aggregate channel profile: %w", err)
	}
	var profiles []models.ChannelProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return models.ChannelProfile{}, fmt.Errorf("decode channel profile: %w", err)
	}
	if len(profiles) == 0 {
		return models.ChannelProfile{}, ErrNotFound
	}
	return profiles[0], nil
}

type watchHistoryRow struct {
	WatchHistory  []primitive.ObjectID    `bson:"watchHistory"`
	WatchedVideos []models.VideoWithOwner `bson:"watchedVideos"`
}

// WatchHistory returns the watched videos in stored order. Repeated views are kept and ids whose
// video no longer exists are skipped.
func (r *MongoUserRepository) WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.VideoWithOwner, error) {
	ctx, span := logging.StartSpan(ctx, "users.watch_history")
	defer span.End()

	cursor, err := r.users.Aggregate(ctx, WatchHistoryPipeline(id))
	if err != nil {
		return nil, fmt.Errorf("aggregate watch history: %w", err)
	}
	var rows []watchHistoryRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode watch history: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return orderHistory(rows[0].WatchHistory, rows[0].WatchedVideos), nil
}

func orderHistory(order []primitive.ObjectID, videos []models.VideoWithOwner) []models.VideoWithOwner {
	byID := make(map[primitive.ObjectID]models.VideoWithOwner, len(videos))
	for _, video := range videos {
		byID[video.ID] = video
	}
	out := make([]models.VideoWithOwner, 0, len(order))
	for _, id := range order {
		if video, ok := byID[id]; ok {
			out = append(out, video)
		}
	}
	return out
}

func (r *MongoUserRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M, op string) error {
	result, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err, op)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) findAndSet(ctx context.Context, id primitive.ObjectID, fields bson.M, op string) (models.User, error) {
	fields["updatedAt"] = r.now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&user); err != nil {
		return models.User{}, translate(err, op)
	}
	return user, nil
}
