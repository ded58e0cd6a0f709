package repositories

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

const (
	// DefaultPageSize is used when a listing does not ask for a limit.
	DefaultPageSize int64 = 10
	// MaxPageSize caps the listing limit.
	MaxPageSize int64 = 50
)

var sortableVideoFields = map[string]bool{
	"createdAt": true,
	"views":     true,
	"duration":  true,
	"title":     true,
}

// MongoVideoRepository provides MongoDB-backed persistence for videos.
type MongoVideoRepository struct {
	videos *mongo.Collection
	now    func() time.Time
}

var _ VideoRepository = (*MongoVideoRepository)(nil)

// NewMongoVideoRepository constructs a video repository backed by the videos collection.
func NewMongoVideoRepository(database *mongo.Database) *MongoVideoRepository {
	return &MongoVideoRepository{videos: database.Collection(db.Videos), now: utcNow}
}

// Create inserts a new video.
func (r *MongoVideoRepository) Create(ctx context.Context, video models.Video) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.create")
	defer span.End()

	now := r.now()
	video.ID = primitive.NewObjectID()
	video.CreatedAt = now
	video.UpdatedAt = now

	if _, err := r.videos.InsertOne(ctx, video); err != nil {
		return models.Video{}, translate(err, "insert video")
	}
	return video, nil
}

// FindByID fetches a video without joining its owner.
func (r *MongoVideoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.find_by_id")
	defer span.End()

	var video models.Video
	if err := r.videos.FindOne(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		return models.Video{}, translate(err, "find video")
	}
	return video, nil
}

// FindWithOwner fetches a video with its owner's public view.
func (r *MongoVideoRepository) FindWithOwner(ctx context.Context, id primitive.ObjectID) (models.VideoWithOwner, error) {
	ctx, span := logging.StartSpan(ctx, "videos.find_with_owner")
	defer span.End()

	cursor, err := r.videos.Aggregate(ctx, VideoWithOwnerPipeline(id))
	if err != nil {
		return models.VideoWithOwner{}, fmt.Errorf("aggregate video: %w", err)
	}
	var videos []models.VideoWithOwner
	if err := cursor.All(ctx, &videos); err != nil {
		return models.VideoWithOwner{}, fmt.Errorf("decode video: %w", err)
	}
	if len(videos) == 0 {
		return models.VideoWithOwner{}, ErrNotFound
	}
	return videos[0], nil
}

// NormalizeVideoQuery clamps paging and drops unknown sort fields.
func NormalizeVideoQuery(query models.VideoQuery) models.VideoQuery {
	if query.Page < 1 {
		query.Page = 1
	}
	switch {
	case query.Limit < 1:
		query.Limit = DefaultPageSize
	case query.Limit > MaxPageSize:
		query.Limit = MaxPageSize
	}
	if maxPage := math.MaxInt64 / query.Limit; query.Page > maxPage {
		query.Page = maxPage
	}
	if !sortableVideoFields[query.SortBy] {
		query.SortBy = "createdAt"
	}
	query.Search = strings.TrimSpace(query.Search)
	return query
}

func videoSkip(query models.VideoQuery) int64 {
	return (query.Page - 1) * query.Limit
}

// VideoListFilter builds the filter for published videos matching query.
func VideoListFilter(query models.VideoQuery) bson.M {
	filter := bson.M{"isPublished": true}
	if !query.Owner.IsZero() {
		filter["owner"] = query.Owner
	}
	if query.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

// List returns one page of published videos.
func (r *MongoVideoRepository) List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error) {
	ctx, span := logging.StartSpan(ctx, "videos.list")
	defer span.End()

	query = NormalizeVideoQuery(query)
	filter := VideoListFilter(query)

	direction := 1
	if query.SortDesc {
		direction = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: query.SortBy, Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(videoSkip(query)).
		SetLimit(query.Limit)

	cursor, err := r.videos.Find(ctx, filter, opts)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("list videos: %w", err)
	}
	videos := []models.Video{}
	if err := cursor.All(ctx, &videos); err != nil {
		return models.VideoPage{}, fmt.Errorf("decode videos: %w", err)
	}

	total, err := r.videos.CountDocuments(ctx, filter)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("count videos: %w", err)
	}

	return models.VideoPage{Videos: videos, Page: query.Page, Limit: query.Limit, Total: total}, nil
}

// Update applies the non-nil fields of update.
func (r *MongoVideoRepository) Update(ctx context.Context, id primitive.ObjectID, update models.VideoUpdate) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.update")
	defer span.End()

	fields := bson.M{"updatedAt": r.now()}
	if update.Title != nil {
		fields["title"] = *update.Title
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Thumbnail != nil {
		fields["thumbnail"] = *update.Thumbnail
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var video models.Video
	if err := r.videos.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&video); err != nil {
		return models.Video{}, translate(err, "update video")
	}
	return video, nil
}

// Delete removes a video and returns the removed record.
func (r *MongoVideoRepository) Delete(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.delete")
	defer span.End()

	var video models.Video
	if err := r.videos.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		return models.Video{}, translate(err, "delete video")
	}
	return video, nil
}

// TogglePublish flips isPublished in a single pipeline update.
func (r *MongoVideoRepository) TogglePublish(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.toggle_publish")
	defer span.End()

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "isPublished", Value: bson.D{{Key: "$not", Value: bson.A{"$isPublished"}}}},
			{Key: "updatedAt", Value: r.now()},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var video models.Video
	if err := r.videos.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&video); err != nil {
		return models.Video{}, translate(err, "toggle publish")
	}
	return video, nil
}

// IncrementViews adds one view to the video.
func (r *MongoVideoRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := logging.StartSpan(ctx, "videos.increment_views")
	defer span.End()

	result, err := r.videos.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return translate(err, "increment views")
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
