package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// MongoTweetRepository provides MongoDB-backed persistence for tweets.
type MongoTweetRepository struct {
	tweets *mongo.Collection
	now    func() time.Time
}

var _ TweetRepository = (*MongoTweetRepository)(nil)

// NewMongoTweetRepository constructs a tweet repository backed by the tweets collection.
func NewMongoTweetRepository(database *mongo.Database) *MongoTweetRepository {
	return &MongoTweetRepository{tweets: database.Collection(db.Tweets), now: utcNow}
}

// Create inserts a tweet.
func (r *MongoTweetRepository) Create(ctx context.Context, tweet models.Tweet) (models.Tweet, error) {
	ctx, span := logging.StartSpan(ctx, "tweets.create")
	defer span.End()

	now := r.now()
	tweet.ID = primitive.NewObjectID()
	tweet.CreatedAt = now
	tweet.UpdatedAt = now

	if _, err := r.tweets.InsertOne(ctx, tweet); err != nil {
		return models.Tweet{}, translate(err, "insert tweet")
	}
	return tweet, nil
}

// FindByID fetches a tweet by id.
func (r *MongoTweetRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Tweet, error) {
	ctx, span := logging.StartSpan(ctx, "tweets.find_by_id")
	defer span.End()

	var tweet models.Tweet
	if err := r.tweets.FindOne(ctx, bson.M{"_id": id}).Decode(&tweet); err != nil {
		return models.Tweet{}, translate(err, "find tweet")
	}
	return tweet, nil
}

// ListByOwner returns the owner's tweets, newest first.
func (r *MongoTweetRepository) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Tweet, error) {
	ctx, span := logging.StartSpan(ctx, "tweets.list_by_owner")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.tweets.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	tweets := []models.Tweet{}
	if err := cursor.All(ctx, &tweets); err != nil {
		return nil, fmt.Errorf("decode tweets: %w", err)
	}
	return tweets, nil
}

// UpdateContent replaces a tweet's content.
func (r *MongoTweetRepository) UpdateContent(ctx context.Context, id primitive.ObjectID, content string) (models.Tweet, error) {
	ctx, span := logging.StartSpan(ctx, "tweets.update_content")
	defer span.End()

	update := bson.M{"$set": bson.M{"content": content, "updatedAt": r.now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tweet models.Tweet
	if err := r.tweets.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&tweet); err != nil {
		return models.Tweet{}, translate(err, "update tweet")
	}
	return tweet, nil
}

// Delete removes a tweet.
func (r *MongoTweetRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := logging.StartSpan(ctx, "tweets.delete")
	defer span.End()

	result, err := r.tweets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "delete tweet")
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
