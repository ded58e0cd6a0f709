package repositories

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vidtube/backend/internal/db"
)

var (
	// owner projection embedded into videos
	videoOwnerFields = bson.D{
		{Key: "username", Value: 1},
		{Key: "email", Value: 1},
		{Key: "fullName", Value: 1},
		{Key: "avatar", Value: 1},
		{Key: "coverImage", Value: 1},
	}
	historyOwnerFields = bson.D{
		{Key: "fullName", Value: 1},
		{Key: "username", Value: 1},
		{Key: "avatar", Value: 1},
	}
	relationFields = bson.D{
		{Key: "fullName", Value: 1},
		{Key: "username", Value: 1},
		{Key: "avatar", Value: 1},
		{Key: "coverImage", Value: 1},
		{Key: "email", Value: 1},
	}
)

// lookupOne joins a single related document and flattens the joined array with $first.
func lookupOne(from, localField, as string, projection bson.D) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: localField},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: as},
			{Key: "pipeline", Value: mongo.Pipeline{{{Key: "$project", Value: projection}}}},
		}}},
		{{Key: "$addFields", Value: bson.D{{Key: as, Value: bson.D{{Key: "$first", Value: "$" + as}}}}}},
	}
}

// ChannelProfilePipeline builds the channel page for username. A nil viewer is never subscribed.
func ChannelProfilePipeline(username string, viewer primitive.ObjectID) mongo.Pipeline {
	var isSubscribed any = bson.D{{Key: "$literal", Value: false}}
	if !viewer.IsZero() {
		isSubscribed = bson.D{{Key: "$cond", Value: bson.D{
			{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{viewer, "$subscribers.subscriber"}}}},
			{Key: "then", Value: true},
			{Key: "else", Value: false},
		}}}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "username", Value: strings.ToLower(strings.TrimSpace(username))}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: db.Subscriptions},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "channel"},
			{Key: "as", Value: "subscribers"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: db.Subscriptions},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "subscriber"},
			{Key: "as", Value: "subscribedTo"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "subscribersCount", Value: bson.D{{Key: "$size", Value: "$subscribers"}}},
			{Key: "channelsSubscribedToCount", Value: bson.D{{Key: "$size", Value: "$subscribedTo"}}},
			{Key: "isSubscribed", Value: isSubscribed},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "fullName", Value: 1},
			{Key: "username", Value: 1},
			{Key: "subscribersCount", Value: 1},
			{Key: "channelsSubscribedToCount", Value: 1},
			{Key: "isSubscribed", Value: 1},
			{Key: "avatar", Value: 1},
			{Key: "coverImage", Value: 1},
			{Key: "email", Value: 1},
		}}},
	}
}

// relationPipeline starts at a user, joins subscription rows where the user sits on side and
// resolves the opposite user of each row into its public view.
func relationPipeline(userID primitive.ObjectID, side, other, as string) mongo.Pipeline {
	// Rows whose user no longer exists are dropped before counting.
	nested := append(lookupOne(db.Users, other, other, relationFields),
		bson.D{{Key: "$match", Value: bson.D{{Key: other, Value: bson.D{{Key: "$exists", Value: true}}}}}},
	)

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: db.Subscriptions},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: side},
			{Key: "as", Value: as},
			{Key: "pipeline", Value: nested},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "total", Value: bson.D{{Key: "$size", Value: "$" + as}}},
			{Key: as, Value: "$" + as + "." + other},
		}}},
		{{Key: "$project", Value: bson.D{{Key: as, Value: 1}, {Key: "total", Value: 1}}}},
	}
}

// ChannelSubscribersPipeline lists the users subscribed to channel.
func ChannelSubscribersPipeline(channel primitive.ObjectID) mongo.Pipeline {
	return relationPipeline(channel, "channel", "subscriber", "subscribers")
}

// SubscribedChannelsPipeline lists the channels subscriber follows.
func SubscribedChannelsPipeline(subscriber primitive.ObjectID) mongo.Pipeline {
	return relationPipeline(subscriber, "subscriber", "channel", "channels")
}

// WatchHistoryPipeline joins the watched videos, each with a compact owner view. The stored
// watchHistory ids are kept alongside so the caller can restore their order.
func WatchHistoryPipeline(userID primitive.ObjectID) mongo.Pipeline {
	nested := lookupOne(db.Users, "owner", "owner", historyOwnerFields)

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: db.Videos},
			{Key: "localField", Value: "watchHistory"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "watchedVideos"},
			{Key: "pipeline", Value: nested},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "watchHistory", Value: 1}, {Key: "watchedVideos", Value: 1}}}},
	}
}

// VideoWithOwnerPipeline loads one video with its owner's public view.
func VideoWithOwnerPipeline(videoID primitive.ObjectID) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: videoID}}}},
	}
	return append(pipeline, lookupOne(db.Users, "owner", "owner", videoOwnerFields)...)
}
