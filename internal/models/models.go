package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account. Any user can act as a channel for subscriptions.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username     string               `bson:"username" json:"username"`
	Email        string               `bson:"email" json:"email"`
	FullName     string               `bson:"fullName" json:"fullName"`
	Avatar       string               `bson:"avatar" json:"avatar"`
	CoverImage   string               `bson:"coverImage,omitempty" json:"coverImage"`
	Password     string               `bson:"password" json:"-"`
	RefreshToken string               `bson:"refreshToken,omitempty" json:"-"`
	WatchHistory []primitive.ObjectID `bson:"watchHistory" json:"watchHistory"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// UserView is the public subset of a user embedded into joined results.
type UserView struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username   string             `bson:"username" json:"username"`
	FullName   string             `bson:"fullName" json:"fullName"`
	Avatar     string             `bson:"avatar" json:"avatar"`
	CoverImage string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
}

// Video is an uploaded video owned by a user.
type Video struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	VideoFile   string             `bson:"videoFile" json:"videoFile"`
	Thumbnail   string             `bson:"thumbnail" json:"thumbnail"`
	Duration    float64            `bson:"duration" json:"duration"`
	Views       int64              `bson:"views" json:"views"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VideoWithOwner is a video whose owner reference has been replaced by the owner's public view.
type VideoWithOwner struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Owner       *UserView          `bson:"owner,omitempty" json:"owner"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	VideoFile   string             `bson:"videoFile" json:"videoFile"`
	Thumbnail   string             `bson:"thumbnail" json:"thumbnail"`
	Duration    float64            `bson:"duration" json:"duration"`
	Views       int64              `bson:"views" json:"views"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VideoUpdate carries the optional fields of a video edit. Nil fields are left untouched.
type VideoUpdate struct {
	Title       *string
	Description *string
	Thumbnail   *string
}

// Empty reports whether the update changes nothing.
func (u VideoUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Thumbnail == nil
}

// VideoQuery filters and pages the public video listing.
type VideoQuery struct {
	Page     int64
	Limit    int64
	Search   string
	SortBy   string
	SortDesc bool
	Owner    primitive.ObjectID
}

// VideoPage is one page of the public video listing.
type VideoPage struct {
	Videos []Video `json:"videos"`
	Page   int64   `json:"page"`
	Limit  int64   `json:"limit"`
	Total  int64   `json:"total"`
}

// Tweet is a short text post owned by a user.
type Tweet struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Owner     primitive.ObjectID `bson:"owner" json:"owner"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Subscription is the edge between a subscriber and the channel they follow.
type Subscription struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Subscriber primitive.ObjectID `bson:"subscriber" json:"subscriber"`
	Channel    primitive.ObjectID `bson:"channel" json:"channel"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ChannelProfile is the flattened channel page for a username.
type ChannelProfile struct {
	ID                        primitive.ObjectID `bson:"_id" json:"_id"`
	FullName                  string             `bson:"fullName" json:"fullName"`
	Username                  string             `bson:"username" json:"username"`
	Email                     string             `bson:"email" json:"email"`
	Avatar                    string             `bson:"avatar" json:"avatar"`
	CoverImage                string             `bson:"coverImage" json:"coverImage"`
	SubscribersCount          int64              `bson:"subscribersCount" json:"subscribersCount"`
	ChannelsSubscribedToCount int64              `bson:"channelsSubscribedToCount" json:"channelsSubscribedToCount"`
	IsSubscribed              bool               `bson:"isSubscribed" json:"isSubscribed"`
}

// SubscriberList lists the users subscribed to a channel.
type SubscriberList struct {
	Subscribers []UserView `bson:"subscribers" json:"subscribers"`
	Total       int64      `bson:"total" json:"total"`
}

// ChannelList lists the channels a user is subscribed to.
type ChannelList struct {
	Channels []UserView `bson:"channels" json:"channels"`
	Total    int64      `bson:"total" json:"total"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"-"`
}
