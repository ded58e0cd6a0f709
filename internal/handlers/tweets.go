package handlers

import (
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apierr"
	"github.com/vidtube/backend/internal/models"
)

// TweetHandler serves tweet endpoints.
type TweetHandler struct {
	Users  UserStore
	Tweets TweetStore
}

type tweetRequest struct {
	Content string `json:"content" validate:"required"`
}

type userTweets struct {
	User   models.UserView `json:"user"`
	Tweets []models.Tweet  `json:"tweets"`
}

// Create posts a tweet owned by the authenticated user.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	req, err := decodeTweet(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	tweet, err := h.Tweets.Create(ctx, models.Tweet{Owner: user.ID, Content: req.Content})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusCreated, tweet, "Tweet created successfully")
}

// ListByUser returns the tweets of the user named by the userId path value.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := pathID(r, "userId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	owner, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, notFound(err, "User not found"))
		return
	}

	tweets, err := h.Tweets.ListByOwner(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if tweets == nil {
		tweets = []models.Tweet{}
	}

	respond(ctx, w, http.StatusOK, userTweets{
		User: models.UserView{
			ID:         owner.ID,
			Username:   owner.Username,
			FullName:   owner.FullName,
			Avatar:     owner.Avatar,
			CoverImage: owner.CoverImage,
		},
		Tweets: tweets,
	}, "Tweets fetched successfully")
}

// Update edits the content of a tweet owned by the authenticated user.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	req, err := decodeTweet(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	existing, err := h.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Tweet not found"))
		return
	}
	if existing.Owner != user.ID {
		respondError(ctx, w, apierr.Forbidden("You are not allowed to update this tweet"))
		return
	}

	tweet, err := h.Tweets.UpdateContent(ctx, tweetID, req.Content)
	if err != nil {
		respondError(ctx, w, notFound(err, "Tweet not found"))
		return
	}

	respond(ctx, w, http.StatusOK, tweet, "Tweet updated successfully")
}

// Delete removes a tweet owned by the authenticated user.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	existing, err := h.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Tweet not found"))
		return
	}
	if existing.Owner != user.ID {
		respondError(ctx, w, apierr.Forbidden("You are not allowed to delete this tweet"))
		return
	}

	if err := h.Tweets.Delete(ctx, tweetID); err != nil {
		respondError(ctx, w, notFound(err, "Tweet not found"))
		return
	}

	respond(ctx, w, http.StatusOK, nil, "Tweet deleted successfully")
}

func decodeTweet(r *http.Request) (tweetRequest, error) {
	var req tweetRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validateRequest(req); err != nil {
		return req, err
	}
	return req, nil
}
