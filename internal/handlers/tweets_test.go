package handlers

import (
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/models"
)

func TestTweetHandlerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "dennis", "c")
	other := env.seedUser(t, "bjarne", "cpp")
	ownerToken := env.tokenFor(t, owner)
	otherToken := env.tokenFor(t, other)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/v1/tweets", ownerToken, map[string]string{"content": "  hello, world  "}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var tweet models.Tweet
	decodeEnvelope(t, rec, &tweet)
	if tweet.Owner != owner.ID || tweet.Content != "hello, world" {
		t.Fatalf("unexpected tweet %+v", tweet)
	}
	target := "/api/v1/tweets/" + tweet.ID.Hex()

	rec = env.do(jsonRequest(t, http.MethodPatch, target, otherToken, map[string]string{"content": "mine now"}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected non-owner update to be forbidden, got %d", rec.Code)
	}

	rec = env.do(jsonRequest(t, http.MethodPatch, target, ownerToken, map[string]string{"content": ""}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected empty content to fail, got %d", rec.Code)
	}

	rec = env.do(jsonRequest(t, http.MethodPatch, target, ownerToken, map[string]string{"content": "edited"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	decodeEnvelope(t, rec, &tweet)
	if tweet.Content != "edited" {
		t.Fatalf("expected edited content, got %q", tweet.Content)
	}

	rec = env.do(jsonRequest(t, http.MethodGet, "/api/v1/tweets/user/"+owner.ID.Hex(), "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var listed userTweets
	decodeEnvelope(t, rec, &listed)
	if listed.User.ID != owner.ID || len(listed.Tweets) != 1 {
		t.Fatalf("unexpected listing %+v", listed)
	}

	if rec := env.do(jsonRequest(t, http.MethodDelete, target, otherToken, nil)); rec.Code != http.StatusForbidden {
		t.Fatalf("expected non-owner delete to be forbidden, got %d", rec.Code)
	}
	if rec := env.do(jsonRequest(t, http.MethodDelete, target, ownerToken, nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if rec := env.do(jsonRequest(t, http.MethodDelete, target, ownerToken, nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted tweet to be gone, got %d", rec.Code)
	}
}

func TestTweetHandlerListByUserFailures(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name       string
		userID     string
		wantStatus int
	}{
		{"malformedID", "not-an-id", http.StatusBadRequest},
		{"unknownUser", primitive.NewObjectID().Hex(), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(jsonRequest(t, http.MethodGet, "/api/v1/tweets/user/"+tc.userID, "", nil))
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestTweetHandlerListByUserEmpty(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "quiet", "pw")

	rec := env.do(jsonRequest(t, http.MethodGet, "/api/v1/tweets/user/"+user.ID.Hex(), "", nil))
	var listed map[string]any
	decodeEnvelope(t, rec, &listed)
	tweets, ok := listed["tweets"].([]any)
	if !ok || len(tweets) != 0 {
		t.Fatalf("expected an empty tweets array, got %v", listed["tweets"])
	}
}

func TestTweetHandlerRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/v1/tweets", "", map[string]string{"content": "hi"}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec, nil); resp.Success || resp.Errors == nil {
		t.Fatalf("expected failure envelope with errors array, got %+v", resp)
	}
}
