package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	uploads := Uploads{Stash: deps.Stash, MaxBytes: deps.MaxUploadBytes}

	health := HealthHandler{Checker: deps.Health}
	authH := AuthHandler{
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		Media:         deps.Media,
		Uploads:       uploads,
		Events:        deps.Events,
		SecureCookies: deps.SecureCookies,
	}
	users := UserHandler{Users: deps.Users, Media: deps.Media, Uploads: uploads}
	tweets := TweetHandler{Users: deps.Users, Tweets: deps.Tweets}
	videos := VideoHandler{
		Users:   deps.Users,
		Videos:  deps.Videos,
		Media:   deps.Media,
		Uploads: uploads,
		Events:  deps.Events,
	}
	subscriptions := SubscriptionHandler{
		Users:         deps.Users,
		Subscriptions: deps.Subscriptions,
		Events:        deps.Events,
	}

	requireAuth := middleware.Authenticate(deps.Sessions, true)
	optionalAuth := middleware.Authenticate(deps.Sessions, false)
	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, middleware.RateLimit(deps.RateLimiter, scope))
	}
	private := func(h http.HandlerFunc) http.Handler { return middleware.Chain(h, requireAuth) }
	public := func(h http.HandlerFunc) http.Handler { return middleware.Chain(h, optionalAuth) }

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.Handle("POST /api/v1/users/register", limited("register", authH.Register))
	mux.Handle("POST /api/v1/users/login", limited("login", authH.Login))
	mux.Handle("POST /api/v1/users/refresh-token", limited("refresh", authH.Refresh))
	mux.Handle("POST /api/v1/users/logout", private(authH.Logout))
	mux.Handle("POST /api/v1/users/change-password", private(authH.ChangePassword))
	mux.Handle("GET /api/v1/users/current-user", private(users.CurrentUser))
	mux.Handle("PATCH /api/v1/users/update-account", private(users.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", private(users.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", private(users.UpdateCoverImage))
	mux.Handle("GET /api/v1/users/channel/{username}", public(users.ChannelProfile))
	mux.Handle("GET /api/v1/users/watch-history", private(users.WatchHistory))

	mux.Handle("POST /api/v1/tweets", private(tweets.Create))
	mux.HandleFunc("GET /api/v1/tweets/user/{userId}", tweets.ListByUser)
	mux.Handle("PATCH /api/v1/tweets/{tweetId}", private(tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{tweetId}", private(tweets.Delete))

	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.Handle("POST /api/v1/videos", private(videos.Publish))
	mux.Handle("GET /api/v1/videos/{videoId}", public(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{videoId}", private(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{videoId}", private(videos.Delete))
	mux.Handle("PATCH /api/v1/videos/{videoId}/toggle-publish", private(videos.TogglePublish))

	mux.Handle("POST /api/v1/subscriptions/{channelId}/toggle", private(subscriptions.Toggle))
	mux.HandleFunc("GET /api/v1/subscriptions/{channelId}/subscribers", subscriptions.Subscribers)
	mux.HandleFunc("GET /api/v1/subscriptions/user/{subscriberId}/channels", subscriptions.Channels)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Sessions       SessionManager
	Videos         VideoStore
	Tweets         TweetStore
	Subscriptions  SubscriptionStore
	Media          MediaRelay
	Stash          FileStash
	Events         EventPublisher
	Health         HealthChecker
	RateLimiter    middleware.RateLimiter
	SecureCookies  bool
	MaxUploadBytes int64
}
