package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/events"
	"github.com/vidtube/backend/internal/models"
)

// SubscriptionHandler serves channel subscription endpoints.
type SubscriptionHandler struct {
	Users         UserStore
	Subscriptions SubscriptionStore
	Events        EventPublisher
}

// Toggle subscribes the caller to the channel or removes an existing subscription.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	channelID, err := pathID(r, "channelId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		respondError(ctx, w, notFound(err, "Channel not found"))
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, user.ID, channelID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	data := map[string]any{
		"subscriber": user.ID.Hex(),
		"channel":    channelID.Hex(),
	}
	if !subscribed {
		publish(ctx, h.Events, events.New(events.SubscriptionDeleted, channelID.Hex(), data))
		respond(ctx, w, http.StatusOK, map[string]bool{"subscribed": false}, "Unsubscribed successfully")
		return
	}

	publish(ctx, h.Events, events.New(events.SubscriptionCreated, channelID.Hex(), data))
	respond(ctx, w, http.StatusCreated, map[string]bool{"subscribed": true}, "subscribed successfully")
}

// Subscribers lists the users subscribed to the channel.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID, err := pathID(r, "channelId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	list, err := h.Subscriptions.ChannelSubscribers(ctx, channelID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Channel not found"))
		return
	}
	if list.Subscribers == nil {
		list.Subscribers = []models.UserView{}
	}

	respond(ctx, w, http.StatusOK, list, "Subscribers fetched successfully")
}

// Channels lists the channels the subscriber follows.
func (h SubscriptionHandler) Channels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	list, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Subscriber not found"))
		return
	}
	if list.Channels == nil {
		list.Channels = []models.UserView{}
	}

	respond(ctx, w, http.StatusOK, list, "Subscribed channels fetched successfully")
}
