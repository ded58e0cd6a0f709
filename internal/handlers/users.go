package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/apierr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// UserHandler serves the authenticated account endpoints and channel pages.
type UserHandler struct {
	Users   UserStore
	Media   MediaRelay
	Uploads Uploads
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// CurrentUser returns the authenticated user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, user, "User fetched successfully")
}

// UpdateAccount changes the full name and email of the authenticated user.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req); err != nil {
		respondError(ctx, w, err)
		return
	}

	updated, err := h.Users.UpdateAccount(ctx, user.ID, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			err = apierr.Conflict("Email is already in use")
		}
		respondError(ctx, w, notFound(err, "User not found"))
		return
	}

	respond(ctx, w, http.StatusOK, updated, "Account details updated successfully")
}

// UpdateAvatar replaces the avatar of the authenticated user.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", "Avatar", func(user models.User) string { return user.Avatar }, h.Users.SetAvatar)
}

// UpdateCoverImage replaces the cover image of the authenticated user.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", "Cover image", func(user models.User) string { return user.CoverImage }, h.Users.SetCoverImage)
}

type imageSetter func(ctx context.Context, id primitive.ObjectID, url string) (models.User, error)

func (h UserHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field, label string,
	previous func(models.User) string,
	set imageSetter,
) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Uploads.parse(w, r); err != nil {
		respondError(ctx, w, err)
		return
	}
	defer h.Uploads.release(r)

	localPath, err := h.Uploads.stash(r, field)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if localPath == "" {
		respondError(ctx, w, apierr.Validation(label+" file is missing"))
		return
	}

	asset, err := h.Media.Upload(ctx, localPath, media.KindImage)
	if err != nil {
		logging.FromContext(ctx).Warn("image upload failed", "field", field, "error", err)
		respondError(ctx, w, apierr.Validation("Error while uploading "+strings.ToLower(label)))
		return
	}

	updated, err := set(ctx, user.ID, asset.URL)
	if err != nil {
		h.Media.Delete(ctx, asset.URL)
		respondError(ctx, w, notFound(err, "User not found"))
		return
	}

	h.Media.Delete(ctx, previous(user))
	respond(ctx, w, http.StatusOK, updated, label+" updated successfully")
}

// ChannelProfile returns the public channel page for a username. The viewer is optional.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		respondError(ctx, w, apierr.Validation("username is missing"))
		return
	}

	var viewer primitive.ObjectID
	if user, ok := auth.UserFromContext(ctx); ok {
		viewer = user.ID
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewer)
	if err != nil {
		respondError(ctx, w, notFound(err, "channel does not exists"))
		return
	}

	respond(ctx, w, http.StatusOK, profile, "User channel fetched successfully")
}

// WatchHistory returns the authenticated user's watched videos in watch order.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	history, err := h.Users.WatchHistory(ctx, user.ID)
	if err != nil {
		respondError(ctx, w, notFound(err, "User not found"))
		return
	}
	if history == nil {
		history = []models.VideoWithOwner{}
	}

	respond(ctx, w, http.StatusOK, history, "Watch history fetched successfully")
}
