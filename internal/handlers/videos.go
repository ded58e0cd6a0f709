package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vidtube/backend/internal/apierr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/events"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// VideoHandler provides endpoints for publishing, fetching and editing videos.
type VideoHandler struct {
	Users   UserStore
	Videos  VideoStore
	Media   MediaRelay
	Uploads Uploads
	Events  EventPublisher
}

type publishVideoRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, err := parseVideoQuery(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	page, err := h.Videos.List(ctx, query)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, page, "Videos fetched successfully")
}

func parseVideoQuery(r *http.Request) (models.VideoQuery, error) {
	values := r.URL.Query()
	query := models.VideoQuery{
		Search:   values.Get("query"),
		SortBy:   strings.TrimSpace(values.Get("sortBy")),
		SortDesc: !strings.EqualFold(strings.TrimSpace(values.Get("sortType")), "asc"),
	}

	for name, dst := range map[string]*int64{"page": &query.Page, "limit": &query.Limit} {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.VideoQuery{}, apierr.Validation(name + " must be a number")
		}
		*dst = n
	}

	if raw := strings.TrimSpace(values.Get("userId")); raw != "" {
		owner, err := repositories.ParseID(raw, "userId")
		if err != nil {
			return models.VideoQuery{}, err
		}
		query.Owner = owner
	}

	return repositories.NormalizeVideoQuery(query), nil
}

// Publish handles POST /api/v1/videos multipart uploads of a video file and its thumbnail.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
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

	videoPath, err := h.Uploads.stash(r, "videoFile")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	thumbnailPath, err := h.Uploads.stash(r, "thumbnail")
	if err != nil {
		h.Uploads.cleanup(ctx, videoPath)
		respondError(ctx, w, err)
		return
	}

	req := publishVideoRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validateRequest(req); err != nil {
		h.Uploads.cleanup(ctx, videoPath, thumbnailPath)
		respondError(ctx, w, err)
		return
	}
	if videoPath == "" || thumbnailPath == "" {
		h.Uploads.cleanup(ctx, videoPath, thumbnailPath)
		respondError(ctx, w, apierr.Validation("Video file and thumbnail are required"))
		return
	}

	videoAsset, err := h.Media.Upload(ctx, videoPath, media.KindVideo)
	if err != nil {
		h.Uploads.cleanup(ctx, thumbnailPath)
		logging.FromContext(ctx).Warn("video upload failed", "error", err)
		respondError(ctx, w, apierr.Validation("Error while uploading video file"))
		return
	}

	thumbnailAsset, err := h.Media.Upload(ctx, thumbnailPath, media.KindImage)
	if err != nil {
		h.Media.Delete(ctx, videoAsset.URL)
		logging.FromContext(ctx).Warn("thumbnail upload failed", "error", err)
		respondError(ctx, w, apierr.Validation("Error while uploading thumbnail"))
		return
	}

	video, err := h.Videos.Create(ctx, models.Video{
		Owner:       user.ID,
		Title:       req.Title,
		Description: req.Description,
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbnailAsset.URL,
		Duration:    videoAsset.Duration,
		IsPublished: true,
	})
	if err != nil {
		h.Media.Delete(ctx, videoAsset.URL)
		h.Media.Delete(ctx, thumbnailAsset.URL)
		respondError(ctx, w, err)
		return
	}

	publish(ctx, h.Events, events.New(events.VideoPublished, video.ID.Hex(), map[string]any{
		"owner": video.Owner.Hex(),
		"title": video.Title,
	}))
	respond(ctx, w, http.StatusCreated, video, "Video published successfully")
}

// Get returns a video with its owner. Authenticated viewers get it recorded in their watch
// history and counted as a view.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.FindWithOwner(ctx, videoID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Video not found"))
		return
	}

	viewer, ok := auth.UserFromContext(ctx)
	isOwner := ok && video.Owner != nil && video.Owner.ID == viewer.ID
	// Drafts are visible to their owner only.
	if !video.IsPublished && !isOwner {
		respondError(ctx, w, apierr.NotFound("Video not found"))
		return
	}

	if ok && video.IsPublished {
		logger := logging.FromContext(ctx)
		if err := h.Users.AppendWatchHistory(ctx, viewer.ID, videoID); err != nil {
			logger.Warn("append watch history", "userId", viewer.ID.Hex(), "videoId", videoID.Hex(), "error", err)
		}
		if err := h.Videos.IncrementViews(ctx, videoID); err != nil {
			logger.Warn("increment views", "videoId", videoID.Hex(), "error", err)
		} else {
			video.Views++
		}
	}

	respond(ctx, w, http.StatusOK, video, "Video fetched successfully")
}

// Update edits the title, description or thumbnail of a video owned by the caller. It accepts
// multipart forms carrying a new thumbnail and plain JSON bodies.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var (
		update        models.VideoUpdate
		thumbnailPath string
	)
	if isMultipart(r) {
		if err := h.Uploads.parse(w, r); err != nil {
			respondError(ctx, w, err)
			return
		}
		defer h.Uploads.release(r)

		if thumbnailPath, err = h.Uploads.stash(r, "thumbnail"); err != nil {
			respondError(ctx, w, err)
			return
		}
		update.Title = formField(r, "title")
		update.Description = formField(r, "description")
	} else {
		var req updateVideoRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		update.Title = trimmed(req.Title)
		update.Description = trimmed(req.Description)
	}

	if update.Empty() && thumbnailPath == "" {
		respondError(ctx, w, apierr.Validation("At least one of title, description or thumbnail is required"))
		return
	}

	existing, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		h.Uploads.cleanup(ctx, thumbnailPath)
		respondError(ctx, w, notFound(err, "Video not found"))
		return
	}
	if existing.Owner != user.ID {
		h.Uploads.cleanup(ctx, thumbnailPath)
		respondError(ctx, w, apierr.Forbidden("You are not allowed to update this video"))
		return
	}

	var newThumbnail string
	if thumbnailPath != "" {
		asset, err := h.Media.Upload(ctx, thumbnailPath, media.KindImage)
		if err != nil {
			logging.FromContext(ctx).Warn("thumbnail upload failed", "error", err)
			respondError(ctx, w, apierr.Validation("Error while uploading thumbnail"))
			return
		}
		newThumbnail = asset.URL
		update.Thumbnail = &newThumbnail
	}

	video, err := h.Videos.Update(ctx, videoID, update)
	if err != nil {
		h.Media.Delete(ctx, newThumbnail)
		respondError(ctx, w, notFound(err, "Video not found"))
		return
	}

	if newThumbnail != "" {
		h.Media.Delete(ctx, existing.Thumbnail)
	}
	respond(ctx, w, http.StatusOK, video, "Video updated successfully")
}

// Delete removes a video owned by the caller along with its stored media.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	existing, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Video not found"))
		return
	}
	if existing.Owner != user.ID {
		respondError(ctx, w, apierr.Forbidden("You are not allowed to delete this video"))
		return
	}

	deleted, err := h.Videos.Delete(ctx, videoID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Video not found"))
		return
	}

	h.Media.Delete(ctx, deleted.VideoFile)
	h.Media.Delete(ctx, deleted.Thumbnail)
	publish(ctx, h.Events, events.New(events.VideoDeleted, deleted.ID.Hex(), map[string]any{
		"owner": deleted.Owner.Hex(),
	}))
	respond(ctx, w, http.StatusOK, nil, "Video deleted successfully")
}

// TogglePublish flips the published flag of a video owned by the caller.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	existing, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Video not found"))
		return
	}
	if existing.Owner != user.ID {
		respondError(ctx, w, apierr.Forbidden("You are not allowed to change this video"))
		return
	}

	video, err := h.Videos.TogglePublish(ctx, videoID)
	if err != nil {
		respondError(ctx, w, notFound(err, "Video not found"))
		return
	}

	respond(ctx, w, http.StatusOK, video, "Publish status toggled successfully")
}

func formField(r *http.Request, name string) *string {
	values := r.MultipartForm.Value[name]
	if len(values) == 0 {
		return nil
	}
	return trimmed(&values[0])
}

// trimmed drops blank values so they leave the stored field untouched.
func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
