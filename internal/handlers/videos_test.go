package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/events"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
)

func publishFields() map[string]string {
	return map[string]string{"title": "Intro to Go", "description": "channels and goroutines"}
}

func publishFiles() map[string]string {
	return map[string]string{"videoFile": "mp4-bytes", "thumbnail": "png-bytes"}
}

func seedVideo(t *testing.T, env *testEnv, owner models.User) models.Video {
	t.Helper()
	video, err := env.videos.Create(context.Background(), models.Video{
		Owner:       owner.ID,
		Title:       "Seeded",
		Description: "seeded video",
		VideoFile:   "https://cdn.test/seed-video",
		Thumbnail:   "https://cdn.test/seed-thumb",
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

func TestVideoHandlerPublish(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "rob", "plan9")

	rec := env.do(multipartRequest(t, http.MethodPost, "/api/v1/videos", env.tokenFor(t, owner), publishFields(), publishFiles()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var video models.Video
	decodeEnvelope(t, rec, &video)
	if video.Owner != owner.ID || !video.IsPublished || video.Duration != 42.5 {
		t.Fatalf("unexpected video %+v", video)
	}
	if video.VideoFile == "" || video.Thumbnail == "" {
		t.Fatalf("expected media urls, got %+v", video)
	}
	if want := []media.Kind{media.KindVideo, media.KindImage}; !reflect.DeepEqual(env.relay.uploads, want) {
		t.Fatalf("expected uploads %v got %v", want, env.relay.uploads)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != events.VideoPublished {
		t.Fatalf("expected video.published event, got %v", got)
	}
	if n := stashedFiles(t, env.stashDir); n != 0 {
		t.Fatalf("expected stash to be empty, found %d", n)
	}
}

func TestVideoHandlerPublishFailures(t *testing.T) {
	cases := []struct {
		name          string
		fields        map[string]string
		files         map[string]string
		failKind      media.Kind
		wantStatus    int
		wantVideoGone bool
	}{
		{
			name:       "missingTitle",
			fields:     map[string]string{"description": "d"},
			files:      publishFiles(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missingThumbnail",
			fields:     publishFields(),
			files:      map[string]string{"videoFile": "mp4"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missingVideo",
			fields:     publishFields(),
			files:      map[string]string{"thumbnail": "png"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "videoUploadFails",
			fields:     publishFields(),
			files:      publishFiles(),
			failKind:   media.KindVideo,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:          "thumbnailUploadFails",
			fields:        publishFields(),
			files:         publishFiles(),
			failKind:      media.KindImage,
			wantStatus:    http.StatusBadRequest,
			wantVideoGone: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			owner := env.seedUser(t, "rob", "plan9")
			if tc.failKind != 0 {
				env.relay.fail[tc.failKind] = errors.New("upload failed")
			}

			rec := env.do(multipartRequest(t, http.MethodPost, "/api/v1/videos", env.tokenFor(t, owner), tc.fields, tc.files))
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if n := stashedFiles(t, env.stashDir); n != 0 {
				t.Fatalf("expected every stashed file to be removed, found %d", n)
			}
			if len(env.videos.videos) != 0 {
				t.Fatal("expected no video to be stored")
			}
			if tc.wantVideoGone {
				if deleted := env.relay.deletedURLs(); len(deleted) != 1 {
					t.Fatalf("expected uploaded video to be deleted, got %v", deleted)
				}
			}
		})
	}
}

func TestVideoHandlerGetRecordsView(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "rob", "plan9")
	viewer := env.seedUser(t, "ken", "b")
	video := seedVideo(t, env, owner)
	target := "/api/v1/videos/" + video.ID.Hex()

	rec := env.do(jsonRequest(t, http.MethodGet, target, "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var got models.VideoWithOwner
	decodeEnvelope(t, rec, &got)
	if got.Owner == nil || got.Owner.ID != owner.ID || got.Views != 0 {
		t.Fatalf("unexpected anonymous view %+v", got)
	}

	rec = env.do(jsonRequest(t, http.MethodGet, target, env.tokenFor(t, viewer), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	decodeEnvelope(t, rec, &got)
	if got.Views != 1 {
		t.Fatalf("expected view to be counted, got %d", got.Views)
	}

	stored, _ := env.users.FindByID(context.Background(), viewer.ID)
	if len(stored.WatchHistory) != 1 || stored.WatchHistory[0] != video.ID {
		t.Fatalf("expected watch history to record the video, got %v", stored.WatchHistory)
	}

	for path, want := range map[string]int{
		"/api/v1/videos/bad-id":                           http.StatusBadRequest,
		"/api/v1/videos/" + primitive.NewObjectID().Hex(): http.StatusNotFound,
	} {
		if rec := env.do(jsonRequest(t, http.MethodGet, path, "", nil)); rec.Code != want {
			t.Fatalf("%s: expected status %d got %d", path, want, rec.Code)
		}
	}
}

func TestVideoHandlerList(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "rob", "plan9")
	seedVideo(t, env, owner)

	rec := env.do(jsonRequest(t, http.MethodGet, "/api/v1/videos?page=2&limit=500&query=go&sortBy=views&sortType=asc&userId="+owner.ID.Hex(), "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}

	want := models.VideoQuery{Page: 2, Limit: 50, Search: "go", SortBy: "views", SortDesc: false, Owner: owner.ID}
	if env.videos.lastQuery != want {
		t.Fatalf("expected query %+v got %+v", want, env.videos.lastQuery)
	}

	rec = env.do(jsonRequest(t, http.MethodGet, "/api/v1/videos", "", nil))
	var page models.VideoPage
	decodeEnvelope(t, rec, &page)
	if page.Page != 1 || page.Limit != 10 || page.Total != 1 {
		t.Fatalf("unexpected default page %+v", page)
	}
	if !env.videos.lastQuery.SortDesc || env.videos.lastQuery.SortBy != "createdAt" {
		t.Fatalf("expected newest-first default sort, got %+v", env.videos.lastQuery)
	}

	for _, query := range []string{"page=abc", "userId=nope"} {
		if rec := env.do(jsonRequest(t, http.MethodGet, "/api/v1/videos?"+query, "", nil)); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400 got %d", query, rec.Code)
		}
	}
}

func TestVideoHandlerUpdate(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "rob", "plan9")
	other := env.seedUser(t, "ken", "b")
	video := seedVideo(t, env, owner)
	target := "/api/v1/videos/" + video.ID.Hex()
	token := env.tokenFor(t, owner)

	if rec := env.do(jsonRequest(t, http.MethodPatch, target, token, map[string]string{})); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected empty update to fail, got %d", rec.Code)
	}
	if rec := env.do(jsonRequest(t, http.MethodPatch, target, env.tokenFor(t, other), map[string]string{"title": "x"})); rec.Code != http.StatusForbidden {
		t.Fatalf("expected non-owner update to be forbidden, got %d", rec.Code)
	}

	rec := env.do(jsonRequest(t, http.MethodPatch, target, token, map[string]string{"title": "Renamed"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.Video
	decodeEnvelope(t, rec, &updated)
	if updated.Title != "Renamed" || updated.Description != video.Description {
		t.Fatalf("unexpected update %+v", updated)
	}

	rec = env.do(multipartRequest(t, http.MethodPatch, target, token, map[string]string{"description": "new"}, map[string]string{
		"thumbnail": "png",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	decodeEnvelope(t, rec, &updated)
	if updated.Description != "new" || updated.Thumbnail == video.Thumbnail {
		t.Fatalf("unexpected multipart update %+v", updated)
	}
	if deleted := env.relay.deletedURLs(); len(deleted) != 1 || deleted[0] != video.Thumbnail {
		t.Fatalf("expected old thumbnail to be deleted, got %v", deleted)
	}
}

func TestVideoHandlerDelete(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "rob", "plan9")
	other := env.seedUser(t, "ken", "b")
	video := seedVideo(t, env, owner)
	target := "/api/v1/videos/" + video.ID.Hex()

	if rec := env.do(jsonRequest(t, http.MethodDelete, target, env.tokenFor(t, other), nil)); rec.Code != http.StatusForbidden {
		t.Fatalf("expected non-owner delete to be forbidden, got %d", rec.Code)
	}

	rec := env.do(jsonRequest(t, http.MethodDelete, target, env.tokenFor(t, owner), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	want := []string{video.VideoFile, video.Thumbnail}
	if got := env.relay.deletedURLs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected media deletes %v got %v", want, got)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != events.VideoDeleted {
		t.Fatalf("expected video.deleted event, got %v", got)
	}
	if rec := env.do(jsonRequest(t, http.MethodGet, target, "", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted video to be gone, got %d", rec.Code)
	}
}

func TestVideoHandlerGetUnpublished(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "rob", "plan9")
	viewer := env.seedUser(t, "ken", "b")
	video := seedVideo(t, env, owner)
	if _, err := env.videos.TogglePublish(context.Background(), video.ID); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	target := "/api/v1/videos/" + video.ID.Hex()

	for name, token := range map[string]string{"anonymous": "", "viewer": env.tokenFor(t, viewer)} {
		if rec := env.do(jsonRequest(t, http.MethodGet, target, token, nil)); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected draft to be hidden, got %d", name, rec.Code)
		}
	}

	rec := env.do(jsonRequest(t, http.MethodGet, target, env.tokenFor(t, owner), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected owner to see the draft, got %d", rec.Code)
	}
	var got models.VideoWithOwner
	decodeEnvelope(t, rec, &got)
	if got.IsPublished || got.Views != 0 {
		t.Fatalf("expected untracked draft, got %+v", got)
	}

	for _, user := range []models.User{owner, viewer} {
		stored, _ := env.users.FindByID(context.Background(), user.ID)
		if len(stored.WatchHistory) != 0 {
			t.Fatalf("expected no watch history for %s, got %v", user.Username, stored.WatchHistory)
		}
	}
}

func TestVideoHandlerTogglePublish(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "rob", "plan9")
	other := env.seedUser(t, "ken", "b")
	video := seedVideo(t, env, owner)
	target := "/api/v1/videos/" + video.ID.Hex() + "/toggle-publish"

	if rec := env.do(jsonRequest(t, http.MethodPatch, target, env.tokenFor(t, other), nil)); rec.Code != http.StatusForbidden {
		t.Fatalf("expected non-owner toggle to be forbidden, got %d", rec.Code)
	}

	token := env.tokenFor(t, owner)
	for _, want := range []bool{false, true} {
		rec := env.do(jsonRequest(t, http.MethodPatch, target, token, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200 got %d", rec.Code)
		}
		var got models.Video
		decodeEnvelope(t, rec, &got)
		if got.IsPublished != want {
			t.Fatalf("expected isPublished %v got %v", want, got.IsPublished)
		}
	}
}
