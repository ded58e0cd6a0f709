package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/vidtube/backend/internal/events"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/passwords"
)

func registerFields() map[string]string {
	return map[string]string{
		"fullName": "Ada Lovelace",
		"email":    "Ada@Example.com",
		"username": "Ada",
		"password": "analytical",
	}
}

func TestAuthHandlerRegister(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/users/register", "", registerFields(), map[string]string{
		"avatar":     "avatar-bytes",
		"coverImage": "cover-bytes",
	})
	rec := env.do(req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	raw := rec.Body.String()

	var user models.User
	resp := decodeEnvelope(t, rec, &user)
	if !resp.Success || resp.Message != "User registered Successfully" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if user.Username != "ada" || user.Email != "ada@example.com" {
		t.Fatalf("expected lowercased identity, got %+v", user)
	}
	if user.Avatar == "" || user.CoverImage == "" {
		t.Fatalf("expected uploaded media urls, got %+v", user)
	}
	for _, secret := range []string{"password", "refreshToken", "analytical"} {
		if strings.Contains(raw, `"`+secret+`"`) {
			t.Fatalf("response leaked %q: %s", secret, raw)
		}
	}
	if got := env.events.types(); len(got) != 1 || got[0] != events.UserRegistered {
		t.Fatalf("expected user.registered event, got %v", got)
	}
	if n := stashedFiles(t, env.stashDir); n != 0 {
		t.Fatalf("expected stash to be empty, found %d files", n)
	}
}

func TestAuthHandlerRegisterFailures(t *testing.T) {
	cases := []struct {
		name       string
		fields     func(map[string]string)
		files      map[string]string
		seed       bool
		failAvatar bool
		noUploads  bool
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "missingField",
			fields:     func(f map[string]string) { delete(f, "fullName") },
			files:      map[string]string{"avatar": "a", "coverImage": "c"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "All fields are required",
		},
		{
			name:       "invalidEmail",
			fields:     func(f map[string]string) { f["email"] = "not-an-email" },
			files:      map[string]string{"avatar": "a"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "passwordTooLong",
			fields:     func(f map[string]string) { f["password"] = strings.Repeat("x", passwords.MaxBytes+8) },
			files:      map[string]string{"avatar": "a", "coverImage": "c"},
			noUploads:  true,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "password must be at most 72 bytes",
		},
		{
			name:       "duplicate",
			files:      map[string]string{"avatar": "a", "coverImage": "c"},
			seed:       true,
			wantStatus: http.StatusConflict,
			wantMsg:    "User with email or username already exists",
		},
		{
			name:       "missingAvatar",
			files:      map[string]string{"coverImage": "c"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Avatar file is required",
		},
		{
			name:       "avatarUploadFails",
			files:      map[string]string{"avatar": "a"},
			failAvatar: true,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Avatar file is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tc.seed {
				env.seedUser(t, "ada", "secret")
			}
			if tc.failAvatar {
				env.relay.fail[media.KindImage] = errors.New("bucket unavailable")
			}

			fields := registerFields()
			if tc.fields != nil {
				tc.fields(fields)
			}
			rec := env.do(multipartRequest(t, http.MethodPost, "/api/v1/users/register", "", fields, tc.files))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			resp := decodeEnvelope(t, rec, nil)
			if resp.Success {
				t.Fatal("expected failure envelope")
			}
			if tc.wantMsg != "" && resp.Message != tc.wantMsg {
				t.Fatalf("expected message %q got %q", tc.wantMsg, resp.Message)
			}
			if n := stashedFiles(t, env.stashDir); n != 0 {
				t.Fatalf("expected stashed files to be cleaned up, found %d", n)
			}
			if tc.noUploads && (len(env.relay.uploads) != 0 || len(env.relay.deletedURLs()) != 0) {
				t.Fatalf("expected no media traffic, uploads=%v deleted=%v", env.relay.uploads, env.relay.deletedURLs())
			}
		})
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedUser(t, "grace", "cobol-rules")

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email":    "GRACE@example.com",
		"password": "cobol-rules",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}

	cookies := map[string]*http.Cookie{}
	for _, cookie := range rec.Result().Cookies() {
		cookies[cookie.Name] = cookie
	}

	var body loginResponse
	resp := decodeEnvelope(t, rec, &body)
	if resp.Message != "User logged In Successfully" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", body)
	}
	if body.User.ID != seeded.ID {
		t.Fatalf("expected user %s got %s", seeded.ID.Hex(), body.User.ID.Hex())
	}

	stored, _ := env.users.FindByID(context.Background(), seeded.ID)
	if stored.RefreshToken != body.RefreshToken {
		t.Fatal("expected refresh token to be persisted on the user")
	}

	for name, want := range map[string]string{"accessToken": body.AccessToken, "refreshToken": body.RefreshToken} {
		cookie, ok := cookies[name]
		if !ok {
			t.Fatalf("expected %s cookie", name)
		}
		if cookie.Value != want || !cookie.HttpOnly || !cookie.Secure || cookie.Path != "/" {
			t.Fatalf("unexpected %s cookie: %+v", name, cookie)
		}
	}
}

func TestAuthHandlerLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "grace", "cobol-rules")

	cases := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"noIdentifier", map[string]string{"password": "cobol-rules"}, http.StatusBadRequest},
		{"unknownUser", map[string]string{"username": "linus", "password": "x"}, http.StatusNotFound},
		{"wrongPassword", map[string]string{"username": "grace", "password": "fortran"}, http.StatusUnauthorized},
		{"badJSON", "{", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", "", tc.body))
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthHandlerRefresh(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "linus", "kernel")

	issued, err := env.sessions.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", "", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: issued.RefreshToken})
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var rotated map[string]string
	resp := decodeEnvelope(t, rec, &rotated)
	if resp.Message != "Access token refreshed" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if rotated["refreshToken"] == "" || rotated["refreshToken"] == issued.RefreshToken {
		t.Fatalf("expected a rotated refresh token, got %v", rotated)
	}

	rec = env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": issued.RefreshToken,
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected stale token to be rejected, got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec, nil); resp.Message != "Refresh token is expired or used" {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	for name, body := range map[string]any{
		"missing": nil,
		"garbage": map[string]string{"refreshToken": "not-a-jwt"},
	} {
		rec := env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", "", body))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected status 401 got %d", name, rec.Code)
		}
	}
}

func TestAuthHandlerLogout(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "ken", "unix")
	token := env.tokenFor(t, user)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/logout", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := env.users.FindByID(context.Background(), user.ID)
	if stored.RefreshToken != "" {
		t.Fatal("expected refresh token to be cleared")
	}
	cleared := 0
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Fatalf("expected both cookies to be cleared, got %d", cleared)
	}

	rec = env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/logout", "", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected anonymous logout to be rejected, got %d", rec.Code)
	}
}

func TestAuthHandlerChangePassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "barbara", "clu")
	token := env.tokenFor(t, user)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", token, map[string]string{
		"oldPassword": "wrong",
		"newPassword": "liskov",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec, nil); resp.Message != "Invalid old password" {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	rec = env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", token, map[string]string{
		"oldPassword": "clu",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected missing new password to fail, got %d", rec.Code)
	}

	rec = env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", token, map[string]string{
		"oldPassword": "clu",
		"newPassword": strings.Repeat("x", passwords.MaxBytes+8),
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected overlong new password to fail with 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", token, map[string]string{
		"oldPassword": "clu",
		"newPassword": "liskov",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := env.users.FindByID(context.Background(), user.ID)
	if !passwords.Verify(stored, "liskov") {
		t.Fatal("expected new password to be stored")
	}
}
