package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/apierr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/events"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/passwords"
	"github.com/vidtube/backend/internal/repositories"
)

// RefreshTokenCookie is the cookie carrying the refresh token.
const RefreshTokenCookie = "refreshToken"

// AuthHandler implements registration and credential endpoints.
type AuthHandler struct {
	Users         UserStore
	Sessions      SessionManager
	Media         MediaRelay
	Uploads       Uploads
	Events        EventPublisher
	SecureCookies bool
}

type registerRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register multipart requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Uploads.parse(w, r); err != nil {
		respondError(ctx, w, err)
		return
	}
	defer h.Uploads.release(r)

	avatarPath, err := h.Uploads.stash(r, "avatar")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	coverPath, err := h.Uploads.stash(r, "coverImage")
	if err != nil {
		h.Uploads.cleanup(ctx, avatarPath)
		respondError(ctx, w, err)
		return
	}

	req := registerRequest{
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	if err := validateRequest(req); err != nil {
		h.Uploads.cleanup(ctx, avatarPath, coverPath)
		respondError(ctx, w, err)
		return
	}

	if _, err := h.Users.FindByUsernameOrEmail(ctx, req.Username, req.Email); err == nil {
		h.Uploads.cleanup(ctx, avatarPath, coverPath)
		respondError(ctx, w, apierr.Conflict("User with email or username already exists"))
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		h.Uploads.cleanup(ctx, avatarPath, coverPath)
		respondError(ctx, w, err)
		return
	}

	if avatarPath == "" {
		h.Uploads.cleanup(ctx, coverPath)
		respondError(ctx, w, apierr.Validation("Avatar file is required"))
		return
	}

	avatar, err := h.Media.Upload(ctx, avatarPath, media.KindImage)
	if err != nil {
		h.Uploads.cleanup(ctx, coverPath)
		logging.FromContext(ctx).Warn("avatar upload failed", "error", err)
		respondError(ctx, w, apierr.Validation("Avatar file is required"))
		return
	}

	var coverURL string
	if coverPath != "" {
		cover, err := h.Media.Upload(ctx, coverPath, media.KindImage)
		if err != nil {
			logging.FromContext(ctx).Warn("cover image upload failed", "error", err)
		} else {
			coverURL = cover.URL
		}
	}

	user, err := h.Users.Create(ctx, models.User{
		FullName:   req.FullName,
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
	})
	if err != nil {
		h.Media.Delete(ctx, avatar.URL)
		h.Media.Delete(ctx, coverURL)
		if errors.Is(err, repositories.ErrConflict) {
			err = apierr.Conflict("User with email or username already exists")
		}
		respondError(ctx, w, err)
		return
	}

	publish(ctx, h.Events, events.New(events.UserRegistered, user.ID.Hex(), map[string]any{
		"username": user.Username,
	}))
	respond(ctx, w, http.StatusCreated, user, "User registered Successfully")
}

// Login handles POST /api/v1/users/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" && req.Email == "" {
		respondError(ctx, w, apierr.Validation("username or email is required"))
		return
	}

	user, err := h.Users.FindByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		respondError(ctx, w, notFound(err, "User does not exist"))
		return
	}

	if !passwords.Verify(user, req.Password) {
		logging.FromContext(ctx).Warn("login password mismatch", "userId", user.ID.Hex())
		respondError(ctx, w, apierr.Auth("Invalid user credentials"))
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		respondError(ctx, w, apierr.Internal("Something went wrong while generating tokens", err))
		return
	}

	h.setSessionCookies(w, tokens)
	respond(ctx, w, http.StatusOK, loginResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "User logged In Successfully")
}

// Logout handles POST /api/v1/users/logout requests.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Sessions.Revoke(ctx, user.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		respondError(ctx, w, err)
		return
	}

	h.clearSessionCookies(w)
	respond(ctx, w, http.StatusOK, nil, "User logged Out")
}

// Refresh exchanges a refresh token from the cookie or body for a new token pair.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var req refreshRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}

	_, tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshTokenMissing):
			err = apierr.Auth("unauthorized request")
		case errors.Is(err, auth.ErrRefreshTokenReused):
			err = apierr.Auth("Refresh token is expired or used")
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
			err = apierr.Auth("Invalid refresh token")
		}
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respond(ctx, w, http.StatusOK, map[string]string{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password requests.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if !passwords.Verify(user, req.OldPassword) {
		respondError(ctx, w, apierr.Validation("Invalid old password"))
		return
	}

	if err := h.Users.SetPassword(ctx, user.ID, req.NewPassword); err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, nil, "Password changed successfully")
}

func (h AuthHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		cookie := h.cookie(name, "", time.Time{})
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (h AuthHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
