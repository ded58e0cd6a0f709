package auth

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

var (
	// ErrRefreshTokenMissing indicates no refresh token was presented.
	ErrRefreshTokenMissing = errors.New("refresh token missing")
	// ErrRefreshTokenReused indicates a valid refresh token that is no longer the stored one.
	ErrRefreshTokenReused = errors.New("refresh token is expired or used")
)

// UserTokenStore persists the single active refresh token of each user.
type UserTokenStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	// RotateRefreshToken replaces current with next only while current is still stored. It returns
	// repositories.ErrNotFound when the user is gone or holds a different token.
	RotateRefreshToken(ctx context.Context, id primitive.ObjectID, current, next string) error
	UnsetRefreshToken(ctx context.Context, id primitive.ObjectID) error
}

// Manager manages the lifecycle of issued session tokens backed by the user store.
type Manager struct {
	tokens *TokenIssuer
	store  UserTokenStore
}

// NewManager constructs a Manager that signs with tokens and persists refresh tokens in store.
func NewManager(tokens *TokenIssuer, store UserTokenStore) *Manager {
	if tokens == nil || store == nil {
		panic("auth: token issuer and store must not be nil")
	}
	return &Manager{tokens: tokens, store: store}
}

// Issue creates a new token pair for user and stores the refresh token, replacing any earlier one.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.SessionTokens, error) {
	tokens, err := m.tokens.Issue(user)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

// Refresh rotates the token pair when refreshToken is valid and equals the stored token.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.User, models.SessionTokens, error) {
	if refreshToken == "" {
		return models.User{}, models.SessionTokens{}, ErrRefreshTokenMissing
	}

	claims, err := m.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	user, err := m.lookup(ctx, claims.UserID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if user.RefreshToken != refreshToken {
		logging.FromContext(ctx).Warn("stale refresh token presented", "userId", user.ID.Hex())
		return models.User{}, models.SessionTokens{}, ErrRefreshTokenReused
	}

	tokens, err := m.tokens.Issue(user)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}
	if err := m.store.RotateRefreshToken(ctx, user.ID, refreshToken, tokens.RefreshToken); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logging.FromContext(ctx).Warn("refresh token rotated concurrently", "userId", user.ID.Hex())
			return models.User{}, models.SessionTokens{}, ErrRefreshTokenReused
		}
		return models.User{}, models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	user.RefreshToken = tokens.RefreshToken
	return user, tokens, nil
}

// Revoke clears the stored refresh token of userID.
func (m *Manager) Revoke(ctx context.Context, userID primitive.ObjectID) error {
	if err := m.store.UnsetRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// Authenticate resolves the user behind an access token.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	if accessToken == "" {
		return models.User{}, ErrInvalidToken
	}
	claims, err := m.tokens.ParseAccess(accessToken)
	if err != nil {
		return models.User{}, err
	}
	return m.lookup(ctx, claims.UserID)
}

func (m *Manager) lookup(ctx context.Context, hex string) (models.User, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return models.User{}, ErrInvalidToken
	}
	user, err := m.store.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, ErrInvalidToken
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load token user: %w", err)
	}
	return user, nil
}
