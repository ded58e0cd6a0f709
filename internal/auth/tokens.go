package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrInvalidToken indicates a token that fails signature, algorithm or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a well-signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the JWT payload of both token kinds. Access tokens also carry the profile fields.
type Claims struct {
	UserID   string `json:"_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer constructs an issuer with separate secrets and lifetimes per token kind.
func NewTokenIssuer(accessSecret string, accessTTL time.Duration, refreshSecret string, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		accessTTL:     accessTTL,
		refreshSecret: []byte(refreshSecret),
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a fresh token pair for user. Every token gets a unique jti, so two pairs issued in
// the same second still differ.
func (i *TokenIssuer) Issue(user models.User) (models.SessionTokens, error) {
	if user.ID.IsZero() {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := i.now()
	accessExpires := now.Add(i.accessTTL)
	refreshExpires := now.Add(i.refreshTTL)

	access, err := i.sign(i.accessSecret, Claims{
		UserID:           user.ID.Hex(),
		Username:         user.Username,
		Email:            user.Email,
		FullName:         user.FullName,
		RegisteredClaims: registered(user, now, accessExpires),
	})
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := i.sign(i.refreshSecret, Claims{
		UserID:           user.ID.Hex(),
		RegisteredClaims: registered(user, now, refreshExpires),
	})
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// ParseAccess verifies an access token.
func (i *TokenIssuer) ParseAccess(token string) (Claims, error) {
	return i.parse(i.accessSecret, token)
}

// ParseRefresh verifies a refresh token.
func (i *TokenIssuer) ParseRefresh(token string) (Claims, error) {
	return i.parse(i.refreshSecret, token)
}

func registered(user models.User, issued, expires time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   user.ID.Hex(),
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}

func (i *TokenIssuer) sign(secret []byte, claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (i *TokenIssuer) parse(secret []byte, token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
