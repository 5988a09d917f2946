package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"learning-diary/internal/middleware"
	"learning-diary/internal/models"
)

type userRepository interface {
	Upsert(ctx context.Context, user *models.User) error
}

type AuthService struct {
	users        userRepository
	jwt          *middleware.JWTAuth
	customSecret []byte
	sessionTTL   time.Duration
}

func NewAuthService(users userRepository, jwt *middleware.JWTAuth, customTokenSecret string, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		users:        users,
		jwt:          jwt,
		customSecret: []byte(customTokenSecret),
		sessionTTL:   sessionTTL,
	}
}

// SignInAnonymously creates a fresh opaque user and returns a session for it.
func (s *AuthService) SignInAnonymously(ctx context.Context) (*models.SignInResponse, error) {
	user := &models.User{
		ID:       uuid.New().String(),
		Provider: models.ProviderAnonymous,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// SignInWithCustomToken verifies an externally issued HS256 token and adopts
// its uid claim as the user id.
func (s *AuthService) SignInWithCustomToken(ctx context.Context, token string) (*models.SignInResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &ValidationError{Fields: map[string]string{"token": "Token is required"}}
	}
	if len(s.customSecret) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"token": "Custom token sign-in is not configured"}}
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.customSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, &UnauthorizedError{Message: "Invalid custom token"}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &UnauthorizedError{Message: "Invalid custom token claims"}
	}
	uid, _ := claims["uid"].(string)
	if strings.TrimSpace(uid) == "" {
		return nil, &UnauthorizedError{Message: "Custom token has no uid"}
	}

	user := &models.User{ID: uid, Provider: models.ProviderCustomToken}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

func (s *AuthService) issueSession(user *models.User) (*models.SignInResponse, error) {
	token, err := s.jwt.GenerateSessionToken(user.ID, user.Provider, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	return &models.SignInResponse{
		Token:     token,
		UserID:    user.ID,
		Provider:  user.Provider,
		ExpiresIn: int(s.sessionTTL.Seconds()),
	}, nil
}
