// Package service contains the application's business logic, sitting
// between the HTTP handlers and the persistence layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/librariumapp/librarium-server/internal/auth"
	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/id"
	"github.com/librariumapp/librarium-server/internal/store"
	"github.com/librariumapp/librarium-server/internal/validation"
)

// AuthStore is the persistence surface the auth service needs.
type AuthStore interface {
	store.UserStore
	store.SessionStore
}

// AuthService handles registration, login, and token lifecycle.
type AuthService struct {
	store     AuthStore
	tokens    *auth.TokenService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(s AuthStore, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:     s,
		tokens:    tokens,
		validator: validation.New(),
		logger:    logger,
	}
}

// RegisterRequest contains new account data.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"` // Extracted from request by handler
	UserAgent string `json:"-"`
}

// RefreshRequest contains the opaque refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	SessionID    string       `json:"session_id"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// Register creates a new account. The very first account becomes the
// root admin; everyone after that starts as a reader.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         domain.RoleReader,
		Status:       domain.UserStatusActive,
		DisplayName:  req.DisplayName,
		LastLoginAt:  time.Now(),
	}
	user.ID = userID
	if count == 0 {
		user.IsRoot = true
		user.Role = domain.RoleAdmin
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", userID, "role", user.Role)

	return s.createSession(ctx, user, "", "")
}

// Login authenticates a user and creates a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same error as a bad password, so the response doesn't
			// leak whether the email exists.
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domainerrors.ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, domainerrors.Forbidden("account is disabled")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("update last login", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return s.createSession(ctx, user, req.IPAddress, req.UserAgent)
}

// Refresh exchanges a valid refresh token for a fresh token pair. The
// refresh token is rotated; the old one stops working immediately.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, user, err := s.lookupRefreshSession(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	session.RefreshTokenHash = auth.HashRefreshToken(refreshToken)
	session.ExpiresAt = time.Now().Add(s.tokens.RefreshTokenDuration())
	session.Touch()
	if req.IPAddress != "" {
		session.IPAddress = req.IPAddress
	}
	if req.UserAgent != "" {
		session.UserAgent = req.UserAgent
	}
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
		ExpiresAt:    time.Now().Add(s.tokens.AccessTokenDuration()),
	}, nil
}

// Logout deletes the session holding the given refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	session, _, err := s.lookupRefreshSession(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSession(ctx, session.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info("user logged out", "user_id", session.UserID)
	return nil
}

// VerifyToken validates an access token and returns its claims.
func (s *AuthService) VerifyToken(tokenString string) (*auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, domainerrors.ErrUnauthorized.WithCause(err)
	}
	return claims, nil
}

// GetUser returns the account behind verified claims, re-checking that
// it still exists and is active.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive() {
		return nil, domainerrors.Forbidden("account is disabled")
	}
	return user, nil
}

// createSession issues a token pair and persists the backing session.
func (s *AuthService) createSession(ctx context.Context, user *domain.User, ip, userAgent string) (*AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	sessionID, err := id.Generate("sess")
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		ExpiresAt:        now.Add(s.tokens.RefreshTokenDuration()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        ip,
		UserAgent:        userAgent,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		ExpiresAt:    now.Add(s.tokens.AccessTokenDuration()),
	}, nil
}

// lookupRefreshSession finds the live session for a refresh token.
func (s *AuthService) lookupRefreshSession(ctx context.Context, refreshToken string) (*domain.Session, *domain.User, error) {
	if refreshToken == "" {
		return nil, nil, domainerrors.ErrUnauthorized
	}
	hash := auth.HashRefreshToken(refreshToken)

	session, err := s.store.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}
	if session.IsExpired() {
		return nil, nil, domainerrors.ErrTokenExpired
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive() {
		return nil, nil, domainerrors.Forbidden("account is disabled")
	}
	return session, user, nil
}
