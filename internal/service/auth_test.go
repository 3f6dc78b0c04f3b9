package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librariumapp/librarium-server/internal/auth"
	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/store/sqlite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestSQLite(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)
	return tokens
}

func setupAuthTest(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(newTestSQLite(t), newTestTokens(t), discardLogger())
}

func registerTestUser(t *testing.T, svc *AuthService, email string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:       email,
		Password:    "a long enough password",
		DisplayName: "Test Reader",
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_Register_FirstUserIsRootAdmin(t *testing.T) {
	svc := setupAuthTest(t)

	first := registerTestUser(t, svc, "first@example.com")
	assert.True(t, first.User.IsRoot)
	assert.Equal(t, domain.RoleAdmin, first.User.Role)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)

	second := registerTestUser(t, svc, "second@example.com")
	assert.False(t, second.User.IsRoot)
	assert.Equal(t, domain.RoleReader, second.User.Role)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc := setupAuthTest(t)
	registerTestUser(t, svc, "reader@example.com")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "Reader@Example.com", // case-insensitive duplicate
		Password:    "another password here",
		DisplayName: "Other",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := setupAuthTest(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "not-an-email",
		Password:    "short",
		DisplayName: "",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAuthService_Login(t *testing.T) {
	svc := setupAuthTest(t)
	registerTestUser(t, svc, "reader@example.com")

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "reader@example.com",
		Password: "a long enough password",
	})
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", resp.User.Email)

	claims, err := svc.VerifyToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc := setupAuthTest(t)
	registerTestUser(t, svc, "reader@example.com")

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "reader@example.com",
		Password: "not the password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmailSameError(t *testing.T) {
	svc := setupAuthTest(t)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever password",
	})
	// Unknown email and bad password must be indistinguishable.
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	svc := setupAuthTest(t)
	initial := registerTestUser(t, svc, "reader@example.com")

	rotated, err := svc.Refresh(context.Background(), RefreshRequest{
		RefreshToken: initial.RefreshToken,
	})
	require.NoError(t, err)
	assert.Equal(t, initial.SessionID, rotated.SessionID)
	assert.NotEqual(t, initial.RefreshToken, rotated.RefreshToken)

	// The old refresh token is dead after rotation.
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		RefreshToken: initial.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	// The new one keeps working.
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		RefreshToken: rotated.RefreshToken,
	})
	assert.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	svc := setupAuthTest(t)
	resp := registerTestUser(t, svc, "reader@example.com")

	require.NoError(t, svc.Logout(context.Background(), resp.RefreshToken))

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		RefreshToken: resp.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthService_VerifyToken_Garbage(t *testing.T) {
	svc := setupAuthTest(t)

	_, err := svc.VerifyToken("v4.local.garbage")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}
