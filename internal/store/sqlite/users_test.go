package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/store"
)

func testUser(id, email string, role domain.Role) *domain.User {
	u := &domain.User{
		Email:        email,
		PasswordHash: "argon2-hash",
		Role:         role,
		Status:       domain.UserStatusActive,
		DisplayName:  "Test User",
		LastLoginAt:  time.Now(),
	}
	u.ID = id
	u.InitTimestamps()
	return u
}

func TestCreateGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := testUser("user-1", "reader@example.com", domain.RoleReader)
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Email != user.Email || got.Role != domain.RoleReader {
		t.Errorf("got %+v", got)
	}
	if got.PasswordHash != "argon2-hash" {
		t.Errorf("password hash = %q", got.PasswordHash)
	}
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, testUser("user-1", "Reader@Example.com", domain.RoleReader)); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "reader@EXAMPLE.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != "user-1" {
		t.Errorf("id = %q", got.ID)
	}
	// The original casing is preserved.
	if got.Email != "Reader@Example.com" {
		t.Errorf("email = %q", got.Email)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, testUser("user-1", "reader@example.com", domain.RoleReader)); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := s.CreateUser(ctx, testUser("user-2", "READER@example.com", domain.RolePremium))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateUser_RoleChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := testUser("user-1", "reader@example.com", domain.RoleReader)
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	user.Role = domain.RolePremium
	user.Touch()
	if err := s.UpdateUser(ctx, user); err != nil {
		t.Fatalf("update user: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Role != domain.RolePremium {
		t.Errorf("role = %q, want premium", got.Role)
	}
	if !got.CanDownload() {
		t.Error("premium user should be able to download")
	}
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, testUser("user-1", "reader@example.com", domain.RoleReader)); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if _, err := s.GetUser(ctx, "user-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("listed %d users, want 0", len(users))
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, testUser("user-1", "reader@example.com", domain.RoleReader)); err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now()
	sess := &domain.Session{
		ID:               "sess-1",
		UserID:           "user-1",
		RefreshTokenHash: "hash",
		ExpiresAt:        now.Add(time.Hour),
		CreatedAt:        now,
		LastSeenAt:       now,
		UserAgent:        "test-agent",
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UserID != "user-1" || got.RefreshTokenHash != "hash" || got.UserAgent != "test-agent" {
		t.Errorf("got %+v", got)
	}

	sessions, err := s.ListUserSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("listed %d sessions, want 1", len(sessions))
	}

	if err := s.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.GetSession(ctx, "sess-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, testUser("user-1", "reader@example.com", domain.RoleReader)); err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now()
	expired := &domain.Session{
		ID: "sess-old", UserID: "user-1",
		ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-2 * time.Hour), LastSeenAt: now.Add(-time.Hour),
	}
	live := &domain.Session{
		ID: "sess-new", UserID: "user-1",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now, LastSeenAt: now,
	}
	for _, sess := range []*domain.Session{expired, live} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	n, err := s.DeleteExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d sessions, want 1", n)
	}
	if _, err := s.GetSession(ctx, "sess-new"); err != nil {
		t.Errorf("live session removed: %v", err)
	}
}

func TestUserSettingsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, testUser("user-1", "reader@example.com", domain.RoleReader)); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := s.GetUserSettings(ctx, "user-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound before save", err)
	}

	settings := domain.NewUserSettings("user-1")
	if err := s.SaveUserSettings(ctx, settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	settings.Theme = domain.ThemeSepia
	settings.FontScale = 125
	settings.UpdatedAt = time.Now()
	if err := s.SaveUserSettings(ctx, settings); err != nil {
		t.Fatalf("re-save settings: %v", err)
	}

	got, err := s.GetUserSettings(ctx, "user-1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got.Theme != domain.ThemeSepia || got.FontScale != 125 || got.Layout != domain.LayoutGrid {
		t.Errorf("got %+v", got)
	}
}
