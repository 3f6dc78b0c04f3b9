package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librariumapp/librarium-server/internal/archive"
	"github.com/librariumapp/librarium-server/internal/classifier"
	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/ingest"
	"github.com/librariumapp/librarium-server/internal/store/sqlite"
)

// fakeArchive serves canned metadata for ingestion tests.
type fakeArchive struct {
	results []archive.SearchResult
	items   map[string]*archive.Item
}

func (f *fakeArchive) Search(_ context.Context, _ string, limit int) ([]archive.SearchResult, error) {
	if limit > 0 && limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeArchive) Fetch(_ context.Context, identifier string) (*archive.Item, error) {
	item, ok := f.items[identifier]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return item, nil
}

func (f *fakeArchive) DownloadFile(_ context.Context, _, _ string, _ io.Writer) (int64, error) {
	return 0, archive.ErrNotFound
}

func setupAdminTest(t *testing.T) (*AdminService, *sqlite.Store) {
	t.Helper()
	db := newTestSQLite(t)
	idx := newTestSearchIndex(t)

	arch := &fakeArchive{
		results: []archive.SearchResult{{Identifier: "meditations00marc", Title: "Meditations"}},
		items: map[string]*archive.Item{
			"meditations00marc": {
				Identifier: "meditations00marc",
				Title:      "Meditations",
				Creators:   []string{"Marcus Aurelius"},
				Year:       180,
				Language:   "eng",
			},
		},
	}
	ingestor := ingest.New(arch, nil, db, newTestFileStorage(t), classifier.NewMockClassifier(), idx, discardLogger())

	return NewAdminService(db, ingestor, idx, discardLogger()), db
}

func seedUser(t *testing.T, db *sqlite.Store, id string, role domain.Role, isRoot bool) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:        id + "@example.com",
		PasswordHash: "$argon2id$fake",
		Role:         role,
		IsRoot:       isRoot,
	}
	u.ID = id
	u.InitTimestamps()
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func TestAdminService_UpdateUser_RoleChange(t *testing.T) {
	svc, db := setupAdminTest(t)
	ctx := context.Background()

	admin := seedUser(t, db, "admin", domain.RoleAdmin, true)
	seedUser(t, db, "reader", domain.RoleReader, false)

	updated, err := svc.UpdateUser(ctx, admin, "reader", UpdateUserRequest{
		Role: rolePtr(domain.RolePremium),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RolePremium, updated.Role)
	assert.True(t, updated.CanDownload())

	_, err = svc.UpdateUser(ctx, admin, "reader", UpdateUserRequest{
		Role: rolePtr("superuser"),
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.UpdateUser(ctx, admin, "missing", UpdateUserRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAdminService_UpdateUser_DisableRevokesSessions(t *testing.T) {
	svc, db := setupAdminTest(t)
	ctx := context.Background()

	admin := seedUser(t, db, "admin", domain.RoleAdmin, true)
	reader := seedUser(t, db, "reader", domain.RoleReader, false)

	session := &domain.Session{ID: "sess-1", UserID: reader.ID}
	session.Touch()
	require.NoError(t, db.CreateSession(ctx, session))

	updated, err := svc.UpdateUser(ctx, admin, "reader", UpdateUserRequest{
		Status: statusPtr(domain.UserStatusDisabled),
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive())

	sessions, err := db.ListUserSessions(ctx, reader.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestAdminService_RootAccountProtected(t *testing.T) {
	svc, db := setupAdminTest(t)
	ctx := context.Background()

	root := seedUser(t, db, "root", domain.RoleAdmin, true)
	other := seedUser(t, db, "other", domain.RoleAdmin, false)

	_, err := svc.UpdateUser(ctx, other, "root", UpdateUserRequest{
		Role: rolePtr(domain.RoleReader),
	})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = svc.UpdateUser(ctx, root, "root", UpdateUserRequest{
		Role: rolePtr(domain.RoleReader),
	})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = svc.UpdateUser(ctx, root, "root", UpdateUserRequest{
		Status: statusPtr(domain.UserStatusDisabled),
	})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	err = svc.DeleteUser(ctx, other, "root")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAdminService_DeleteUser(t *testing.T) {
	svc, db := setupAdminTest(t)
	ctx := context.Background()

	admin := seedUser(t, db, "admin", domain.RoleAdmin, true)
	seedUser(t, db, "reader", domain.RoleReader, false)

	// Self-deletion is blocked.
	err := svc.DeleteUser(ctx, admin, "admin")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	require.NoError(t, svc.DeleteUser(ctx, admin, "reader"))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].ID)
}

func TestAdminService_RunIngestion(t *testing.T) {
	svc, db := setupAdminTest(t)
	ctx := context.Background()

	report, err := svc.RunIngestion(ctx, IngestRequest{Query: "stoicism", SkipFiles: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Found)
	assert.Equal(t, 1, report.Imported)

	book, err := db.GetBookBySourceID(ctx, "meditations00marc")
	require.NoError(t, err)
	assert.Equal(t, "Meditations", book.Title)

	// Dry run after the import only reports skips.
	report, err = svc.RunIngestion(ctx, IngestRequest{Query: "stoicism", DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 1, report.Skipped)
}

func TestAdminService_RunIngestion_Validation(t *testing.T) {
	svc, _ := setupAdminTest(t)

	_, err := svc.RunIngestion(context.Background(), IngestRequest{Query: ""})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAdminService_GetStats(t *testing.T) {
	svc, db := setupAdminTest(t)
	ctx := context.Background()

	seedUser(t, db, "admin", domain.RoleAdmin, true)
	seedBook(t, db, "book-1", "Meditations", []string{"Philosophy"})

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Books)
	assert.Equal(t, 1, stats.Users)
}

func rolePtr(r domain.Role) *domain.Role               { return &r }
func statusPtr(s domain.UserStatus) *domain.UserStatus { return &s }
