package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/ingest"
	"github.com/librariumapp/librarium-server/internal/search"
	"github.com/librariumapp/librarium-server/internal/store"
	"github.com/librariumapp/librarium-server/internal/validation"
)

// AdminStore is the persistence surface the admin service needs.
type AdminStore interface {
	store.UserStore
	store.SessionStore
	store.BookStore
}

// AdminService handles user administration and ingestion control.
type AdminService struct {
	store     AdminStore
	ingestor  *ingest.Ingestor
	index     *search.SearchIndex
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(s AdminStore, ingestor *ingest.Ingestor, index *search.SearchIndex, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:     s,
		ingestor:  ingestor,
		index:     index,
		validator: validation.New(),
		logger:    logger,
	}
}

// ListUsers returns every account.
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUserRequest carries account changes. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Role   *domain.Role       `json:"role,omitempty"`
	Status *domain.UserStatus `json:"status,omitempty"`
}

// UpdateUser changes an account's role or status. The root admin's role
// and status cannot be changed; there must always be a working admin.
func (s *AdminService) UpdateUser(ctx context.Context, actor *domain.User, userID string, req UpdateUserRequest) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.IsRoot && user.ID != actor.ID {
		return nil, domainerrors.Forbidden("the root admin account cannot be modified")
	}

	if req.Role != nil {
		if !domain.ValidRole(*req.Role) {
			return nil, domainerrors.Validation(fmt.Sprintf("unknown role %q", *req.Role))
		}
		if user.IsRoot && *req.Role != domain.RoleAdmin {
			return nil, domainerrors.Forbidden("the root admin cannot be demoted")
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		switch *req.Status {
		case domain.UserStatusActive, domain.UserStatusDisabled:
		default:
			return nil, domainerrors.Validation(fmt.Sprintf("unknown status %q", *req.Status))
		}
		if user.IsRoot && *req.Status == domain.UserStatusDisabled {
			return nil, domainerrors.Forbidden("the root admin cannot be disabled")
		}
		user.Status = *req.Status
	}
	user.Touch()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	// A disabled account must not keep working refresh tokens.
	if req.Status != nil && *req.Status == domain.UserStatusDisabled {
		if err := s.store.DeleteUserSessions(ctx, userID); err != nil {
			s.logger.Warn("revoke sessions for disabled user", "user_id", userID, "error", err)
		}
	}

	s.logger.Info("user updated", "user_id", userID, "actor_id", actor.ID)
	return user, nil
}

// DeleteUser removes an account and revokes its sessions.
func (s *AdminService) DeleteUser(ctx context.Context, actor *domain.User, userID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}
	if user.IsRoot {
		return domainerrors.Forbidden("the root admin account cannot be deleted")
	}
	if user.ID == actor.ID {
		return domainerrors.Forbidden("admins cannot delete their own account")
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := s.store.DeleteUserSessions(ctx, userID); err != nil {
		s.logger.Warn("revoke sessions for deleted user", "user_id", userID, "error", err)
	}

	s.logger.Info("user deleted", "user_id", userID, "actor_id", actor.ID)
	return nil
}

// IngestRequest triggers an ingestion run against the external archive.
type IngestRequest struct {
	Query     string `json:"query" validate:"required,max=500"`
	Limit     int    `json:"limit" validate:"gte=0,lte=500"`
	DryRun    bool   `json:"dry_run"`
	SkipFiles bool   `json:"skip_files"`
}

// RunIngestion executes one synchronous ingestion run.
func (s *AdminService) RunIngestion(ctx context.Context, req IngestRequest) (*ingest.Report, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	report, err := s.ingestor.Run(ctx, ingest.Options{
		Query:     req.Query,
		Limit:     req.Limit,
		DryRun:    req.DryRun,
		SkipFiles: req.SkipFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("run ingestion: %w", err)
	}
	return report, nil
}

// Stats summarizes the library for the admin dashboard.
type Stats struct {
	Books        int    `json:"books"`
	Users        int    `json:"users"`
	IndexedBooks uint64 `json:"indexed_books"`
}

// GetStats returns library-wide counts.
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	books, err := s.store.CountBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	indexed, err := s.index.DocumentCount()
	if err != nil {
		return nil, fmt.Errorf("count indexed books: %w", err)
	}
	return &Stats{Books: books, Users: users, IndexedBooks: indexed}, nil
}
