package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/ingest"
	"github.com/librariumapp/librarium-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminListUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users",
		Summary:     "List users",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminUpdateUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/users/{id}",
		Summary:     "Update user",
		Description: "Changes an account's role or status. Disabling an account revokes its sessions.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminUpdateUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeleteUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/users/{id}",
		Summary:     "Delete user",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminDeleteUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminRunIngestion",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/ingest",
		Summary:     "Run ingestion",
		Description: "Runs one synchronous ingestion pass against the external archive.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminRunIngestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/stats",
		Summary:     "Library statistics",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminGetStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/books/{id}",
		Summary:     "Delete book",
		Description: "Removes a book from the catalog, the search index, and disk storage.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAdminDeleteBook)
}

// === DTOs ===

// UserListOutput wraps the user list for Huma.
type UserListOutput struct {
	Body struct {
		Users []UserResponse `json:"users" doc:"All accounts"`
	}
}

// AdminUpdateUserRequest carries account changes. Omitted fields are
// left unchanged.
type AdminUpdateUserRequest struct {
	Role   *string `json:"role,omitempty" doc:"New role (reader, premium, admin)"`
	Status *string `json:"status,omitempty" doc:"New status (active, disabled)"`
}

// AdminUpdateUserInput wraps the update request for Huma.
type AdminUpdateUserInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body AdminUpdateUserRequest
}

// AdminUserInput identifies one account.
type AdminUserInput struct {
	ID string `path:"id" doc:"User ID"`
}

// IngestRequest triggers an ingestion run.
type IngestRequest struct {
	Query     string `json:"query" validate:"required,max=500" doc:"Archive search expression"`
	Limit     int    `json:"limit,omitempty" validate:"gte=0,lte=500" doc:"Maximum archive results to consider"`
	DryRun    bool   `json:"dry_run,omitempty" doc:"Report what would be imported without writing anything"`
	SkipFiles bool   `json:"skip_files,omitempty" doc:"Import metadata only, without PDFs and covers"`
}

// IngestInput wraps the ingest request for Huma.
type IngestInput struct {
	Body IngestRequest
}

// IngestOutput wraps the ingestion report for Huma.
type IngestOutput struct {
	Body ingest.Report
}

// StatsOutput wraps library statistics for Huma.
type StatsOutput struct {
	Body service.Stats
}

// === Handlers ===

func (s *Server) handleAdminListUsers(ctx context.Context, _ *struct{}) (*UserListOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.services.Admin.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := &UserListOutput{}
	out.Body.Users = make([]UserResponse, 0, len(users))
	for _, u := range users {
		out.Body.Users = append(out.Body.Users, mapUser(u))
	}
	return out, nil
}

func (s *Server) handleAdminUpdateUser(ctx context.Context, input *AdminUpdateUserInput) (*UserOutput, error) {
	actor, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	req := service.UpdateUserRequest{}
	if input.Body.Role != nil {
		role := domain.Role(*input.Body.Role)
		req.Role = &role
	}
	if input.Body.Status != nil {
		status := domain.UserStatus(*input.Body.Status)
		req.Status = &status
	}

	user, err := s.services.Admin.UpdateUser(ctx, actor, input.ID, req)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUser(user)}, nil
}

func (s *Server) handleAdminDeleteUser(ctx context.Context, input *AdminUserInput) (*MessageOutput, error) {
	actor, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Admin.DeleteUser(ctx, actor, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "User deleted"}}, nil
}

func (s *Server) handleAdminRunIngestion(ctx context.Context, input *IngestInput) (*IngestOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	report, err := s.services.Admin.RunIngestion(ctx, service.IngestRequest{
		Query:     input.Body.Query,
		Limit:     input.Body.Limit,
		DryRun:    input.Body.DryRun,
		SkipFiles: input.Body.SkipFiles,
	})
	if err != nil {
		return nil, err
	}
	return &IngestOutput{Body: *report}, nil
}

func (s *Server) handleAdminGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	stats, err := s.services.Admin.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Body: *stats}, nil
}

func (s *Server) handleAdminDeleteBook(ctx context.Context, input *GetBookInput) (*MessageOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Book.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Book deleted"}}, nil
}
