package api

import "github.com/librariumapp/librarium-server/internal/service"

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth      *service.AuthService
	Book      *service.BookService
	Librarian *service.LibrarianService
	Settings  *service.SettingsService
	Admin     *service.AdminService
}
