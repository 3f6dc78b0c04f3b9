package providers

import (
	"github.com/samber/do/v2"

	"github.com/librariumapp/librarium-server/internal/ai"
	"github.com/librariumapp/librarium-server/internal/auth"
	"github.com/librariumapp/librarium-server/internal/ingest"
	"github.com/librariumapp/librarium-server/internal/logger"
	"github.com/librariumapp/librarium-server/internal/service"
	"github.com/librariumapp/librarium-server/internal/storage"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, log.Logger), nil
}

// ProvideBookService provides the catalog service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	files := do.MustInvoke[*storage.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, indexHandle.SearchIndex, files, log.Logger), nil
}

// ProvideLibrarianService provides the AI librarian service.
func ProvideLibrarianService(i do.Injector) (*service.LibrarianService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	client := do.MustInvoke[*ai.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibrarianService(storeHandle.Store, indexHandle.SearchIndex, client, log.Logger), nil
}

// ProvideSettingsService provides the display settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSettingsService(storeHandle.Store, log.Logger), nil
}

// ProvideAdminService provides the administration service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ingestor := do.MustInvoke[*ingest.Ingestor](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(storeHandle.Store, ingestor, indexHandle.SearchIndex, log.Logger), nil
}
