// Package di provides dependency injection configuration for the Librarium server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/librariumapp/librarium-server/internal/auth"
	"github.com/librariumapp/librarium-server/internal/config"
	"github.com/librariumapp/librarium-server/internal/di/providers"
	"github.com/librariumapp/librarium-server/internal/ingest"
	"github.com/librariumapp/librarium-server/internal/logger"
	"github.com/librariumapp/librarium-server/internal/service"
	"github.com/librariumapp/librarium-server/internal/storage"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Storage and search layers
	do.Provide(injector, providers.ProvideFileStorage)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Archive and AI layer
	do.Provide(injector, providers.ProvideArchiveClient)
	do.Provide(injector, providers.ProvideArchiveCache)
	do.Provide(injector, providers.ProvideAIClient)
	do.Provide(injector, providers.ProvideClassifier)
	do.Provide(injector, providers.ProvideIngestor)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideLibrarianService)
	do.Provide(injector, providers.ProvideSettingsService)
	do.Provide(injector, providers.ProvideAdminService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*storage.Storage](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.ArchiveCacheHandle](injector)
	_ = do.MustInvoke[*ingest.Ingestor](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.LibrarianService](injector)
	_ = do.MustInvoke[*service.SettingsService](injector)
	_ = do.MustInvoke[*service.AdminService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Backfill the index from the catalog when it is empty
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
