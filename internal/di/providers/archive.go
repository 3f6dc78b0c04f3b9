package providers

import (
	"github.com/samber/do/v2"

	"github.com/librariumapp/librarium-server/internal/ai"
	"github.com/librariumapp/librarium-server/internal/archive"
	"github.com/librariumapp/librarium-server/internal/classifier"
	"github.com/librariumapp/librarium-server/internal/config"
	"github.com/librariumapp/librarium-server/internal/ingest"
	"github.com/librariumapp/librarium-server/internal/logger"
	"github.com/librariumapp/librarium-server/internal/storage"
)

// ProvideArchiveClient provides the external text-archive client.
func ProvideArchiveClient(i do.Injector) (*archive.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return archive.New(cfg.Archive.BaseURL, cfg.Archive.RequestsPerSecond, log.Logger), nil
}

// ArchiveCacheHandle wraps the archive metadata cache with shutdown capability.
type ArchiveCacheHandle struct {
	*archive.Cache
}

// Shutdown implements do.Shutdownable.
func (h *ArchiveCacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideArchiveCache provides the disk-backed archive metadata cache.
func ProvideArchiveCache(i do.Injector) (*ArchiveCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cache, err := archive.OpenCache(cfg.Storage.CachePath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Archive cache opened", "path", cfg.Storage.CachePath)

	return &ArchiveCacheHandle{Cache: cache}, nil
}

// ProvideAIClient provides the AI completion client shared by the
// librarian and the genre classifier.
func ProvideAIClient(i do.Injector) (*ai.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := ai.New(cfg.AI.APIKey, cfg.AI.Model, log.Logger, ai.WithTimeout(cfg.AI.Timeout))
	if !client.Enabled() {
		log.Warn("AI features disabled: no API key configured")
	}

	return client, nil
}

// ProvideClassifier provides the genre classifier used during ingestion.
func ProvideClassifier(i do.Injector) (classifier.Classifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.AI.MockMode {
		log.Info("Using mock genre classifier")
		return classifier.NewMockClassifier(), nil
	}
	if !cfg.AI.ClassificationActive() {
		return classifier.Disabled{}, nil
	}

	client := do.MustInvoke[*ai.Client](i)
	return classifier.NewAIClassifier(client, log.Logger), nil
}

// ProvideIngestor provides the archive ingestion pipeline.
func ProvideIngestor(i do.Injector) (*ingest.Ingestor, error) {
	arch := do.MustInvoke[*archive.Client](i)
	cacheHandle := do.MustInvoke[*ArchiveCacheHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	files := do.MustInvoke[*storage.Storage](i)
	cls := do.MustInvoke[classifier.Classifier](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return ingest.New(arch, cacheHandle.Cache, storeHandle.Store, files, cls, indexHandle.SearchIndex, log.Logger), nil
}
