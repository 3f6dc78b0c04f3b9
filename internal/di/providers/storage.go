package providers

import (
	"github.com/samber/do/v2"

	"github.com/librariumapp/librarium-server/internal/config"
	"github.com/librariumapp/librarium-server/internal/logger"
	"github.com/librariumapp/librarium-server/internal/storage"
)

// ProvideFileStorage provides the on-disk PDF and cover storage.
func ProvideFileStorage(i do.Injector) (*storage.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	files, err := storage.New(cfg.Storage.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("File storage ready", "path", cfg.Storage.BasePath)

	return files, nil
}
