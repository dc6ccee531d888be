package app

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"studysphere-tracker/internal/domain"
)

// PassageCatalog resolves passages (and their subjects) from an external
// catalog. The tracker never writes through it.
type PassageCatalog interface {
	Passages(ctx context.Context) ([]domain.Passage, error)
}

// StoragePassageCatalog reads the catalog blob persisted under PassagesKey.
type StoragePassageCatalog struct {
	storage Storage
	logger  *zap.Logger
}

func NewStoragePassageCatalog(storage Storage, logger *zap.Logger) *StoragePassageCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoragePassageCatalog{storage: storage, logger: logger}
}

func (c *StoragePassageCatalog) Passages(ctx context.Context) ([]domain.Passage, error) {
	var passages []domain.Passage
	_, err := loadJSON(ctx, c.storage, PassagesKey, &passages)
	var corrupt *errCorrupt
	if errors.As(err, &corrupt) {
		c.logger.Warn("passage catalog unreadable, treating as empty", zap.Error(err))
		return nil, nil
	}
	return passages, err
}

// LoadPassages lets the catalog sit behind the memory and Redis caches.
func (c *StoragePassageCatalog) LoadPassages(ctx context.Context) ([]domain.Passage, error) {
	return c.Passages(ctx)
}

// ImportPassages replaces the persisted catalog. It exists for seeding local
// stores; the catalog is otherwise owned elsewhere.
func ImportPassages(ctx context.Context, storage Storage, passages []domain.Passage) error {
	if passages == nil {
		passages = []domain.Passage{}
	}
	return saveJSON(ctx, storage, PassagesKey, passages)
}
