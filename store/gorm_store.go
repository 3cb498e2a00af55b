package store

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"skycast.app/config"
	"skycast.app/errors"
	"skycast.app/models"
)

// GormStore is a PersistentStore backed by a relational database through
// gorm, so cached snapshots survive process restarts without Redis.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the configured database and migrates the cache table.
func NewGormStore(cfg *config.StorageConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	default:
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("unsupported storage driver: %s", cfg.Driver), nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, errors.NewStorageError("connect to database", err)
	}

	if err := db.AutoMigrate(&models.CachedEntry{}); err != nil {
		return nil, errors.NewStorageError("run cache table migration", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) Load(ctx context.Context, key string) ([]byte, bool) {
	var entry models.CachedEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if err != nil {
		return nil, false
	}
	return entry.Blob, true
}

func (s *GormStore) Save(ctx context.Context, key string, blob []byte) error {
	if blob == nil {
		return nil
	}

	entry := models.CachedEntry{Key: key, Blob: blob}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return errors.NewStorageError("save cache entry", err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&models.CachedEntry{}, "key = ?", key).Error
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NewStorageError("delete cache entry", err)
	}
	return nil
}

func (s *GormStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.CachedEntry{}).Error
	if err != nil {
		return errors.NewStorageError("clear cache entries", err)
	}
	return nil
}
