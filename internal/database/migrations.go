package database

import (
	"errors"
	"time"

	"github.com/liverton-codes/liverton-api/internal/catalog"
	"github.com/liverton-codes/liverton-api/internal/engagement"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationSeedCatalogViewCounters = "2026-08-20_seed_catalog_view_counters"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationSeedCatalogViewCounters, apply: seedCatalogViewCounters},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// seedCatalogViewCounters creates zero-valued counters for every showcased
// app so increments and reads always target an existing row.
func seedCatalogViewCounters(db *gorm.DB) error {
	for _, appID := range catalog.IDs() {
		var existing engagement.ViewCounter
		err := db.Where("app_id = ?", appID).Take(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&engagement.ViewCounter{AppID: appID, Count: 0}).Error; err != nil {
			return err
		}
	}
	return nil
}
