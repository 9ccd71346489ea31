package migration

import (
	"fmt"

	"gorm.io/gorm"

	"aegiswallet/internal/infrastructure/persistence/models"
	"aegiswallet/internal/shared/logger"
)

// GormAutoMigrateStrategy implements migration using GORM AutoMigrate.
// Intended for development only; production uses versioned SQL scripts.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

// NewGormAutoMigrateStrategy creates a new GORM AutoMigrate strategy
func NewGormAutoMigrateStrategy() *GormAutoMigrateStrategy {
	return &GormAutoMigrateStrategy{
		logger: logger.NewLogger().With("component", "migration.automigrate"),
	}
}

// Migrate runs GORM AutoMigrate for the given models
func (s *GormAutoMigrateStrategy) Migrate(db *gorm.DB, models ...interface{}) error {
	if len(models) == 0 {
		models = AutoMigrateModels()
	}

	s.logger.Infow("starting GORM auto migration", "models_count", len(models))

	if err := db.AutoMigrate(models...); err != nil {
		s.logger.Errorw("auto migration failed", "error", err)
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	s.logger.Infow("auto migration completed successfully")
	return nil
}

// GetName returns the strategy name
func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}

// AutoMigrateModels returns every persistence model the engine owns.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.CredentialModel{},
		&models.SyncSettingsModel{},
		&models.SyncMappingModel{},
		&models.SyncQueueItemModel{},
		&models.AuditEntryModel{},
		&models.FinancialEventModel{},
	}
}
