package database

import (
	"fmt"
	"strings"

	"github.com/the-flip/core/internal/config"
	"github.com/the-flip/core/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database and optionally runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	return db, nil
}

func openDB(cfg *config.AppConfig) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDev() {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var dialector gorm.Dialector
	if strings.EqualFold(cfg.Database.Driver, "sqlite") {
		dialector = sqlite.Open(cfg.DSN())
	} else {
		dialector = mysql.New(mysql.Config{
			DSN:               cfg.DSN(),
			DefaultStringSize: 191,
		})
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

// Migrate runs GORM auto-migration for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.MaintainerModel{},
		&models.MaintainerSession{},
		&models.APIToken{},
		&models.MachineModel{},
		&models.MachineInstanceModel{},
		&models.ProblemReportModel{},
		&models.LogEntryModel{},
		&models.PartRequestModel{},
		&models.PartUpdateModel{},
		&models.MediaAttachmentModel{},
		&models.WebhookModel{},
		&models.WebhookEventModel{},
		&models.ActivityModel{},
		&models.OptionModel{},
	)
}
