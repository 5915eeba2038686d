package database

import (
	"fmt"
	"log/slog"

	"papum-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres database and auto-migrates all models.
func Connect(databaseURL string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	slog.Info("✅ Database connected successfully")

	err = db.AutoMigrate(
		&models.User{},
		&models.House{},
		&models.Expense{},
		&models.Activity{},
		&models.Invitation{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	slog.Info("✅ Database migrated successfully")
	return db, nil
}
