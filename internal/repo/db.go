package repo

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"SecureVault/internal/model"
)

// InitDB открывает Postgres по DSN и прогоняет автомиграции моделей.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate выполняет автомиграции всех моделей; вынесена отдельно,
// чтобы тесты могли применить её к in-memory SQLite.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.MasterKey{},
		&model.Room{},
		&model.RoomMember{},
		&model.RoomKey{},
		&model.File{},
		&model.FileVersion{},
		&model.FileLock{},
		&model.ShareLink{},
		&model.ChatMessage{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
