package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/cseasy-api/internal/models"
)

// Migrate creates the tables backing the relational student store.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.StudentRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
