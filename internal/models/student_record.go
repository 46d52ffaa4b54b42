package models

import (
	"time"

	"gorm.io/datatypes"
)

// StudentRecord is the relational row backing a student. The JSON payload is
// replaced as a whole on every write and guarded by Version.
type StudentRecord struct {
	ID           string         `gorm:"primaryKey;size:64"`
	ZID          string         `gorm:"column:z_id;size:32;uniqueIndex"`
	PasswordHash string         `gorm:"size:255"`
	Position     int64          `gorm:"index"`
	Payload      datatypes.JSON `gorm:"type:json;not null"`
	Version      int64          `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName pins the table name.
func (StudentRecord) TableName() string {
	return "student_records"
}
