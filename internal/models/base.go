package models

import (
	"time"

	"gorm.io/gorm"

	"fiscus/internal/uuid"
)

// Base carries the columns shared by every table: a UUIDv7 primary key,
// timestamps, and a soft-delete tombstone.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate assigns a UUIDv7 unless the caller supplied an ID.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID != "" {
		return nil
	}
	b.ID = uuid.New()
	return nil
}
