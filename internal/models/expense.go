package models

import "time"

// Expense represents a single spend event within a space.
// Amounts are stored in minor currency units (cents).
type Expense struct {
	Base
	SpaceID     string    `gorm:"type:uuid;not null;index:idx_expenses_space_date" json:"space_id"`
	CategoryID  string    `gorm:"type:uuid;not null;index" json:"category_id"`
	CreatedBy   string    `gorm:"type:uuid;not null" json:"created_by"`
	Amount      int64     `gorm:"type:bigint;not null" json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `gorm:"not null;index:idx_expenses_space_date" json:"date"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
