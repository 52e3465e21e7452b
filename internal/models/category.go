package models

// Category represents a spending category within a space
type Category struct {
	Base
	SpaceID     string `gorm:"type:uuid;not null;index" json:"space_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}
