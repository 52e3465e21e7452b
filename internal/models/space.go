package models

// SpaceRole represents a member's role within a space
type SpaceRole string

const (
	SpaceRoleOwner  SpaceRole = "owner"
	SpaceRoleMember SpaceRole = "member"
)

// Space is the tenant scope for categories, expenses, and budgets.
// A personal space has a single member; shared spaces have several.
type Space struct {
	Base
	Name     string `gorm:"not null" json:"name"`
	Currency string `gorm:"size:3;not null;default:'USD'" json:"currency"`
	OwnerID  string `gorm:"type:uuid;not null;index" json:"owner_id"`

	// Relationships
	Members []SpaceMember `gorm:"foreignKey:SpaceID" json:"members,omitempty"`
}

// SpaceMember grants a user access to a space
type SpaceMember struct {
	Base
	SpaceID string    `gorm:"type:uuid;not null;index:idx_space_members_space_user,unique" json:"space_id"`
	UserID  string    `gorm:"type:uuid;not null;index:idx_space_members_space_user,unique" json:"user_id"`
	Role    SpaceRole `gorm:"not null;default:'member'" json:"role"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
