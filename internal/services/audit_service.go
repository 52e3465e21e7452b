package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"fiscus/internal/logger"
	"fiscus/internal/models"
)

// auditService records who did what to which resource.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log writes one audit entry. Failures are logged and swallowed so auditing
// never breaks the operation being audited.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      marshalChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

func marshalChanges(action string, changes map[string]interface{}) string {
	if changes == nil {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
