package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/models"
	"fiscus/internal/pagination"
)

// spaceService handles space and membership logic. It is also the
// AccessControl collaborator consumed by the budget engine.
type spaceService struct {
	db *gorm.DB
}

// NewSpaceService creates a new SpaceServicer.
func NewSpaceService(db *gorm.DB) SpaceServicer {
	return &spaceService{db: db}
}

// HasSpaceAccess reports whether the user is a member of the space.
func (s *spaceService) HasSpaceAccess(ctx context.Context, spaceID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SpaceMember{}).
		Where("space_id = ? AND user_id = ?", spaceID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateSpace creates a space with the owner as its first member.
func (s *spaceService) CreateSpace(ctx context.Context, ownerID, name, currency string) (*models.Space, error) {
	space := &models.Space{
		Name:     name,
		Currency: currency,
		OwnerID:  ownerID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(space).Error; err != nil {
			return err
		}
		member := &models.SpaceMember{
			SpaceID: space.ID,
			UserID:  ownerID,
			Role:    models.SpaceRoleOwner,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return space, nil
}

// GetSpaceByID returns a space if the user is a member.
func (s *spaceService) GetSpaceByID(ctx context.Context, userID, spaceID string) (*models.Space, error) {
	ok, err := s.HasSpaceAccess(ctx, spaceID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !ok {
		return nil, apperrors.ErrSpaceNotFound
	}

	var space models.Space
	err = s.db.WithContext(ctx).Preload("Members").Where("id = ?", spaceID).First(&space).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSpaceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &space, nil
}

// GetUserSpaces returns a paginated list of spaces the user belongs to.
func (s *spaceService) GetUserSpaces(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Space], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Space{}).
		Joins("JOIN space_members ON space_members.space_id = spaces.id AND space_members.deleted_at IS NULL").
		Where("space_members.user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var spaces []models.Space
	if err := base.Scopes(pagination.Paginate(page)).Find(&spaces).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(spaces, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// AddMember adds a user to a space. Only the owner can manage membership.
func (s *spaceService) AddMember(ctx context.Context, actorID, spaceID, userID string, role models.SpaceRole) (*models.SpaceMember, error) {
	if err := s.requireOwner(ctx, spaceID, actorID); err != nil {
		return nil, err
	}

	var existing int64
	err := s.db.WithContext(ctx).Model(&models.SpaceMember{}).
		Where("space_id = ? AND user_id = ?", spaceID, userID).
		Count(&existing).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrAlreadyMember
	}

	member := &models.SpaceMember{SpaceID: spaceID, UserID: userID, Role: role}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return member, nil
}

// RemoveMember removes a user from a space. The owner cannot be removed.
func (s *spaceService) RemoveMember(ctx context.Context, actorID, spaceID, userID string) error {
	if err := s.requireOwner(ctx, spaceID, actorID); err != nil {
		return err
	}

	var member models.SpaceMember
	err := s.db.WithContext(ctx).
		Where("space_id = ? AND user_id = ?", spaceID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrMemberNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if member.Role == models.SpaceRoleOwner {
		return apperrors.WithMessage(apperrors.ErrForbidden, "The space owner cannot be removed")
	}

	// Hard delete: the (space_id, user_id) unique index ignores
	// deleted_at, so a tombstoned membership would block re-adding
	// this user later.
	if err := s.db.WithContext(ctx).Unscoped().Delete(&member).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// requireOwner fails unless the actor holds the owner role in the space.
func (s *spaceService) requireOwner(ctx context.Context, spaceID, actorID string) error {
	var member models.SpaceMember
	err := s.db.WithContext(ctx).
		Where("space_id = ? AND user_id = ?", spaceID, actorID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrForbidden
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if member.Role != models.SpaceRoleOwner {
		return apperrors.ErrForbidden
	}
	return nil
}
