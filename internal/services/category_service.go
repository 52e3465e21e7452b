package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/models"
	"fiscus/internal/pagination"
)

// categoryService handles category logic. It is also the CategoryStore
// collaborator consumed by the budget engine.
type categoryService struct {
	db     *gorm.DB
	access AccessControl
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, access AccessControl) CategoryServicer {
	return &categoryService{db: db, access: access}
}

// Exists reports whether a category exists in the given space.
func (s *categoryService) Exists(ctx context.Context, spaceID, categoryID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND space_id = ?", categoryID, spaceID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get returns a category's display fields by id.
func (s *categoryService) Get(ctx context.Context, categoryID string) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).Where("id = ?", categoryID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// CreateCategory creates a category in a space the user belongs to.
func (s *categoryService) CreateCategory(ctx context.Context, userID, spaceID, name, description, icon, color string) (*models.Category, error) {
	if err := s.checkAccess(ctx, spaceID, userID); err != nil {
		return nil, err
	}

	category := &models.Category{
		SpaceID:     spaceID,
		Name:        name,
		Description: description,
		Icon:        icon,
		Color:       color,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetSpaceCategories returns a paginated list of a space's categories.
func (s *categoryService) GetSpaceCategories(ctx context.Context, userID, spaceID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if err := s.checkAccess(ctx, spaceID, userID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Category{}).Where("space_id = ?", spaceID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Order("name ASC").Scopes(pagination.Paginate(page)).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID returns a category if the user can access its space.
func (s *categoryService) GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	category, err := s.Get(ctx, categoryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.checkAccess(ctx, category.SpaceID, userID); err != nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	return category, nil
}

// UpdateCategory updates a category's display fields.
func (s *categoryService) UpdateCategory(ctx context.Context, userID, categoryID, name, description, icon, color string) (*models.Category, error) {
	category, err := s.GetCategoryByID(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return category, nil
}

// DeleteCategory soft-deletes a category unless it is referenced by
// expenses or budget allocations.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	category, err := s.GetCategoryByID(ctx, userID, categoryID)
	if err != nil {
		return err
	}

	var expenseCount int64
	if err := s.db.WithContext(ctx).Model(&models.Expense{}).Where("category_id = ?", categoryID).Count(&expenseCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var allocationCount int64
	if err := s.db.WithContext(ctx).Model(&models.CategoryBudget{}).Where("category_id = ?", categoryID).Count(&allocationCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if expenseCount > 0 || allocationCount > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.db.WithContext(ctx).Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *categoryService) checkAccess(ctx context.Context, spaceID, userID string) error {
	ok, err := s.access.HasSpaceAccess(ctx, spaceID, userID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !ok {
		return apperrors.ErrForbidden
	}
	return nil
}
