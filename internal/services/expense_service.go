package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/models"
	"fiscus/internal/pagination"
)

// expenseService handles expense logic. It is also the ExpenseReader
// collaborator consumed by the budget engine.
type expenseService struct {
	db         *gorm.DB
	access     AccessControl
	categories CategoryStore
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB, access AccessControl, categories CategoryStore) ExpenseServicer {
	return &expenseService{db: db, access: access, categories: categories}
}

// FindBySpaceAndWindow returns one page of a space's expenses dated within
// [start, end], ordered by date then id so that offset paging is stable
// while the recalculator scans the window.
func (s *expenseService) FindBySpaceAndWindow(ctx context.Context, spaceID string, start, end time.Time, limit, offset int) ([]models.Expense, error) {
	var expenses []models.Expense
	err := s.db.WithContext(ctx).
		Where("space_id = ? AND date >= ? AND date <= ?", spaceID, start, end).
		Order("date ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// CreateExpense records a spend event in a space the user belongs to.
func (s *expenseService) CreateExpense(ctx context.Context, userID, spaceID, categoryID string, amount int64, description string, date time.Time) (*models.Expense, error) {
	ok, err := s.access.HasSpaceAccess(ctx, spaceID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}

	exists, err := s.categories.Exists(ctx, spaceID, categoryID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !exists {
		return nil, apperrors.ErrCategoryNotFound
	}

	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Expense amount must be positive")
	}

	expense := &models.Expense{
		SpaceID:     spaceID,
		CategoryID:  categoryID,
		CreatedBy:   userID,
		Amount:      amount,
		Description: description,
		Date:        date,
	}
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expense, nil
}

// GetSpaceExpenses returns a paginated, filtered list of a space's expenses.
func (s *expenseService) GetSpaceExpenses(ctx context.Context, userID, spaceID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error) {
	ok, err := s.access.HasSpaceAccess(ctx, spaceID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !ok {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Expense{}).Where("space_id = ?", spaceID)
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date <= ?", *filter.ToDate)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.MinAmount != nil {
		base = base.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		base = base.Where("amount <= ?", *filter.MaxAmount)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expenses []models.Expense
	err = base.Preload("Category").Order("date DESC").Scopes(pagination.Paginate(page)).Find(&expenses).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetExpenseByID returns an expense if the user can access its space.
func (s *expenseService) GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.WithContext(ctx).Preload("Category").Where("id = ?", expenseID).First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ok, err := s.access.HasSpaceAccess(ctx, expense.SpaceID, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !ok {
		return nil, apperrors.ErrExpenseNotFound
	}
	return &expense, nil
}

// DeleteExpense soft-deletes an expense.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	expense, err := s.GetExpenseByID(ctx, userID, expenseID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(expense).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
