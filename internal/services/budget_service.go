package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"fiscus/internal/config"
	apperrors "fiscus/internal/errors"
	"fiscus/internal/models"
	"fiscus/internal/pagination"
)

// budgetService is the budget engine's orchestration layer: it gates writes
// through the overlap and allocation validators, triggers spend
// recalculation, and owns the lifecycle operations.
type budgetService struct {
	db         *gorm.DB
	access     AccessControl
	categories CategoryStore
	expenses   ExpenseReader
}

// NewBudgetService creates a new BudgetServicer with its collaborator
// interfaces injected explicitly.
func NewBudgetService(db *gorm.DB, access AccessControl, categories CategoryStore, expenses ExpenseReader) BudgetServicer {
	return &budgetService{db: db, access: access, categories: categories, expenses: expenses}
}

func (s *budgetService) expensePageSize() int  { return config.Get().ExpensePageSize }
func (s *budgetService) expenseWindowCap() int { return config.Get().ExpenseWindowCap }
func (s *budgetService) renewalWorkers() int   { return config.Get().RenewalWorkers }

// collaboratorCtx bounds an external collaborator call with the configured
// timeout. Failures of bounded calls classify as dependency errors; the
// engine never retries them.
func collaboratorCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.Get().CollaboratorTimeout)
}

// orderByPosition keeps category budgets, alerts, and viewers in their
// client-facing order when preloaded.
func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// startOfDay returns t with the time portion zeroed.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// checkSpaceAccess verifies the user may act within the space.
func (s *budgetService) checkSpaceAccess(ctx context.Context, spaceID, userID string) error {
	cctx, cancel := collaboratorCtx(ctx)
	defer cancel()

	ok, err := s.access.HasSpaceAccess(cctx, spaceID, userID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDependencyFailed, err)
	}
	if !ok {
		return apperrors.ErrForbidden
	}
	return nil
}

// loadBudget fetches a budget with its ordered associations. Soft-deleted
// budgets are filtered by the gorm tombstone on every query.
func (s *budgetService) loadBudget(tx *gorm.DB, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	err := tx.
		Preload("CategoryBudgets", orderByPosition).
		Preload("Alerts", orderByPosition).
		Preload("AllowedUsers", orderByPosition).
		Where("id = ?", budgetID).
		First(&budget).Error
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// CreateBudget validates and persists a new budget, then synchronously
// recalculates its spend when the window has already begun.
func (s *budgetService) CreateBudget(ctx context.Context, input CreateBudgetInput) (*models.Budget, error) {
	if err := s.checkSpaceAccess(ctx, input.SpaceID, input.CreatedBy); err != nil {
		return nil, err
	}

	if input.TotalAmount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Budget total must be positive")
	}

	start := startOfDay(input.StartDate)
	end := input.EndDate
	if end.IsZero() {
		_, end = PeriodWindow(input.Period, start)
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	globalAlerts, err := normalizeAlerts(input.GlobalAlerts)
	if err != nil {
		return nil, err
	}
	categoryAlerts := make([][]AlertInput, len(input.Allocations))
	for i, a := range input.Allocations {
		categoryAlerts[i], err = normalizeAlerts(a.Alerts)
		if err != nil {
			return nil, err
		}
	}

	if err := s.validateAllocations(ctx, input.SpaceID, input.TotalAmount, input.Allocations); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		SpaceID:     input.SpaceID,
		CreatedBy:   input.CreatedBy,
		Name:        input.Name,
		Currency:    input.Currency,
		TotalAmount: input.TotalAmount,
		Period:      input.Period,
		StartDate:   start,
		EndDate:     end,
		Status:      models.BudgetStatusActive,
		AutoRenew:   input.AutoRenew,
		IsTemplate:  input.IsTemplate,
	}
	budget.RecomputeRemaining()

	for i, a := range input.Allocations {
		cb := models.CategoryBudget{
			CategoryID:      a.CategoryID,
			AllocatedAmount: a.AllocatedAmount,
			Position:        i,
		}
		cb.RemainingAmount = models.RemainingOf(cb.AllocatedAmount, 0)
		budget.CategoryBudgets = append(budget.CategoryBudgets, cb)
	}
	for i, userID := range input.AllowedUsers {
		budget.AllowedUsers = append(budget.AllowedUsers, models.BudgetViewer{UserID: userID, Position: i})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Templates are blueprints, never scheduled: they are exempt from
		// the one-budget-per-window rule and never trip it for others.
		if !input.IsTemplate {
			if err := s.validateOverlap(tx, input.SpaceID, input.Period, start, end, ""); err != nil {
				return err
			}
		}

		if err := tx.Create(budget).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.Wrap(apperrors.ErrBudgetPeriodOverlap, err)
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// Category alert rows reference allocation rows, which only have
		// ids after the create above.
		var alerts []models.BudgetAlert
		for i, a := range globalAlerts {
			alerts = append(alerts, models.BudgetAlert{
				BudgetID:  budget.ID,
				Type:      a.Type,
				Threshold: a.Threshold,
				Enabled:   a.Enabled,
				Position:  i,
			})
		}
		for i := range input.Allocations {
			cbID := budget.CategoryBudgets[i].ID
			for j, a := range categoryAlerts[i] {
				alerts = append(alerts, models.BudgetAlert{
					BudgetID:         budget.ID,
					CategoryBudgetID: &cbID,
					Type:             a.Type,
					Threshold:        a.Threshold,
					Enabled:          a.Enabled,
					Position:         j,
				})
			}
		}
		if len(alerts) > 0 {
			if err := tx.Create(&alerts).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !budget.IsTemplate && !budget.StartDate.After(time.Now()) {
		if err := s.recalculate(ctx, budget.ID); err != nil {
			return nil, err
		}
	}

	created, err := s.loadBudget(s.db, budget.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return created, nil
}

// GetBudgetByID returns a budget the user can see: space members always,
// plus users on the budget's explicit viewer list.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	budget, err := s.loadBudget(s.db, budgetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.authorizeBudget(ctx, budget, userID); err != nil {
		return nil, err
	}
	return budget, nil
}

// authorizeBudget allows space members and explicit viewers.
func (s *budgetService) authorizeBudget(ctx context.Context, budget *models.Budget, userID string) error {
	err := s.checkSpaceAccess(ctx, budget.SpaceID, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrForbidden) {
		return err
	}
	for _, viewer := range budget.AllowedUsers {
		if viewer.UserID == userID {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

// GetSpaceBudgets returns a paginated list of a space's budgets with
// optional status, period, and template filters.
func (s *budgetService) GetSpaceBudgets(ctx context.Context, userID, spaceID string, page pagination.PageRequest, filter BudgetFilter) (*pagination.PageResponse[models.Budget], error) {
	if err := s.checkSpaceAccess(ctx, spaceID, userID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("space_id = ?", spaceID)
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.Period != nil {
		base = base.Where("period = ?", *filter.Period)
	}
	if filter.IsTemplate != nil {
		base = base.Where("is_template = ?", *filter.IsTemplate)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	err := base.
		Preload("CategoryBudgets", orderByPosition).
		Preload("Alerts", orderByPosition).
		Order("start_date DESC").
		Scopes(pagination.Paginate(page)).
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateBudget applies definition changes (name, total, allocations, alert
// definitions, viewers, pause state) and re-runs validation and
// recalculation when the financial shape changed. Spent and remaining
// amounts are never updated directly here.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, input UpdateBudgetInput) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	newTotal := budget.TotalAmount
	if input.TotalAmount != nil {
		if *input.TotalAmount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Budget total must be positive")
		}
		newTotal = *input.TotalAmount
	}

	if input.Status != nil {
		if err := validateStatusChange(budget.Status, *input.Status); err != nil {
			return nil, err
		}
	}

	// Re-validate the allocation invariant whenever totals or allocations
	// move. With no new allocation list the existing one must still fit
	// under the new total.
	if input.Allocations != nil {
		if err := s.validateAllocations(ctx, budget.SpaceID, newTotal, *input.Allocations); err != nil {
			return nil, err
		}
	} else if input.TotalAmount != nil {
		var sum int64
		for _, cb := range budget.CategoryBudgets {
			sum += cb.AllocatedAmount
		}
		if sum > newTotal {
			return nil, apperrors.ErrAllocationExceedsTotal
		}
	}

	var newGlobalAlerts []AlertInput
	if input.GlobalAlerts != nil {
		newGlobalAlerts, err = normalizeAlerts(*input.GlobalAlerts)
		if err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = *input.Name
		}
		if input.TotalAmount != nil {
			updates["total_amount"] = newTotal
			updates["remaining_amount"] = models.RemainingOf(newTotal, budget.SpentAmount)
		}
		if input.Status != nil {
			updates["status"] = *input.Status
		}
		if input.AutoRenew != nil {
			updates["auto_renew"] = *input.AutoRenew
		}
		if len(updates) > 0 {
			if err := tx.Model(budget).Updates(updates).Error; err != nil {
				return err
			}
		}

		if input.Allocations != nil {
			if err := s.applyAllocationUpdate(tx, budget, *input.Allocations); err != nil {
				return err
			}
		}
		if input.GlobalAlerts != nil {
			if err := s.applyGlobalAlertUpdate(tx, budget, newGlobalAlerts); err != nil {
				return err
			}
		}
		if input.AllowedUsers != nil {
			// Hard delete: the (budget_id, user_id) unique index has no
			// deleted_at predicate, so a tombstoned row would block
			// re-inserting a retained viewer.
			if err := tx.Unscoped().Where("budget_id = ?", budget.ID).Delete(&models.BudgetViewer{}).Error; err != nil {
				return err
			}
			for i, viewerID := range *input.AllowedUsers {
				viewer := models.BudgetViewer{BudgetID: budget.ID, UserID: viewerID, Position: i}
				if err := tx.Create(&viewer).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Financial shape changed: refresh actuals and alert state from the
	// current expense pool.
	if !budget.IsTemplate && (input.TotalAmount != nil || input.Allocations != nil || input.GlobalAlerts != nil) {
		if err := s.recalculate(ctx, budget.ID); err != nil {
			return nil, err
		}
	}

	updated, err := s.loadBudget(s.db, budget.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return updated, nil
}

// validateStatusChange allows only the user-drivable transitions: pausing
// an active budget and resuming a paused one. Exceeded and completed are
// engine-owned states.
func validateStatusChange(from, to models.BudgetStatus) error {
	if from == to {
		return nil
	}
	if from == models.BudgetStatusActive && to == models.BudgetStatusPaused {
		return nil
	}
	if from == models.BudgetStatusPaused && to == models.BudgetStatusActive {
		return nil
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput,
		"Cannot change status from "+string(from)+" to "+string(to))
}

// applyAllocationUpdate reconciles the stored allocation rows with the
// requested list, index-stable: rows for categories that stay keep their
// identity (and so their alerts' trigger state), removed rows and their
// alerts go, new rows are appended.
func (s *budgetService) applyAllocationUpdate(tx *gorm.DB, budget *models.Budget, allocations []CategoryAllocationInput) error {
	existingByCategory := make(map[string]*models.CategoryBudget, len(budget.CategoryBudgets))
	for i := range budget.CategoryBudgets {
		existingByCategory[budget.CategoryBudgets[i].CategoryID] = &budget.CategoryBudgets[i]
	}

	kept := make(map[string]bool, len(allocations))
	for i, a := range allocations {
		newAlerts, err := normalizeAlerts(a.Alerts)
		if err != nil {
			return err
		}

		cb, exists := existingByCategory[a.CategoryID]
		if exists {
			kept[a.CategoryID] = true
			err = tx.Model(cb).Updates(map[string]interface{}{
				"allocated_amount": a.AllocatedAmount,
				"remaining_amount": models.RemainingOf(a.AllocatedAmount, cb.SpentAmount),
				"position":         i,
			}).Error
			if err != nil {
				return err
			}
		} else {
			fresh := models.CategoryBudget{
				BudgetID:        budget.ID,
				CategoryID:      a.CategoryID,
				AllocatedAmount: a.AllocatedAmount,
				RemainingAmount: a.AllocatedAmount,
				Position:        i,
			}
			if err := tx.Create(&fresh).Error; err != nil {
				return err
			}
			cb = &fresh
		}

		replacement := make([]models.BudgetAlert, 0, len(newAlerts))
		for j, alert := range newAlerts {
			replacement = append(replacement, models.BudgetAlert{
				BudgetID:         budget.ID,
				CategoryBudgetID: &cb.ID,
				Type:             alert.Type,
				Threshold:        alert.Threshold,
				Enabled:          alert.Enabled,
				Position:         j,
			})
		}
		carryOverAlertState(budget.CategoryAlerts(cb.ID), replacement)

		if err := tx.Where("budget_id = ? AND category_budget_id = ?", budget.ID, cb.ID).Delete(&models.BudgetAlert{}).Error; err != nil {
			return err
		}
		if len(replacement) > 0 {
			if err := tx.Create(&replacement).Error; err != nil {
				return err
			}
		}
	}

	for categoryID, cb := range existingByCategory {
		if kept[categoryID] {
			continue
		}
		if err := tx.Where("budget_id = ? AND category_budget_id = ?", budget.ID, cb.ID).Delete(&models.BudgetAlert{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(cb).Error; err != nil {
			return err
		}
	}
	return nil
}

// applyGlobalAlertUpdate replaces the budget-level alert definitions,
// preserving trigger state for unchanged definitions.
func (s *budgetService) applyGlobalAlertUpdate(tx *gorm.DB, budget *models.Budget, alerts []AlertInput) error {
	replacement := make([]models.BudgetAlert, 0, len(alerts))
	for i, a := range alerts {
		replacement = append(replacement, models.BudgetAlert{
			BudgetID:  budget.ID,
			Type:      a.Type,
			Threshold: a.Threshold,
			Enabled:   a.Enabled,
			Position:  i,
		})
	}
	carryOverAlertState(budget.GlobalAlerts(), replacement)

	if err := tx.Where("budget_id = ? AND category_budget_id IS NULL", budget.ID).Delete(&models.BudgetAlert{}).Error; err != nil {
		return err
	}
	if len(replacement) == 0 {
		return nil
	}
	return tx.Create(&replacement).Error
}

// DeleteBudget soft-deletes a budget. Space members and explicit viewers
// may delete; the tombstone keeps who and when.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(budget).Update("deleted_by", userID).Error; err != nil {
			return err
		}
		return tx.Delete(budget).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecalculateBudget runs an explicit spend recalculation for a budget the
// user can access and returns the refreshed aggregate.
func (s *budgetService) RecalculateBudget(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.IsTemplate {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Templates are never recalculated")
	}

	if err := s.recalculate(ctx, budget.ID); err != nil {
		return nil, err
	}

	refreshed, err := s.loadBudget(s.db, budget.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return refreshed, nil
}

// CreateFromTemplate instantiates a live budget from a template: same
// financial shape and alert definitions, fresh window anchored at
// startDate, zeroed actuals.
func (s *budgetService) CreateFromTemplate(ctx context.Context, userID, templateID string, startDate time.Time) (*models.Budget, error) {
	template, err := s.loadBudget(s.db, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !template.IsTemplate {
		return nil, apperrors.ErrNotATemplate
	}

	if startDate.IsZero() {
		startDate = time.Now()
	}

	input := CreateBudgetInput{
		SpaceID:     template.SpaceID,
		CreatedBy:   userID,
		Name:        template.Name,
		Currency:    template.Currency,
		TotalAmount: template.TotalAmount,
		Period:      template.Period,
		StartDate:   startDate,
		AutoRenew:   template.AutoRenew,
	}
	for _, cb := range template.CategoryBudgets {
		alloc := CategoryAllocationInput{
			CategoryID:      cb.CategoryID,
			AllocatedAmount: cb.AllocatedAmount,
		}
		for _, a := range template.CategoryAlerts(cb.ID) {
			alloc.Alerts = append(alloc.Alerts, AlertInput{Type: a.Type, Threshold: a.Threshold, Enabled: a.Enabled})
		}
		input.Allocations = append(input.Allocations, alloc)
	}
	for _, a := range template.GlobalAlerts() {
		input.GlobalAlerts = append(input.GlobalAlerts, AlertInput{Type: a.Type, Threshold: a.Threshold, Enabled: a.Enabled})
	}
	for _, viewer := range template.AllowedUsers {
		input.AllowedUsers = append(input.AllowedUsers, viewer.UserID)
	}

	return s.CreateBudget(ctx, input)
}

// GetBudgetSummary aggregates a space's non-template budgets into a single
// position: counts by status, money totals, and an overall health bucket.
func (s *budgetService) GetBudgetSummary(ctx context.Context, userID, spaceID string) (*BudgetSummary, error) {
	if err := s.checkSpaceAccess(ctx, spaceID, userID); err != nil {
		return nil, err
	}

	var budgets []models.Budget
	err := s.db.
		Where("space_id = ? AND is_template = ?", spaceID, false).
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &BudgetSummary{
		SpaceID:  spaceID,
		ByStatus: make(map[models.BudgetStatus]int),
	}
	for _, b := range budgets {
		summary.TotalBudgets++
		summary.ByStatus[b.Status]++
		summary.TotalAllocated += b.TotalAmount
		summary.TotalSpent += b.SpentAmount
		summary.TotalRemaining += models.RemainingOf(b.TotalAmount, b.SpentAmount)
	}

	var overall float64
	if summary.TotalAllocated > 0 {
		overall = float64(summary.TotalSpent) / float64(summary.TotalAllocated) * 100
	}
	summary.OverallHealth = healthFor(overall)
	return summary, nil
}
