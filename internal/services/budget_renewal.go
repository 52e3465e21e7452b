package services

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/logger"
	"fiscus/internal/metrics"
	"fiscus/internal/models"
)

// ProcessAutoRenewals finds completed, auto-renewing budgets whose window
// has passed and creates a successor for each: same allocations and alert
// definitions, counters zeroed, alerts untriggered, next-period window.
// The predecessor is marked renewed in the same transaction that creates
// the successor, so re-running the batch never renews a budget twice.
//
// Budgets are processed in a bounded worker pool. A failure on one budget
// is logged and counted but never aborts the rest of the batch.
// Cancellation is honored between budgets, not mid-budget.
func (s *budgetService) ProcessAutoRenewals(ctx context.Context) (*RenewalSummary, error) {
	now := time.Now()

	var candidates []models.Budget
	err := s.db.
		Preload("CategoryBudgets", orderByPosition).
		Preload("Alerts", orderByPosition).
		Preload("AllowedUsers", orderByPosition).
		Where("auto_renew = ? AND renewed = ? AND is_template = ?", true, false, false).
		Where("status = ? AND end_date < ?", models.BudgetStatusCompleted, now).
		Find(&candidates).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &RenewalSummary{Processed: len(candidates)}
	if len(candidates) == 0 {
		return summary, nil
	}

	var renewed, failed atomic.Int64
	dispatched := 0

	g := &errgroup.Group{}
	g.SetLimit(s.renewalWorkers())

	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		dispatched++

		budget := &candidates[i]
		g.Go(func() error {
			if err := s.renewOne(ctx, budget, now); err != nil {
				failed.Add(1)
				metrics.Renewals.WithLabelValues("failed").Inc()
				logger.Get().Errorw("budget auto-renewal failed",
					"budget_id", budget.ID,
					"space_id", budget.SpaceID,
					"error", err,
				)
				return nil
			}
			renewed.Add(1)
			metrics.Renewals.WithLabelValues("ok").Inc()
			return nil
		})
	}

	_ = g.Wait()

	summary.Processed = dispatched
	summary.Renewed = int(renewed.Load())
	summary.Failed = int(failed.Load())

	logger.Get().Infow("auto-renewal batch finished",
		"processed", summary.Processed,
		"renewed", summary.Renewed,
		"failed", summary.Failed,
	)
	return summary, nil
}

// renewOne creates the successor budget and marks the predecessor renewed
// in one transaction. The overlap check runs on the same transaction, so
// the space's period uniqueness acts as a natural per-space mutex.
func (s *budgetService) renewOne(ctx context.Context, old *models.Budget, now time.Time) error {
	start, end := PeriodWindow(old.Period, old.EndDate.AddDate(0, 0, 1))
	start = startOfDay(start)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateOverlap(tx, old.SpaceID, old.Period, start, end, ""); err != nil {
			return err
		}

		successor := &models.Budget{
			SpaceID:       old.SpaceID,
			CreatedBy:     old.CreatedBy,
			Name:          old.Name,
			Currency:      old.Currency,
			TotalAmount:   old.TotalAmount,
			Period:        old.Period,
			StartDate:     start,
			EndDate:       end,
			Status:        models.BudgetStatusActive,
			AutoRenew:     old.AutoRenew,
			RenewedFromID: &old.ID,
		}
		successor.RecomputeRemaining()

		for i, cb := range old.CategoryBudgets {
			fresh := models.CategoryBudget{
				CategoryID:      cb.CategoryID,
				AllocatedAmount: cb.AllocatedAmount,
				Position:        i,
			}
			fresh.RemainingAmount = models.RemainingOf(fresh.AllocatedAmount, 0)
			successor.CategoryBudgets = append(successor.CategoryBudgets, fresh)
		}
		for i, viewer := range old.AllowedUsers {
			successor.AllowedUsers = append(successor.AllowedUsers, models.BudgetViewer{
				UserID:   viewer.UserID,
				Position: i,
			})
		}

		if err := tx.Create(successor).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.Wrap(apperrors.ErrBudgetPeriodOverlap, err)
			}
			return err
		}

		// Alert definitions carry over with trigger state reset. Category
		// alerts re-point at the successor's allocation rows, which exist
		// only after the create above.
		oldCBToNew := make(map[string]string, len(old.CategoryBudgets))
		for i, cb := range old.CategoryBudgets {
			oldCBToNew[cb.ID] = successor.CategoryBudgets[i].ID
		}

		var alerts []models.BudgetAlert
		for i, a := range old.Alerts {
			fresh := models.BudgetAlert{
				BudgetID:  successor.ID,
				Type:      a.Type,
				Threshold: a.Threshold,
				Enabled:   a.Enabled,
				Position:  i,
			}
			if a.CategoryBudgetID != nil {
				newID, ok := oldCBToNew[*a.CategoryBudgetID]
				if !ok {
					continue
				}
				fresh.CategoryBudgetID = &newID
			}
			alerts = append(alerts, fresh)
		}
		if len(alerts) > 0 {
			if err := tx.Create(&alerts).Error; err != nil {
				return err
			}
		}

		return tx.Model(old).Update("renewed", true).Error
	})
}
