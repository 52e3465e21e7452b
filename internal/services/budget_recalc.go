package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/logger"
	"fiscus/internal/metrics"
	"fiscus/internal/models"
)

// recalculate reloads a budget's financial actuals from expense state:
// it sums matching expenses, rewrites spent/remaining fields, evaluates
// alerts against the fresh totals, recomputes status, and persists the
// whole aggregate in a single transaction.
//
// It is a pure function of current expense state, so concurrent runs for
// the same budget converge on the same result; the last writer wins.
// Missing, deleted, and template budgets are a silent no-op.
func (s *budgetService) recalculate(ctx context.Context, budgetID string) error {
	budget, err := s.loadBudget(s.db, budgetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		metrics.Recalculations.WithLabelValues("error").Inc()
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budget.IsTemplate {
		return nil
	}

	total, perCategory, err := s.sumExpenses(ctx, budget.SpaceID, budget.StartDate, budget.EndDate, s.expensePageSize(), s.expenseWindowCap())
	if err != nil {
		metrics.Recalculations.WithLabelValues("dependency_error").Inc()
		return apperrors.Wrap(apperrors.ErrDependencyFailed, err)
	}

	now := time.Now()
	budget.SpentAmount = total
	for i := range budget.CategoryBudgets {
		cb := &budget.CategoryBudgets[i]
		cb.SpentAmount = perCategory[cb.CategoryID]
	}
	budget.RecomputeRemaining()

	fired := evaluateAlerts(budget, now)
	budget.Status = nextStatus(budget, now)
	budget.LastRecalculatedAt = &now

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(budget).Error; err != nil {
			return err
		}
		for i := range budget.CategoryBudgets {
			if err := tx.Save(&budget.CategoryBudgets[i]).Error; err != nil {
				return err
			}
		}
		for i := range budget.Alerts {
			if err := tx.Save(&budget.Alerts[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.Recalculations.WithLabelValues("error").Inc()
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	metrics.Recalculations.WithLabelValues("ok").Inc()
	if fired > 0 {
		logger.Get().Infow("budget alerts fired",
			"budget_id", budget.ID,
			"count", fired,
			"spent", budget.SpentAmount,
			"total", budget.TotalAmount,
		)
	}
	return nil
}

// sumExpenses pages through the expense collaborator until the window is
// exhausted or hardCap expenses have been summed, returning the overall
// total and the per-category totals.
func (s *budgetService) sumExpenses(ctx context.Context, spaceID string, start, end time.Time, pageSize, hardCap int) (int64, map[string]int64, error) {
	var total int64
	perCategory := make(map[string]int64)

	for offset := 0; offset < hardCap; offset += pageSize {
		limit := pageSize
		if offset+limit > hardCap {
			limit = hardCap - offset
		}

		// On the final page fetch one row past the cap so a window
		// holding exactly hardCap expenses is not reported as truncated.
		fetchLimit := limit
		if offset+limit == hardCap {
			fetchLimit = limit + 1
		}

		cctx, cancel := collaboratorCtx(ctx)
		page, err := s.expenses.FindBySpaceAndWindow(cctx, spaceID, start, end, fetchLimit, offset)
		cancel()
		if err != nil {
			return 0, nil, err
		}

		if len(page) > limit {
			logger.Get().Warnw("expense window cap reached, recalculation truncated",
				"space_id", spaceID, "cap", hardCap)
			page = page[:limit]
		}

		for _, e := range page {
			total += e.Amount
			perCategory[e.CategoryID] += e.Amount
		}

		if len(page) < limit {
			break
		}
	}

	return total, perCategory, nil
}

// evaluateAlerts runs every enabled, not-yet-triggered alert against the
// budget's freshly recomputed totals and sets the trigger flag on those
// whose predicate holds. Triggered alerts are never revisited; the flag
// only resets when renewal produces a new budget. Returns the number of
// alerts fired in this pass.
func evaluateAlerts(b *models.Budget, now time.Time) int {
	byID := make(map[string]*models.CategoryBudget, len(b.CategoryBudgets))
	for i := range b.CategoryBudgets {
		byID[b.CategoryBudgets[i].ID] = &b.CategoryBudgets[i]
	}

	fired := 0
	for i := range b.Alerts {
		alert := &b.Alerts[i]
		if !alert.Enabled || alert.Triggered {
			continue
		}

		allocated, spent := b.TotalAmount, b.SpentAmount
		if alert.CategoryBudgetID != nil {
			cb, ok := byID[*alert.CategoryBudgetID]
			if !ok {
				continue
			}
			allocated, spent = cb.AllocatedAmount, cb.SpentAmount
		}

		if alertFires(alert.Type, alert.Threshold, allocated, spent) {
			t := now
			alert.Triggered = true
			alert.TriggeredAt = &t
			fired++
			metrics.AlertsFired.Inc()
		}
	}
	return fired
}

// alertFires evaluates a single alert predicate. A percentage alert over a
// zero allocation never fires.
func alertFires(alertType models.AlertType, threshold float64, allocated, spent int64) bool {
	switch alertType {
	case models.AlertTypePercentage:
		if allocated <= 0 {
			return false
		}
		return float64(spent)/float64(allocated)*100 >= threshold
	case models.AlertTypeAmount:
		return float64(spent) >= threshold
	case models.AlertTypeRemaining:
		return float64(models.RemainingOf(allocated, spent)) <= threshold
	default:
		return false
	}
}

// nextStatus recomputes the budget's status from its totals and window.
// Exceeded takes precedence over completed; otherwise the status is left
// as the user set it (active or paused). Transitions never move backwards.
func nextStatus(b *models.Budget, now time.Time) models.BudgetStatus {
	if b.SpentAmount >= b.TotalAmount {
		return models.BudgetStatusExceeded
	}
	if b.EndDate.Before(now) {
		return models.BudgetStatusCompleted
	}
	return b.Status
}
