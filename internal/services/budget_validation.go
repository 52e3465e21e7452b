package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/models"
)

// validateDateRange enforces a strictly ordered budget window.
func validateDateRange(start, end time.Time) error {
	if !start.Before(end) {
		return apperrors.ErrInvalidDateRange
	}
	return nil
}

// validateOverlap fails when another non-deleted, non-template budget of the
// same space and period intersects [start, end]. It must run on the same
// transaction as the insert so concurrent creates cannot both pass; the
// partial unique index on (space_id, period, start_date) is the backstop.
func (s *budgetService) validateOverlap(tx *gorm.DB, spaceID string, period models.BudgetPeriod, start, end time.Time, excludeID string) error {
	q := tx.Model(&models.Budget{}).
		Where("space_id = ? AND period = ? AND is_template = ?", spaceID, period, false).
		Where("start_date <= ? AND end_date >= ?", end, start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var existing models.Budget
	err := q.First(&existing).Error
	if err == nil {
		return apperrors.WithMessage(apperrors.ErrBudgetPeriodOverlap,
			fmt.Sprintf("An active budget already covers %s to %s",
				existing.StartDate.Format("2006-01-02"), existing.EndDate.Format("2006-01-02")))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// isUniqueViolation reports whether err is the unique-index backstop firing
// under a concurrent create that slipped past the in-transaction check.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// validateAllocations enforces that the allocation sum never exceeds the
// budget total and that every referenced category exists in the space.
// Category existence is delegated to the category collaborator.
func (s *budgetService) validateAllocations(ctx context.Context, spaceID string, totalAmount int64, allocations []CategoryAllocationInput) error {
	var sum int64
	for _, a := range allocations {
		if a.AllocatedAmount <= 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Category allocations must be positive")
		}
		sum += a.AllocatedAmount
	}
	if sum > totalAmount {
		return apperrors.WithMessage(apperrors.ErrAllocationExceedsTotal,
			fmt.Sprintf("Allocations sum to %d but the budget total is %d", sum, totalAmount))
	}

	for _, a := range allocations {
		cctx, cancel := collaboratorCtx(ctx)
		ok, err := s.categories.Exists(cctx, spaceID, a.CategoryID)
		cancel()
		if err != nil {
			return apperrors.Wrap(apperrors.ErrDependencyFailed, err)
		}
		if !ok {
			return apperrors.WithMessage(apperrors.ErrCategoryNotFound, "Category "+a.CategoryID+" not found")
		}
	}
	return nil
}

// normalizeAlerts validates and normalizes alert definitions. Percentage
// thresholds are clamped to [0, 100]; amount and remaining thresholds must
// not be negative.
func normalizeAlerts(alerts []AlertInput) ([]AlertInput, error) {
	out := make([]AlertInput, 0, len(alerts))
	for _, a := range alerts {
		switch a.Type {
		case models.AlertTypePercentage:
			if a.Threshold < 0 {
				a.Threshold = 0
			}
			if a.Threshold > 100 {
				a.Threshold = 100
			}
		case models.AlertTypeAmount, models.AlertTypeRemaining:
			if a.Threshold < 0 {
				return nil, apperrors.ErrInvalidAlertThreshold
			}
		default:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown alert type "+string(a.Type))
		}
		out = append(out, a)
	}
	return out, nil
}

// carryOverAlertState copies trigger state from old alert rows onto
// replacement definitions with the same scope, type, and threshold. A
// triggered alert stays triggered across definition edits; only renewal
// resets it.
func carryOverAlertState(old []*models.BudgetAlert, replacement []models.BudgetAlert) {
	for i := range replacement {
		n := &replacement[i]
		for _, o := range old {
			if o.Type != n.Type || o.Threshold != n.Threshold {
				continue
			}
			if (o.CategoryBudgetID == nil) != (n.CategoryBudgetID == nil) {
				continue
			}
			if o.CategoryBudgetID != nil && n.CategoryBudgetID != nil && *o.CategoryBudgetID != *n.CategoryBudgetID {
				continue
			}
			if o.Triggered {
				n.Triggered = true
				n.TriggeredAt = o.TriggeredAt
			}
			break
		}
	}
}
