package services

import (
	"context"
	"math"
	"time"

	"fiscus/internal/models"
)

// HealthStatus is a coarse classification of spending pace.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthWarning   HealthStatus = "warning"
	HealthDanger    HealthStatus = "danger"
)

// Health bucket and on-track thresholds. These are fixed design constants,
// not configuration.
const (
	healthDangerAbove  = 100.0
	healthWarningAbove = 90.0
	healthGoodAbove    = 75.0
	onTrackTolerance   = 0.10
)

// BudgetProgress is the read-time analytics view of a budget. It is derived
// on every request and never persisted.
type BudgetProgress struct {
	BudgetID          string             `json:"budget_id"`
	TotalAmount       int64              `json:"total_amount"`
	SpentAmount       int64              `json:"spent_amount"`
	RemainingAmount   int64              `json:"remaining_amount"`
	OverallProgress   float64            `json:"overall_progress"`
	TotalDays         int                `json:"total_days"`
	DaysElapsed       int                `json:"days_elapsed"`
	DaysRemaining     int                `json:"days_remaining"`
	ExpectedSpending  float64            `json:"expected_spending"`
	Variance          float64            `json:"variance"`
	OnTrack           bool               `json:"on_track"`
	ProjectedSpending float64            `json:"projected_spending"`
	HealthStatus      HealthStatus       `json:"health_status"`
	Categories        []CategoryProgress `json:"categories"`
}

// CategoryProgress is the per-allocation slice of the analytics view.
type CategoryProgress struct {
	CategoryID      string       `json:"category_id"`
	AllocatedAmount int64        `json:"allocated_amount"`
	SpentAmount     int64        `json:"spent_amount"`
	RemainingAmount int64        `json:"remaining_amount"`
	Progress        float64      `json:"progress"`
	HealthStatus    HealthStatus `json:"health_status"`
}

// AnalyzeProgress derives pace, variance, and health analytics for a budget
// at the given instant. Pure: no I/O, no mutation.
func AnalyzeProgress(b *models.Budget, now time.Time) *BudgetProgress {
	totalDays := daysCeil(b.EndDate.Sub(b.StartDate))
	if totalDays < 1 {
		totalDays = 1
	}
	daysElapsed := daysCeil(now.Sub(b.StartDate))
	if daysElapsed < 0 {
		daysElapsed = 0
	}
	if daysElapsed > totalDays {
		daysElapsed = totalDays
	}

	var overall float64
	if b.TotalAmount > 0 {
		overall = float64(b.SpentAmount) / float64(b.TotalAmount) * 100
	}

	expected := float64(daysElapsed) / float64(totalDays) * float64(b.TotalAmount)
	variance := float64(b.SpentAmount) - expected

	var projected float64
	if daysElapsed > 0 {
		projected = float64(b.SpentAmount) / float64(daysElapsed) * float64(totalDays)
	}

	progress := &BudgetProgress{
		BudgetID:          b.ID,
		TotalAmount:       b.TotalAmount,
		SpentAmount:       b.SpentAmount,
		RemainingAmount:   models.RemainingOf(b.TotalAmount, b.SpentAmount),
		OverallProgress:   overall,
		TotalDays:         totalDays,
		DaysElapsed:       daysElapsed,
		DaysRemaining:     totalDays - daysElapsed,
		ExpectedSpending:  expected,
		Variance:          variance,
		OnTrack:           math.Abs(variance) <= onTrackTolerance*float64(b.TotalAmount),
		ProjectedSpending: projected,
		HealthStatus:      healthFor(overall),
	}

	for _, cb := range b.CategoryBudgets {
		var p float64
		if cb.AllocatedAmount > 0 {
			p = float64(cb.SpentAmount) / float64(cb.AllocatedAmount) * 100
		}
		progress.Categories = append(progress.Categories, CategoryProgress{
			CategoryID:      cb.CategoryID,
			AllocatedAmount: cb.AllocatedAmount,
			SpentAmount:     cb.SpentAmount,
			RemainingAmount: models.RemainingOf(cb.AllocatedAmount, cb.SpentAmount),
			Progress:        p,
			HealthStatus:    healthFor(p),
		})
	}

	return progress
}

// healthFor buckets a spend percentage into a health status.
func healthFor(progress float64) HealthStatus {
	switch {
	case progress > healthDangerAbove:
		return HealthDanger
	case progress > healthWarningAbove:
		return HealthWarning
	case progress > healthGoodAbove:
		return HealthGood
	default:
		return HealthExcellent
	}
}

// daysCeil converts a duration to whole days, rounding up.
func daysCeil(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

// GetBudgetProgress returns the read-time analytics view for a budget the
// user can access.
func (s *budgetService) GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	return AnalyzeProgress(budget, time.Now()), nil
}
