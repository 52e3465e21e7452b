package services

import (
	"testing"
	"time"

	"fiscus/internal/models"
)

func progressFixture(total, spent int64) *models.Budget {
	return &models.Budget{
		TotalAmount: total,
		SpentAmount: spent,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC),
	}
}

func TestAnalyzeProgress(t *testing.T) {
	t.Run("half_window_half_spent_is_on_track", func(t *testing.T) {
		b := progressFixture(100000, 50000)
		// Just under half of a 31-day window.
		now := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

		p := AnalyzeProgress(b, now)

		if !p.OnTrack {
			t.Errorf("expected on track, variance %f", p.Variance)
		}
		if p.OverallProgress != 50 {
			t.Errorf("expected 50%% progress, got %f", p.OverallProgress)
		}
		if p.HealthStatus != HealthExcellent {
			t.Errorf("expected excellent health, got %s", p.HealthStatus)
		}
		if p.RemainingAmount != 50000 {
			t.Errorf("expected remaining 50000, got %d", p.RemainingAmount)
		}
	})

	t.Run("overspent_is_danger_and_off_track", func(t *testing.T) {
		b := progressFixture(100000, 120000)
		now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

		p := AnalyzeProgress(b, now)

		if p.HealthStatus != HealthDanger {
			t.Errorf("expected danger health, got %s", p.HealthStatus)
		}
		if p.OnTrack {
			t.Error("expected off track")
		}
		if p.RemainingAmount != 0 {
			t.Errorf("expected remaining floored at 0, got %d", p.RemainingAmount)
		}
	})

	t.Run("before_window_has_no_projection", func(t *testing.T) {
		b := progressFixture(100000, 0)
		now := time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC)

		p := AnalyzeProgress(b, now)

		if p.DaysElapsed != 0 {
			t.Errorf("expected 0 days elapsed, got %d", p.DaysElapsed)
		}
		if p.ProjectedSpending != 0 {
			t.Errorf("expected 0 projected spending, got %f", p.ProjectedSpending)
		}
	})

	t.Run("after_window_clamps_elapsed_days", func(t *testing.T) {
		b := progressFixture(100000, 80000)
		now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

		p := AnalyzeProgress(b, now)

		if p.DaysElapsed != p.TotalDays {
			t.Errorf("expected elapsed days clamped to %d, got %d", p.TotalDays, p.DaysElapsed)
		}
		if p.DaysRemaining != 0 {
			t.Errorf("expected 0 days remaining, got %d", p.DaysRemaining)
		}
	})

	t.Run("zero_total_has_zero_progress", func(t *testing.T) {
		b := progressFixture(0, 0)
		now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

		p := AnalyzeProgress(b, now)

		if p.OverallProgress != 0 {
			t.Errorf("expected 0%% progress, got %f", p.OverallProgress)
		}
	})

	t.Run("per_category_health", func(t *testing.T) {
		b := progressFixture(100000, 95000)
		b.CategoryBudgets = []models.CategoryBudget{
			{CategoryID: "cat-a", AllocatedAmount: 50000, SpentAmount: 10000},
			{CategoryID: "cat-b", AllocatedAmount: 50000, SpentAmount: 48000},
		}
		now := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

		p := AnalyzeProgress(b, now)

		if len(p.Categories) != 2 {
			t.Fatalf("expected 2 category slices, got %d", len(p.Categories))
		}
		if p.Categories[0].HealthStatus != HealthExcellent {
			t.Errorf("expected excellent for cat-a, got %s", p.Categories[0].HealthStatus)
		}
		if p.Categories[1].HealthStatus != HealthWarning {
			t.Errorf("expected warning for cat-b, got %s", p.Categories[1].HealthStatus)
		}
	})
}

func TestHealthFor(t *testing.T) {
	tests := []struct {
		progress float64
		want     HealthStatus
	}{
		{0, HealthExcellent},
		{75, HealthExcellent},
		{75.1, HealthGood},
		{90, HealthGood},
		{90.1, HealthWarning},
		{100, HealthWarning},
		{100.1, HealthDanger},
		{250, HealthDanger},
	}
	for _, tt := range tests {
		if got := healthFor(tt.progress); got != tt.want {
			t.Errorf("healthFor(%f) = %s, want %s", tt.progress, got, tt.want)
		}
	}
}
