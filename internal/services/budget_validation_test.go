package services

import (
	"testing"
	"time"

	"fiscus/internal/models"
	"fiscus/internal/testutil"
)

func TestValidateDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := validateDateRange(start, start.AddDate(0, 1, 0)); err != nil {
		t.Errorf("expected valid range, got %v", err)
	}
	testutil.AssertAppError(t, validateDateRange(start, start), "INVALID_DATE_RANGE")
	testutil.AssertAppError(t, validateDateRange(start, start.AddDate(0, 0, -1)), "INVALID_DATE_RANGE")
}

func TestNormalizeAlerts(t *testing.T) {
	t.Run("clamps_percentage_thresholds", func(t *testing.T) {
		out, err := normalizeAlerts([]AlertInput{
			{Type: models.AlertTypePercentage, Threshold: 150, Enabled: true},
			{Type: models.AlertTypePercentage, Threshold: -20, Enabled: true},
		})
		testutil.AssertNoError(t, err)
		if out[0].Threshold != 100 {
			t.Errorf("expected 150 clamped to 100, got %f", out[0].Threshold)
		}
		if out[1].Threshold != 0 {
			t.Errorf("expected -20 clamped to 0, got %f", out[1].Threshold)
		}
	})

	t.Run("rejects_negative_amount_threshold", func(t *testing.T) {
		_, err := normalizeAlerts([]AlertInput{{Type: models.AlertTypeAmount, Threshold: -1, Enabled: true}})
		testutil.AssertAppError(t, err, "INVALID_ALERT_THRESHOLD")
	})

	t.Run("rejects_negative_remaining_threshold", func(t *testing.T) {
		_, err := normalizeAlerts([]AlertInput{{Type: models.AlertTypeRemaining, Threshold: -500, Enabled: true}})
		testutil.AssertAppError(t, err, "INVALID_ALERT_THRESHOLD")
	})

	t.Run("rejects_unknown_type", func(t *testing.T) {
		_, err := normalizeAlerts([]AlertInput{{Type: "carrier_pigeon", Threshold: 10, Enabled: true}})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestCarryOverAlertState(t *testing.T) {
	firedAt := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("same_definition_keeps_trigger", func(t *testing.T) {
		old := []*models.BudgetAlert{
			{Type: models.AlertTypePercentage, Threshold: 75, Triggered: true, TriggeredAt: &firedAt},
		}
		replacement := []models.BudgetAlert{
			{Type: models.AlertTypePercentage, Threshold: 75},
		}

		carryOverAlertState(old, replacement)

		if !replacement[0].Triggered {
			t.Error("expected trigger state to carry over")
		}
		if replacement[0].TriggeredAt == nil || !replacement[0].TriggeredAt.Equal(firedAt) {
			t.Error("expected triggered-at timestamp to carry over")
		}
	})

	t.Run("changed_threshold_resets", func(t *testing.T) {
		old := []*models.BudgetAlert{
			{Type: models.AlertTypePercentage, Threshold: 75, Triggered: true, TriggeredAt: &firedAt},
		}
		replacement := []models.BudgetAlert{
			{Type: models.AlertTypePercentage, Threshold: 90},
		}

		carryOverAlertState(old, replacement)

		if replacement[0].Triggered {
			t.Error("expected a changed definition to start untriggered")
		}
	})

	t.Run("scope_must_match", func(t *testing.T) {
		cbID := "cb-1"
		old := []*models.BudgetAlert{
			{Type: models.AlertTypeAmount, Threshold: 5000, CategoryBudgetID: &cbID, Triggered: true, TriggeredAt: &firedAt},
		}
		replacement := []models.BudgetAlert{
			{Type: models.AlertTypeAmount, Threshold: 5000}, // global scope
		}

		carryOverAlertState(old, replacement)

		if replacement[0].Triggered {
			t.Error("expected category trigger state not to leak onto a global alert")
		}
	})
}
