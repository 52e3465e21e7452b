package services

import (
	"time"

	"fiscus/internal/models"
)

// PeriodWindow computes the inclusive date window for a budget period
// anchored at from. The end lands one day before the next period starts,
// at day end (23:59:59.999). Calendar-aware: monthly from Jan 31 rolls the
// way time.AddDate rolls.
func PeriodWindow(period models.BudgetPeriod, from time.Time) (start, end time.Time) {
	start = from
	switch period {
	case models.BudgetPeriodWeekly:
		end = from.AddDate(0, 0, 7)
	case models.BudgetPeriodMonthly:
		end = from.AddDate(0, 1, 0)
	case models.BudgetPeriodQuarterly:
		end = from.AddDate(0, 3, 0)
	case models.BudgetPeriodYearly:
		end = from.AddDate(1, 0, 0)
	default:
		end = from.AddDate(0, 1, 0)
	}
	end = dayEnd(end.AddDate(0, 0, -1))
	return start, end
}

// dayEnd returns t with the time portion set to 23:59:59.999.
func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
