package models

import "time"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly    BudgetPeriod = "weekly"
	BudgetPeriodMonthly   BudgetPeriod = "monthly"
	BudgetPeriodQuarterly BudgetPeriod = "quarterly"
	BudgetPeriodYearly    BudgetPeriod = "yearly"
)

// BudgetStatus represents the lifecycle state of a budget
type BudgetStatus string

const (
	BudgetStatusActive    BudgetStatus = "active"
	BudgetStatusPaused    BudgetStatus = "paused"
	BudgetStatusExceeded  BudgetStatus = "exceeded"
	BudgetStatusCompleted BudgetStatus = "completed"
)

// AlertType represents the kind of threshold an alert watches
type AlertType string

const (
	AlertTypePercentage AlertType = "percentage"
	AlertTypeAmount     AlertType = "amount"
	AlertTypeRemaining  AlertType = "remaining"
)

// Budget is the aggregate root of the budget engine: a monetary total over
// a fixed date window, optionally broken into category allocations, with
// threshold alerts that fire at most once per budget lifetime.
// Amounts are stored in minor currency units (cents).
type Budget struct {
	Base
	SpaceID   string `gorm:"type:uuid;not null;index" json:"space_id"`
	CreatedBy string `gorm:"type:uuid;not null" json:"created_by"`
	Name      string `gorm:"not null" json:"name"`
	Currency  string `gorm:"size:3;not null;default:'USD'" json:"currency"`

	TotalAmount     int64 `gorm:"type:bigint;not null" json:"total_amount"`
	SpentAmount     int64 `gorm:"type:bigint;not null;default:0" json:"spent_amount"`
	RemainingAmount int64 `gorm:"type:bigint;not null;default:0" json:"remaining_amount"`

	Period    BudgetPeriod `gorm:"not null" json:"period"`
	StartDate time.Time    `gorm:"not null" json:"start_date"`
	EndDate   time.Time    `gorm:"not null" json:"end_date"`
	Status    BudgetStatus `gorm:"not null;default:'active'" json:"status"`

	AutoRenew     bool    `gorm:"default:false" json:"auto_renew"`
	Renewed       bool    `gorm:"default:false" json:"renewed"`
	RenewedFromID *string `gorm:"type:uuid" json:"renewed_from_id,omitempty"`
	IsTemplate    bool    `gorm:"default:false" json:"is_template"`

	DeletedBy          *string    `gorm:"type:uuid" json:"-"`
	LastRecalculatedAt *time.Time `json:"last_recalculated_at,omitempty"`

	// Relationships. Category budgets and alerts are ordered lists;
	// Position keeps their client-facing order stable across updates.
	CategoryBudgets []CategoryBudget `gorm:"foreignKey:BudgetID" json:"category_budgets,omitempty"`
	Alerts          []BudgetAlert    `gorm:"foreignKey:BudgetID" json:"alerts,omitempty"`
	AllowedUsers    []BudgetViewer   `gorm:"foreignKey:BudgetID" json:"allowed_users,omitempty"`
}

// CategoryBudget is a portion of a budget's total earmarked for one category
type CategoryBudget struct {
	Base
	BudgetID        string `gorm:"type:uuid;not null;index" json:"budget_id"`
	CategoryID      string `gorm:"type:uuid;not null" json:"category_id"`
	AllocatedAmount int64  `gorm:"type:bigint;not null" json:"allocated_amount"`
	SpentAmount     int64  `gorm:"type:bigint;not null;default:0" json:"spent_amount"`
	RemainingAmount int64  `gorm:"type:bigint;not null;default:0" json:"remaining_amount"`
	Position        int    `gorm:"not null;default:0" json:"position"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// BudgetAlert is a threshold rule. A nil CategoryBudgetID means the alert
// watches the budget's overall totals; otherwise it watches one allocation.
// Once Triggered is set it stays set until the budget is renewed.
type BudgetAlert struct {
	Base
	BudgetID         string     `gorm:"type:uuid;not null;index" json:"budget_id"`
	CategoryBudgetID *string    `gorm:"type:uuid;index" json:"category_budget_id,omitempty"`
	Type             AlertType  `gorm:"not null" json:"type"`
	Threshold        float64    `gorm:"not null" json:"threshold"`
	Enabled          bool       `gorm:"default:true" json:"enabled"`
	Triggered        bool       `gorm:"default:false" json:"triggered"`
	TriggeredAt      *time.Time `json:"triggered_at,omitempty"`
	Position         int        `gorm:"not null;default:0" json:"position"`
}

// BudgetViewer grants a user outside the space explicit read/delete access
type BudgetViewer struct {
	Base
	BudgetID string `gorm:"type:uuid;not null;index:idx_budget_viewers_budget_user,unique" json:"budget_id"`
	UserID   string `gorm:"type:uuid;not null;index:idx_budget_viewers_budget_user,unique" json:"user_id"`
	Position int    `gorm:"not null;default:0" json:"position"`
}

// RemainingOf returns the derived remaining amount for a total/spent pair,
// floored at zero.
func RemainingOf(total, spent int64) int64 {
	if spent >= total {
		return 0
	}
	return total - spent
}

// RecomputeRemaining rewrites the budget's remaining amount and every
// category allocation's remaining amount from their totals. Remaining
// amounts are never settable independently of their inputs.
func (b *Budget) RecomputeRemaining() {
	b.RemainingAmount = RemainingOf(b.TotalAmount, b.SpentAmount)
	for i := range b.CategoryBudgets {
		cb := &b.CategoryBudgets[i]
		cb.RemainingAmount = RemainingOf(cb.AllocatedAmount, cb.SpentAmount)
	}
}

// GlobalAlerts returns pointers to the alerts watching the overall totals.
func (b *Budget) GlobalAlerts() []*BudgetAlert {
	var out []*BudgetAlert
	for i := range b.Alerts {
		if b.Alerts[i].CategoryBudgetID == nil {
			out = append(out, &b.Alerts[i])
		}
	}
	return out
}

// CategoryAlerts returns pointers to the alerts watching one allocation.
func (b *Budget) CategoryAlerts(categoryBudgetID string) []*BudgetAlert {
	var out []*BudgetAlert
	for i := range b.Alerts {
		if b.Alerts[i].CategoryBudgetID != nil && *b.Alerts[i].CategoryBudgetID == categoryBudgetID {
			out = append(out, &b.Alerts[i])
		}
	}
	return out
}
