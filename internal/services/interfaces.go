package services

import (
	"context"
	"time"

	"fiscus/internal/models"
	"fiscus/internal/pagination"
)

// AccessControl answers whether a user may act within a space. The budget
// engine consumes this as a capability check; membership mechanics live in
// the space service.
type AccessControl interface {
	HasSpaceAccess(ctx context.Context, spaceID, userID string) (bool, error)
}

// CategoryStore is the category collaborator the budget engine depends on.
type CategoryStore interface {
	Exists(ctx context.Context, spaceID, categoryID string) (bool, error)
	Get(ctx context.Context, categoryID string) (*models.Category, error)
}

// ExpenseReader is the expense collaborator the budget engine depends on.
// Results are ordered by date then id so that offset paging is stable.
type ExpenseReader interface {
	FindBySpaceAndWindow(ctx context.Context, spaceID string, start, end time.Time, limit, offset int) ([]models.Expense, error)
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID string, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// SpaceServicer defines the contract for space-related business logic.
type SpaceServicer interface {
	AccessControl
	CreateSpace(ctx context.Context, ownerID, name, currency string) (*models.Space, error)
	GetSpaceByID(ctx context.Context, userID, spaceID string) (*models.Space, error)
	GetUserSpaces(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Space], error)
	AddMember(ctx context.Context, actorID, spaceID, userID string, role models.SpaceRole) (*models.SpaceMember, error)
	RemoveMember(ctx context.Context, actorID, spaceID, userID string) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CategoryStore
	CreateCategory(ctx context.Context, userID, spaceID, name, description, icon, color string) (*models.Category, error)
	GetSpaceCategories(ctx context.Context, userID, spaceID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID, name, description, icon, color string) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// ExpenseFilter holds optional filter parameters for listing expenses.
type ExpenseFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	CategoryID *string
	MinAmount  *int64
	MaxAmount  *int64
}

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	ExpenseReader
	CreateExpense(ctx context.Context, userID, spaceID, categoryID string, amount int64, description string, date time.Time) (*models.Expense, error)
	GetSpaceExpenses(ctx context.Context, userID, spaceID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error)
	GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) error
}

// AlertInput describes one alert definition supplied by a client.
type AlertInput struct {
	Type      models.AlertType
	Threshold float64
	Enabled   bool
}

// CategoryAllocationInput describes one category allocation supplied by a client.
type CategoryAllocationInput struct {
	CategoryID      string
	AllocatedAmount int64
	Alerts          []AlertInput
}

// CreateBudgetInput carries everything needed to create a budget or template.
// EndDate may be zero, in which case it is derived from Period and StartDate.
type CreateBudgetInput struct {
	SpaceID      string
	CreatedBy    string
	Name         string
	Currency     string
	TotalAmount  int64
	Period       models.BudgetPeriod
	StartDate    time.Time
	EndDate      time.Time
	AutoRenew    bool
	IsTemplate   bool
	Allocations  []CategoryAllocationInput
	GlobalAlerts []AlertInput
	AllowedUsers []string
}

// UpdateBudgetInput carries the mutable fields of a budget. Nil pointers
// leave the corresponding field untouched. Financial actuals (spent and
// remaining amounts) are never client-settable; they are recomputed.
type UpdateBudgetInput struct {
	Name         *string
	TotalAmount  *int64
	Status       *models.BudgetStatus // active <-> paused only
	AutoRenew    *bool
	Allocations  *[]CategoryAllocationInput
	GlobalAlerts *[]AlertInput
	AllowedUsers *[]string
}

// BudgetFilter holds optional filter parameters for listing budgets.
type BudgetFilter struct {
	Status     *models.BudgetStatus
	Period     *models.BudgetPeriod
	IsTemplate *bool
}

// BudgetSummary aggregates a space's budget position.
type BudgetSummary struct {
	SpaceID        string                      `json:"space_id"`
	TotalBudgets   int                         `json:"total_budgets"`
	ByStatus       map[models.BudgetStatus]int `json:"by_status"`
	TotalAllocated int64                       `json:"total_allocated"`
	TotalSpent     int64                       `json:"total_spent"`
	TotalRemaining int64                       `json:"total_remaining"`
	OverallHealth  HealthStatus                `json:"overall_health"`
}

// RenewalSummary reports the outcome of one auto-renewal batch run.
type RenewalSummary struct {
	Processed int `json:"processed"`
	Renewed   int `json:"renewed"`
	Failed    int `json:"failed"`
}

// BudgetServicer defines the contract for the budget engine.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, input CreateBudgetInput) (*models.Budget, error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	GetSpaceBudgets(ctx context.Context, userID, spaceID string, page pagination.PageRequest, filter BudgetFilter) (*pagination.PageResponse[models.Budget], error)
	UpdateBudget(ctx context.Context, userID, budgetID string, input UpdateBudgetInput) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	RecalculateBudget(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error)
	CreateFromTemplate(ctx context.Context, userID, templateID string, startDate time.Time) (*models.Budget, error)
	ProcessAutoRenewals(ctx context.Context) (*RenewalSummary, error)
	GetBudgetSummary(ctx context.Context, userID, spaceID string) (*BudgetSummary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
