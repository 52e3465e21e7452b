package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fiscus/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestSpace creates a space owned by the given user, with the owner
// registered as a member.
func CreateTestSpace(t *testing.T, db *gorm.DB, ownerID string) *models.Space {
	t.Helper()

	space := &models.Space{
		Name:     fmt.Sprintf("Test Space %d", nextID()),
		Currency: "USD",
		OwnerID:  ownerID,
	}
	if err := db.Create(space).Error; err != nil {
		t.Fatalf("failed to create test space: %v", err)
	}

	member := &models.SpaceMember{
		SpaceID: space.ID,
		UserID:  ownerID,
		Role:    models.SpaceRoleOwner,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test space owner membership: %v", err)
	}
	return space
}

// AddTestMember adds a user to a space as a regular member.
func AddTestMember(t *testing.T, db *gorm.DB, spaceID, userID string) *models.SpaceMember {
	t.Helper()

	member := &models.SpaceMember{
		SpaceID: spaceID,
		UserID:  userID,
		Role:    models.SpaceRoleMember,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to add test space member: %v", err)
	}
	return member
}

// CreateTestCategory creates a category in the given space.
func CreateTestCategory(t *testing.T, db *gorm.DB, spaceID string) *models.Category {
	t.Helper()

	category := &models.Category{
		SpaceID: spaceID,
		Name:    fmt.Sprintf("Test Category %d", nextID()),
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestExpense records an expense in the given space and category.
func CreateTestExpense(t *testing.T, db *gorm.DB, spaceID, categoryID, createdBy string, amount int64, date time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		SpaceID:     spaceID,
		CategoryID:  categoryID,
		CreatedBy:   createdBy,
		Amount:      amount,
		Description: fmt.Sprintf("Test Expense %d", nextID()),
		Date:        date,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestBudget creates an active monthly budget with the given total,
// starting at the given date.
func CreateTestBudget(t *testing.T, db *gorm.DB, spaceID, createdBy string, total int64, start time.Time) *models.Budget {
	t.Helper()

	end := start.AddDate(0, 1, -1)
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), end.Location())

	budget := &models.Budget{
		SpaceID:     spaceID,
		CreatedBy:   createdBy,
		Name:        fmt.Sprintf("Test Budget %d", nextID()),
		Currency:    "USD",
		TotalAmount: total,
		Period:      models.BudgetPeriodMonthly,
		StartDate:   start,
		EndDate:     end,
		Status:      models.BudgetStatusActive,
	}
	budget.RecomputeRemaining()
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestAllocation adds a category allocation to a budget.
func CreateTestAllocation(t *testing.T, db *gorm.DB, budgetID, categoryID string, allocated int64, position int) *models.CategoryBudget {
	t.Helper()

	cb := &models.CategoryBudget{
		BudgetID:        budgetID,
		CategoryID:      categoryID,
		AllocatedAmount: allocated,
		RemainingAmount: allocated,
		Position:        position,
	}
	if err := db.Create(cb).Error; err != nil {
		t.Fatalf("failed to create test allocation: %v", err)
	}
	return cb
}

// CreateTestAlert adds an enabled alert to a budget. A nil categoryBudgetID
// makes it a global alert.
func CreateTestAlert(t *testing.T, db *gorm.DB, budgetID string, categoryBudgetID *string, alertType models.AlertType, threshold float64) *models.BudgetAlert {
	t.Helper()

	alert := &models.BudgetAlert{
		BudgetID:         budgetID,
		CategoryBudgetID: categoryBudgetID,
		Type:             alertType,
		Threshold:        threshold,
		Enabled:          true,
	}
	if err := db.Create(alert).Error; err != nil {
		t.Fatalf("failed to create test alert: %v", err)
	}
	return alert
}
