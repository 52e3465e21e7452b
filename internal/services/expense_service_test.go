package services

import (
	"context"
	"testing"
	"time"

	"fiscus/internal/pagination"
	"fiscus/internal/testutil"

	"gorm.io/gorm"
)

func newExpenseFixture(db *gorm.DB) ExpenseServicer {
	spaceSvc := NewSpaceService(db)
	return NewExpenseService(db, spaceSvc, NewCategoryService(db, spaceSvc))
}

func TestCreateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newExpenseFixture(db)
		user := testutil.CreateTestUser(t, db)
		space := testutil.CreateTestSpace(t, db, user.ID)
		cat := testutil.CreateTestCategory(t, db, space.ID)

		expense, err := svc.CreateExpense(ctx, user.ID, space.ID, cat.ID, 2599, "Lunch", time.Now())
		testutil.AssertNoError(t, err)

		if expense.ID == "" {
			t.Fatal("expected non-empty expense ID")
		}
		if expense.Amount != 2599 {
			t.Errorf("expected amount 2599, got %d", expense.Amount)
		}
		if expense.CreatedBy != user.ID {
			t.Errorf("expected creator %s, got %s", user.ID, expense.CreatedBy)
		}
	})

	t.Run("zero_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newExpenseFixture(db)
		user := testutil.CreateTestUser(t, db)
		space := testutil.CreateTestSpace(t, db, user.ID)
		cat := testutil.CreateTestCategory(t, db, space.ID)

		_, err := svc.CreateExpense(ctx, user.ID, space.ID, cat.ID, 0, "", time.Now())
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("category_from_another_space", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newExpenseFixture(db)
		user := testutil.CreateTestUser(t, db)
		space := testutil.CreateTestSpace(t, db, user.ID)
		otherSpace := testutil.CreateTestSpace(t, db, user.ID)
		foreignCat := testutil.CreateTestCategory(t, db, otherSpace.ID)

		_, err := svc.CreateExpense(ctx, user.ID, space.ID, foreignCat.ID, 1000, "", time.Now())
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("non_member_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newExpenseFixture(db)
		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		space := testutil.CreateTestSpace(t, db, owner.ID)
		cat := testutil.CreateTestCategory(t, db, space.ID)

		_, err := svc.CreateExpense(ctx, outsider.ID, space.ID, cat.ID, 1000, "", time.Now())
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestGetSpaceExpenses(t *testing.T) {
	ctx := context.Background()

	t.Run("filters_by_date_category_and_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newExpenseFixture(db)
		user := testutil.CreateTestUser(t, db)
		space := testutil.CreateTestSpace(t, db, user.ID)
		catA := testutil.CreateTestCategory(t, db, space.ID)
		catB := testutil.CreateTestCategory(t, db, space.ID)

		jan := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
		feb := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
		match := testutil.CreateTestExpense(t, db, space.ID, catA.ID, user.ID, 5000, jan)
		testutil.CreateTestExpense(t, db, space.ID, catA.ID, user.ID, 500, jan)  // below min
		testutil.CreateTestExpense(t, db, space.ID, catB.ID, user.ID, 5000, jan) // wrong category
		testutil.CreateTestExpense(t, db, space.ID, catA.ID, user.ID, 5000, feb) // outside range

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
		minAmount := int64(1000)
		result, err := svc.GetSpaceExpenses(ctx, user.ID, space.ID, pagination.PageRequest{Page: 1, PageSize: 20}, ExpenseFilter{
			FromDate:   &from,
			ToDate:     &to,
			CategoryID: &catA.ID,
			MinAmount:  &minAmount,
		})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 {
			t.Fatalf("expected 1 expense, got %d", result.TotalItems)
		}
		if result.Data[0].ID != match.ID {
			t.Errorf("expected expense %s, got %s", match.ID, result.Data[0].ID)
		}
	})

	t.Run("non_member_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newExpenseFixture(db)
		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		space := testutil.CreateTestSpace(t, db, owner.ID)

		_, err := svc.GetSpaceExpenses(ctx, outsider.ID, space.ID, pagination.PageRequest{Page: 1, PageSize: 20}, ExpenseFilter{})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestFindBySpaceAndWindow(t *testing.T) {
	ctx := context.Background()

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newExpenseFixture(db)
	user := testutil.CreateTestUser(t, db)
	space := testutil.CreateTestSpace(t, db, user.ID)
	cat := testutil.CreateTestCategory(t, db, space.ID)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	testutil.CreateTestExpense(t, db, space.ID, cat.ID, user.ID, 1000, start)
	testutil.CreateTestExpense(t, db, space.ID, cat.ID, user.ID, 2000, end)
	testutil.CreateTestExpense(t, db, space.ID, cat.ID, user.ID, 4000, end.Add(time.Second)) // past window

	expenses, err := svc.FindBySpaceAndWindow(ctx, space.ID, start, end, 100, 0)
	testutil.AssertNoError(t, err)

	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses inside window, got %d", len(expenses))
	}
	// Ordered by date: boundary expenses included on both edges.
	if expenses[0].Amount != 1000 || expenses[1].Amount != 2000 {
		t.Errorf("expected window-ordered amounts [1000 2000], got [%d %d]", expenses[0].Amount, expenses[1].Amount)
	}
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("soft_deletes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newExpenseFixture(db)
		user := testutil.CreateTestUser(t, db)
		space := testutil.CreateTestSpace(t, db, user.ID)
		cat := testutil.CreateTestCategory(t, db, space.ID)
		expense := testutil.CreateTestExpense(t, db, space.ID, cat.ID, user.ID, 1000, time.Now())

		testutil.AssertNoError(t, svc.DeleteExpense(ctx, user.ID, expense.ID))

		_, err := svc.GetExpenseByID(ctx, user.ID, expense.ID)
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	})

	t.Run("outsider_gets_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newExpenseFixture(db)
		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		space := testutil.CreateTestSpace(t, db, owner.ID)
		cat := testutil.CreateTestCategory(t, db, space.ID)
		expense := testutil.CreateTestExpense(t, db, space.ID, cat.ID, owner.ID, 1000, time.Now())

		err := svc.DeleteExpense(ctx, outsider.ID, expense.ID)
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	})
}
