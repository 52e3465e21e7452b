package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestBudgetFlow_CreateSpendRecalculateProgress(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "budget@test.com", "password123")

	spaceID := app.createSpace(t, token, "Household")
	categoryID := app.createCategory(t, token, spaceID, "Groceries")

	// Step 1: Create a monthly budget of $1000 with a $700 grocery allocation
	// and an 80% alert on it.
	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	body := fmt.Sprintf(`{
		"space_id": %q,
		"name": "Monthly Budget",
		"currency": "USD",
		"total_amount": 100000,
		"period": "monthly",
		"start_date": %q,
		"allocations": [
			{"category_id": %q, "allocated_amount": 70000,
			 "alerts": [{"type": "percentage", "threshold": 80}]}
		],
		"global_alerts": [{"type": "percentage", "threshold": 90}]
	}`, spaceID, startDate.Format(time.RFC3339), categoryID)
	rec := app.request("POST", "/api/v1/budgets", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating budget, got %d: %s", rec.Code, rec.Body.String())
	}
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	budgetID := budget["id"].(string)
	if budget["status"] != "active" {
		t.Errorf("expected active budget, got %v", budget["status"])
	}

	// Step 2: Progress before any spending
	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/progress", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	progress := parseJSON(t, rec)["progress"].(map[string]interface{})
	if progress["spent_amount"].(float64) != 0 {
		t.Errorf("expected 0 spent before expenses, got %.0f", progress["spent_amount"].(float64))
	}
	if progress["remaining_amount"].(float64) != 100000 {
		t.Errorf("expected 100000 remaining, got %.0f", progress["remaining_amount"].(float64))
	}

	// Step 3: Spend $500 in two expenses during the window
	for _, amount := range []int{30000, 20000} {
		rec = app.request("POST", "/api/v1/expenses",
			fmt.Sprintf(`{"space_id":%q,"category_id":%q,"amount":%d,"description":"groceries","date":%q}`,
				spaceID, categoryID, amount, startDate.Add(24*time.Hour).Format(time.RFC3339)), token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 creating expense, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	// Step 4: Recalculate and verify spend rolled up
	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/recalculate", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 recalculating, got %d: %s", rec.Code, rec.Body.String())
	}
	recalced := parseJSON(t, rec)["budget"].(map[string]interface{})
	if recalced["spent_amount"].(float64) != 50000 {
		t.Errorf("expected 50000 spent, got %.0f", recalced["spent_amount"].(float64))
	}
	if recalced["remaining_amount"].(float64) != 50000 {
		t.Errorf("expected 50000 remaining, got %.0f", recalced["remaining_amount"].(float64))
	}

	// 50000 of 70000 is about 71%, under the category alert threshold, and
	// 50% overall is under the global one.
	alerts := recalced["alerts"].([]interface{})
	for _, a := range alerts {
		alert := a.(map[string]interface{})
		if alert["triggered"].(bool) {
			t.Errorf("expected no alert triggered at 50%% spend, got %v", alert)
		}
	}

	// Step 5: Push spend past both thresholds and recalculate again
	rec = app.request("POST", "/api/v1/expenses",
		fmt.Sprintf(`{"space_id":%q,"category_id":%q,"amount":45000,"description":"big shop","date":%q}`,
			spaceID, categoryID, startDate.Add(48*time.Hour).Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/recalculate", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	recalced = parseJSON(t, rec)["budget"].(map[string]interface{})
	if recalced["spent_amount"].(float64) != 95000 {
		t.Errorf("expected 95000 spent, got %.0f", recalced["spent_amount"].(float64))
	}
	alerts = recalced["alerts"].([]interface{})
	triggered := 0
	for _, a := range alerts {
		if a.(map[string]interface{})["triggered"].(bool) {
			triggered++
		}
	}
	// Global 90% (95000/100000) and category 80% (95000/70000) both fired.
	if triggered != 2 {
		t.Errorf("expected 2 triggered alerts, got %d", triggered)
	}

	// Step 6: Progress reflects the overspend risk
	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/progress", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	progress = parseJSON(t, rec)["progress"].(map[string]interface{})
	if progress["overall_progress"].(float64) != 95 {
		t.Errorf("expected 95%% progress, got %.2f", progress["overall_progress"].(float64))
	}
	if progress["health_status"] != "warning" {
		t.Errorf("expected warning health at 95%%, got %v", progress["health_status"])
	}
}

func TestBudgetFlow_ExceededStatus(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "exceeded@test.com", "password123")

	spaceID := app.createSpace(t, token, "Solo")
	categoryID := app.createCategory(t, token, spaceID, "Dining")

	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"space_id":%q,"name":"Dining Budget","total_amount":5000,"period":"monthly","start_date":%q}`,
			spaceID, startDate.Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budgetID := parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)

	// Spend $75 on a $50 budget
	rec = app.request("POST", "/api/v1/expenses",
		fmt.Sprintf(`{"space_id":%q,"category_id":%q,"amount":7500,"date":%q}`,
			spaceID, categoryID, startDate.Add(time.Hour).Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/recalculate", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	if budget["status"] != "exceeded" {
		t.Errorf("expected exceeded status, got %v", budget["status"])
	}
	// Remaining floors at zero; the overshoot shows in spent vs total.
	if budget["remaining_amount"].(float64) != 0 {
		t.Errorf("expected 0 remaining, got %.0f", budget["remaining_amount"].(float64))
	}
}

func TestBudgetFlow_CRUDOperations(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "budgetcrud@test.com", "password123")

	spaceID := app.createSpace(t, token, "CRUD Space")

	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	// Create budget
	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"space_id":%q,"name":"Utility Budget","total_amount":15000,"period":"monthly","start_date":%q}`,
			spaceID, startDate.Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budgetID := parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)

	// Get budget
	rec = app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	if budget["name"] != "Utility Budget" {
		t.Errorf("expected name 'Utility Budget', got %v", budget["name"])
	}

	// Update budget name and total
	rec = app.request("PUT", "/api/v1/budgets/"+budgetID,
		`{"name":"Updated Utilities","total_amount":20000}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := parseJSON(t, rec)["budget"].(map[string]interface{})
	if updated["name"] != "Updated Utilities" {
		t.Errorf("expected name 'Updated Utilities', got %v", updated["name"])
	}
	if updated["total_amount"].(float64) != 20000 {
		t.Errorf("expected total 20000, got %.0f", updated["total_amount"].(float64))
	}

	// List budgets
	rec = app.request("GET", "/api/v1/budgets?space_id="+spaceID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	listResult := parseJSON(t, rec)
	if listResult["total_items"].(float64) != 1 {
		t.Errorf("expected 1 budget in list, got %.0f", listResult["total_items"].(float64))
	}

	// Delete budget
	rec = app.request("DELETE", "/api/v1/budgets/"+budgetID, "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	// Verify deleted (should 404)
	rec = app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after deletion, got %d", rec.Code)
	}
}

func TestBudgetFlow_OverlapRejected(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "overlap@test.com", "password123")

	spaceID := app.createSpace(t, token, "Overlap Space")

	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	body := fmt.Sprintf(`{"space_id":%q,"name":"January","total_amount":10000,"period":"monthly","start_date":%q}`,
		spaceID, startDate.Format(time.RFC3339))
	rec := app.request("POST", "/api/v1/budgets", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// A second monthly budget starting mid-January collides.
	rec = app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"space_id":%q,"name":"Mid January","total_amount":10000,"period":"monthly","start_date":%q}`,
			spaceID, startDate.AddDate(0, 0, 15).Format(time.RFC3339)), token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for overlapping window, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "BUDGET_PERIOD_OVERLAP" {
		t.Errorf("expected BUDGET_PERIOD_OVERLAP, got %v", errObj["code"])
	}
}

func TestBudgetFlow_TemplateInstantiate(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "template@test.com", "password123")

	spaceID := app.createSpace(t, token, "Template Space")
	categoryID := app.createCategory(t, token, spaceID, "Rent")

	// Create a template with an allocation
	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	body := fmt.Sprintf(`{
		"space_id": %q,
		"name": "Standard Month",
		"total_amount": 200000,
		"period": "monthly",
		"start_date": %q,
		"is_template": true,
		"allocations": [{"category_id": %q, "allocated_amount": 120000}]
	}`, spaceID, startDate.Format(time.RFC3339), categoryID)
	rec := app.request("POST", "/api/v1/budgets", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	templateID := parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)

	// Instantiate it for June
	juneStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rec = app.request("POST", "/api/v1/budgets/"+templateID+"/instantiate",
		fmt.Sprintf(`{"start_date":%q}`, juneStart.Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 instantiating template, got %d: %s", rec.Code, rec.Body.String())
	}
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	if budget["is_template"].(bool) {
		t.Error("expected a live budget, not a template")
	}
	if budget["total_amount"].(float64) != 200000 {
		t.Errorf("expected total 200000, got %.0f", budget["total_amount"].(float64))
	}
	allocations := budget["category_budgets"].([]interface{})
	if len(allocations) != 1 {
		t.Fatalf("expected 1 allocation copied, got %d", len(allocations))
	}

	// Instantiating a live budget is rejected
	liveID := budget["id"].(string)
	rec = app.request("POST", "/api/v1/budgets/"+liveID+"/instantiate",
		fmt.Sprintf(`{"start_date":%q}`, juneStart.AddDate(0, 1, 0).Format(time.RFC3339)), token)
	if rec.Code != http.StatusUnprocessableEntity && rec.Code != http.StatusBadRequest && rec.Code != http.StatusConflict {
		t.Fatalf("expected error instantiating a non-template, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "NOT_A_TEMPLATE" {
		t.Errorf("expected NOT_A_TEMPLATE, got %v", errObj["code"])
	}
}

func TestBudgetFlow_RenewalRun(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "renewal@test.com", "password123")

	spaceID := app.createSpace(t, token, "Renewal Space")

	// A completed auto-renewing budget two months back.
	start := time.Now().AddDate(0, -2, 0)
	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"space_id":%q,"name":"Rolling","total_amount":50000,"period":"monthly","start_date":%q,"auto_renew":true}`,
			spaceID, start.Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	budgetID := parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)

	// The window has passed, so a recalculation completes the budget.
	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/recalculate", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if status := parseJSON(t, rec)["budget"].(map[string]interface{})["status"]; status != "completed" {
		t.Fatalf("expected completed status before renewal, got %v", status)
	}

	// Run the renewal batch
	rec = app.request("POST", "/api/v1/budgets/renewals/run", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 running renewals, got %d: %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["renewed"].(float64) != 1 {
		t.Errorf("expected 1 renewal, got %v", summary["renewed"])
	}

	// The successor shows up in the space's budget list
	rec = app.request("GET", "/api/v1/budgets?space_id="+spaceID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if total := parseJSON(t, rec)["total_items"].(float64); total != 2 {
		t.Errorf("expected 2 budgets after renewal, got %.0f", total)
	}
}

func TestBudgetFlow_SummaryAggregates(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "summary@test.com", "password123")

	spaceID := app.createSpace(t, token, "Summary Space")

	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"space_id":%q,"name":"This Month","total_amount":80000,"period":"monthly","start_date":%q}`,
			spaceID, startDate.Format(time.RFC3339)), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/budgets/summary?space_id="+spaceID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["total_budgets"].(float64) != 1 {
		t.Errorf("expected 1 budget, got %v", summary["total_budgets"])
	}
	if summary["total_allocated"].(float64) != 80000 {
		t.Errorf("expected 80000 allocated, got %v", summary["total_allocated"])
	}
}
