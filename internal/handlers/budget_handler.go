package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/models"
	"fiscus/internal/pagination"
	"fiscus/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// AlertRequest represents one alert definition in a budget payload.
type AlertRequest struct {
	Type      models.AlertType `json:"type" binding:"required,alert_type"`
	Threshold float64          `json:"threshold" binding:"gte=0"`
	Enabled   *bool            `json:"enabled"`
}

// AllocationRequest represents one category allocation in a budget payload.
type AllocationRequest struct {
	CategoryID      string         `json:"category_id" binding:"required,uuid"`
	AllocatedAmount int64          `json:"allocated_amount" binding:"required,gt=0"`
	Alerts          []AlertRequest `json:"alerts" binding:"omitempty,dive"`
}

// CreateBudgetRequest represents the request payload for creating a budget.
type CreateBudgetRequest struct {
	SpaceID      string              `json:"space_id" binding:"required,uuid"`
	Name         string              `json:"name" binding:"required,min=1,max=100"`
	Currency     string              `json:"currency" binding:"omitempty,iso4217"`
	TotalAmount  int64               `json:"total_amount" binding:"required,gt=0"`
	Period       models.BudgetPeriod `json:"period" binding:"required,budget_period"`
	StartDate    time.Time           `json:"start_date" binding:"required"`
	EndDate      *time.Time          `json:"end_date"`
	AutoRenew    bool                `json:"auto_renew"`
	IsTemplate   bool                `json:"is_template"`
	Allocations  []AllocationRequest `json:"allocations" binding:"omitempty,dive"`
	GlobalAlerts []AlertRequest      `json:"global_alerts" binding:"omitempty,dive"`
	AllowedUsers []string            `json:"allowed_users" binding:"omitempty,dive,uuid"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
// Absent fields are left unchanged; allocations and alerts replace the
// existing sets when provided.
type UpdateBudgetRequest struct {
	Name         *string              `json:"name" binding:"omitempty,min=1,max=100"`
	TotalAmount  *int64               `json:"total_amount" binding:"omitempty,gt=0"`
	Status       *models.BudgetStatus `json:"status" binding:"omitempty,budget_status"`
	AutoRenew    *bool                `json:"auto_renew"`
	Allocations  *[]AllocationRequest `json:"allocations" binding:"omitempty,dive"`
	GlobalAlerts *[]AlertRequest      `json:"global_alerts" binding:"omitempty,dive"`
	AllowedUsers *[]string            `json:"allowed_users" binding:"omitempty,dive,uuid"`
}

// InstantiateTemplateRequest represents the request payload for creating a
// budget from a template.
type InstantiateTemplateRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
}

func toAlertInputs(alerts []AlertRequest) []services.AlertInput {
	out := make([]services.AlertInput, 0, len(alerts))
	for _, a := range alerts {
		enabled := true
		if a.Enabled != nil {
			enabled = *a.Enabled
		}
		out = append(out, services.AlertInput{Type: a.Type, Threshold: a.Threshold, Enabled: enabled})
	}
	return out
}

func toAllocationInputs(allocations []AllocationRequest) []services.CategoryAllocationInput {
	out := make([]services.CategoryAllocationInput, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, services.CategoryAllocationInput{
			CategoryID:      a.CategoryID,
			AllocatedAmount: a.AllocatedAmount,
			Alerts:          toAlertInputs(a.Alerts),
		})
	}
	return out
}

// CreateBudget handles the creation of a new budget or template.
// @Summary     Create a budget
// @Description Create a new budget or budget template in a space
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Budget period overlap"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.CreateBudgetInput{
		SpaceID:      req.SpaceID,
		CreatedBy:    userID,
		Name:         req.Name,
		Currency:     req.Currency,
		TotalAmount:  req.TotalAmount,
		Period:       req.Period,
		StartDate:    req.StartDate,
		AutoRenew:    req.AutoRenew,
		IsTemplate:   req.IsTemplate,
		Allocations:  toAllocationInputs(req.Allocations),
		GlobalAlerts: toAlertInputs(req.GlobalAlerts),
		AllowedUsers: req.AllowedUsers,
	}
	if req.EndDate != nil {
		input.EndDate = *req.EndDate
	}

	budget, err := h.budgetService.CreateBudget(c.Request.Context(), input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "total_amount": req.TotalAmount, "period": req.Period})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudgets handles listing budgets in a space.
// @Summary     Get budgets
// @Description Get a paginated list of budgets in a space with optional filters
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       space_id    query string true  "Space ID"
// @Param       status      query string false "Filter by status (active/paused/exceeded/completed)"
// @Param       period      query string false "Filter by period (weekly/monthly/quarterly/yearly)"
// @Param       is_template query bool   false "Filter templates"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	spaceID := c.Query("space_id")
	if spaceID == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "space_id is required"))
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseBudgetFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.GetSpaceBudgets(c.Request.Context(), userID, spaceID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseBudgetFilter extracts the optional budget list filters from the query string.
func parseBudgetFilter(c *gin.Context) (services.BudgetFilter, error) {
	var filter services.BudgetFilter

	if v := c.Query("status"); v != "" {
		s := models.BudgetStatus(v)
		switch s {
		case models.BudgetStatusActive, models.BudgetStatusPaused, models.BudgetStatusExceeded, models.BudgetStatusCompleted:
			filter.Status = &s
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput,
				"status must be one of 'active', 'paused', 'exceeded', 'completed'")
		}
	}

	if v := c.Query("period"); v != "" {
		p := models.BudgetPeriod(v)
		switch p {
		case models.BudgetPeriodWeekly, models.BudgetPeriodMonthly, models.BudgetPeriodQuarterly, models.BudgetPeriodYearly:
			filter.Period = &p
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput,
				"period must be one of 'weekly', 'monthly', 'quarterly', 'yearly'")
		}
	}

	if v := c.Query("is_template"); v != "" {
		switch v {
		case "true":
			b := true
			filter.IsTemplate = &b
		case "false":
			b := false
			filter.IsTemplate = &b
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "is_template must be 'true' or 'false'")
		}
	}

	return filter, nil
}

// GetBudget handles retrieving a specific budget.
// @Summary     Get budget by ID
// @Description Get a specific budget with its allocations and alerts
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Budget details"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles updating a budget.
// @Summary     Update a budget
// @Description Update a budget's definition; financial actuals are recomputed, never client-set
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to update"
// @Success     200 {object} models.Budget "Budget updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.UpdateBudgetInput{
		Name:         req.Name,
		TotalAmount:  req.TotalAmount,
		Status:       req.Status,
		AutoRenew:    req.AutoRenew,
		AllowedUsers: req.AllowedUsers,
	}
	if req.Allocations != nil {
		allocations := toAllocationInputs(*req.Allocations)
		input.Allocations = &allocations
	}
	if req.GlobalAlerts != nil {
		alerts := toAlertInputs(*req.GlobalAlerts)
		input.GlobalAlerts = &alerts
	}

	budget, err := h.budgetService.UpdateBudget(c.Request.Context(), userID, budgetID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_BUDGET", "budget", budgetID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "total_amount": req.TotalAmount, "status": req.Status})

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete a budget
// @Description Soft-delete a budget, recording who deleted it
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     204 "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(c.Request.Context(), userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}

// RecalculateBudget handles an on-demand recalculation of a budget.
// @Summary     Recalculate a budget
// @Description Recompute a budget's spent amounts, alerts, and status from expense records
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Recalculated budget"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Failure     503 {object} ErrorResponse "Expense data unavailable"
// @Router      /budgets/{id}/recalculate [post]
func (h *BudgetHandler) RecalculateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.RecalculateBudget(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "RECALCULATE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetBudgetProgress handles retrieving progress analytics for a budget.
// @Summary     Get budget progress
// @Description Get spending progress, projections, and health for a budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} services.BudgetProgress "Budget progress"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/progress [get]
func (h *BudgetHandler) GetBudgetProgress(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgetService.GetBudgetProgress(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// InstantiateTemplate handles creating a budget from a template.
// @Summary     Create budget from template
// @Description Create a new budget using a template's definition, anchored at a start date
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                     true "Template ID"
// @Param       request body InstantiateTemplateRequest true "Instantiation details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input or not a template"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     409 {object} ErrorResponse "Budget period overlap"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/instantiate [post]
func (h *BudgetHandler) InstantiateTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InstantiateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.CreateFromTemplate(c.Request.Context(), userID, templateID, req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "INSTANTIATE_BUDGET_TEMPLATE", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"template_id": templateID, "start_date": req.StartDate})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// RunRenewals handles an on-demand auto-renewal batch run.
// @Summary     Run auto-renewals
// @Description Process all budgets due for automatic renewal; normally driven by the scheduler
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.RenewalSummary "Renewal summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/renewals/run [post]
func (h *BudgetHandler) RunRenewals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.budgetService.ProcessAutoRenewals(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "RUN_BUDGET_RENEWALS", "budget", "", c.ClientIP(),
		map[string]interface{}{"processed": summary.Processed, "renewed": summary.Renewed, "failed": summary.Failed})

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetBudgetSummary handles retrieving a space's aggregate budget position.
// @Summary     Get budget summary
// @Description Get aggregate counts, totals, and overall health for a space's budgets
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       space_id query string true "Space ID"
// @Success     200 {object} services.BudgetSummary "Budget summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/summary [get]
func (h *BudgetHandler) GetBudgetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	spaceID := c.Query("space_id")
	if spaceID == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "space_id is required"))
		return
	}

	summary, err := h.budgetService.GetBudgetSummary(c.Request.Context(), userID, spaceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
