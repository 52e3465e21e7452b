package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fiscus/internal/errors"
	"fiscus/internal/models"
	"fiscus/internal/pagination"
	"fiscus/internal/services"
)

// SpaceHandler handles space-related requests.
type SpaceHandler struct {
	spaceService services.SpaceServicer
	auditService services.AuditServicer
}

// NewSpaceHandler creates a new SpaceHandler.
func NewSpaceHandler(spaceService services.SpaceServicer, auditService services.AuditServicer) *SpaceHandler {
	return &SpaceHandler{spaceService: spaceService, auditService: auditService}
}

// CreateSpaceRequest represents the request payload for creating a space.
type CreateSpaceRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Currency string `json:"currency" binding:"omitempty,iso4217"`
}

// AddMemberRequest represents the request payload for adding a member to a space.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role" binding:"omitempty,space_role"`
}

// CreateSpace handles the creation of a new space.
// @Summary     Create a space
// @Description Create a new shared space owned by the authenticated user
// @Tags        spaces
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSpaceRequest true "Space details"
// @Success     201 {object} models.Space "Space created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /spaces [post]
func (h *SpaceHandler) CreateSpace(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	space, err := h.spaceService.CreateSpace(c.Request.Context(), userID, req.Name, req.Currency)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_SPACE", "space", space.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "currency": space.Currency})

	c.JSON(http.StatusCreated, gin.H{"space": space})
}

// GetSpaces handles listing spaces the authenticated user belongs to.
// @Summary     Get spaces
// @Description Get a paginated list of spaces the authenticated user is a member of
// @Tags        spaces
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Space] "Paginated spaces"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /spaces [get]
func (h *SpaceHandler) GetSpaces(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.spaceService.GetUserSpaces(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSpace handles retrieving a specific space.
// @Summary     Get space by ID
// @Description Get a specific space the authenticated user is a member of
// @Tags        spaces
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Space ID"
// @Success     200 {object} models.Space "Space details"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Space not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /spaces/{id} [get]
func (h *SpaceHandler) GetSpace(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	spaceID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	space, err := h.spaceService.GetSpaceByID(c.Request.Context(), userID, spaceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"space": space})
}

// AddMember handles adding a member to a space.
// @Summary     Add a space member
// @Description Add a user to a space (owner only)
// @Tags        spaces
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Space ID"
// @Param       request body AddMemberRequest true "Member details"
// @Success     201 {object} models.SpaceMember "Member added"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Space or user not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /spaces/{id}/members [post]
func (h *SpaceHandler) AddMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	spaceID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	role := models.SpaceRoleMember
	if req.Role != "" {
		role = models.SpaceRole(req.Role)
	}

	member, err := h.spaceService.AddMember(c.Request.Context(), userID, spaceID, req.UserID, role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ADD_SPACE_MEMBER", "space", spaceID, c.ClientIP(),
		map[string]interface{}{"member_id": req.UserID, "role": role})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// RemoveMember handles removing a member from a space.
// @Summary     Remove a space member
// @Description Remove a user from a space (owner only; the owner cannot be removed)
// @Tags        spaces
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id     path string true "Space ID"
// @Param       userID path string true "User ID"
// @Success     204 "Member removed"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Space or member not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /spaces/{id}/members/{userID} [delete]
func (h *SpaceHandler) RemoveMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	spaceID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	memberID, err := parsePathID(c, "userID")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.spaceService.RemoveMember(c.Request.Context(), userID, spaceID, memberID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REMOVE_SPACE_MEMBER", "space", spaceID, c.ClientIP(),
		map[string]interface{}{"member_id": memberID})

	c.Status(http.StatusNoContent)
}
