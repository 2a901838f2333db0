package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/services"
	"github.com/moh-surveys/survey-service/internal/utils"
)

type OrgHandler struct {
	BaseHandler
	orgService services.OrgService
}

func NewOrgHandler(orgService services.OrgService, logger utils.Logger) *OrgHandler {
	return &OrgHandler{
		BaseHandler: NewBaseHandler(logger),
		orgService:  orgService,
	}
}

// ===== GOVERNORATES =====

// CreateGovernorate creates a new governorate
func (h *OrgHandler) CreateGovernorate(c *gin.Context) {
	var req services.CreateGovernorateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	governorate, err := h.orgService.CreateGovernorate(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, governorate)
}

// UpdateGovernorate renames or re-describes a governorate
func (h *OrgHandler) UpdateGovernorate(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateGovernorateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	governorate, err := h.orgService.UpdateGovernorate(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, governorate)
}

// DeleteGovernorate deletes an empty governorate
func (h *OrgHandler) DeleteGovernorate(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting governorate", "governorate_id", id)

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	if err := h.orgService.DeleteGovernorate(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetGovernorate retrieves one governorate
func (h *OrgHandler) GetGovernorate(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	governorate, err := h.orgService.GetGovernorate(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, governorate)
}

// ListGovernorates lists all governorates
func (h *OrgHandler) ListGovernorates(c *gin.Context) {
	governorates, err := h.orgService.ListGovernorates(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, governorates)
}

// ===== HEALTH ADMINISTRATIONS =====

// CreateHealthAdmin creates a health administration under a governorate
func (h *OrgHandler) CreateHealthAdmin(c *gin.Context) {
	var req services.CreateHealthAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	healthAdmin, err := h.orgService.CreateHealthAdmin(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, healthAdmin)
}

// UpdateHealthAdmin renames or re-describes a health administration
func (h *OrgHandler) UpdateHealthAdmin(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateHealthAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	healthAdmin, err := h.orgService.UpdateHealthAdmin(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, healthAdmin)
}

// DeleteHealthAdmin deletes a health administration with no users
func (h *OrgHandler) DeleteHealthAdmin(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting health administration", "health_admin_id", id)

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	if err := h.orgService.DeleteHealthAdmin(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetHealthAdmin retrieves one health administration
func (h *OrgHandler) GetHealthAdmin(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	healthAdmin, err := h.orgService.GetHealthAdmin(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, healthAdmin)
}

// ListHealthAdmins lists health administrations, optionally by governorate
func (h *OrgHandler) ListHealthAdmins(c *gin.Context) {
	governorateID := parseUintQueryPtr(c, "governorate_id")

	healthAdmins, err := h.orgService.ListHealthAdmins(c.Request.Context(), governorateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, healthAdmins)
}
