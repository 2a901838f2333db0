package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/services"
	"github.com/moh-surveys/survey-service/internal/utils"
)

type SurveyHandler struct {
	BaseHandler
	surveyService services.SurveyService
	scopeService  services.ScopeService
}

func NewSurveyHandler(surveyService services.SurveyService, scopeService services.ScopeService, logger utils.Logger) *SurveyHandler {
	return &SurveyHandler{
		BaseHandler:   NewBaseHandler(logger),
		surveyService: surveyService,
		scopeService:  scopeService,
	}
}

// CreateSurvey creates a survey with its field set and governorate targets
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	var req services.CreateSurveyRequest
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

	survey, err := h.surveyService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, survey)
}

// GetSurvey retrieves a survey with fields and governorates
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	survey, err := h.surveyService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// ListSurveys lists surveys visible to the caller
func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	limit, offset := pagination(c)
	filters := repositories.SurveyFilters{
		IsActive:      parseBoolQueryPtr(c, "is_active"),
		CreatedBy:     parseUintQueryPtr(c, "created_by"),
		GovernorateID: parseUintQueryPtr(c, "governorate_id"),
		Limit:         limit,
		Offset:        offset,
		SortBy:        c.Query("sort_by"),
		SortOrder:     c.Query("sort_order"),
	}

	surveys, err := h.surveyService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, surveys)
}

// UpdateSurvey updates survey name, active flag or governorate targets
func (h *SurveyHandler) UpdateSurvey(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateSurveyRequest
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

	survey, err := h.surveyService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// ReconcileFields replaces the survey's field set in place
func (h *SurveyHandler) ReconcileFields(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Reconciling survey fields", "survey_id", id)

	var req services.ReconcileFieldsRequest
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

	survey, err := h.surveyService.ReconcileFields(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// DeleteSurvey deletes a survey along with all its responses
func (h *SurveyHandler) DeleteSurvey(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting survey", "survey_id", id)

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	if err := h.surveyService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListFields lists the survey's fields in display order
func (h *SurveyHandler) ListFields(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	fields, err := h.surveyService.ListFields(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, fields)
}

// SetActive activates or deactivates a survey
func (h *SurveyHandler) SetActive(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
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

	survey, err := h.surveyService.SetActive(c.Request.Context(), id, req.IsActive, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// ListVisible lists the surveys visible to the caller (employee view)
func (h *SurveyHandler) ListVisible(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	activeOnly := true
	if v := parseBoolQueryPtr(c, "active_only"); v != nil {
		activeOnly = *v
	}

	surveys, err := h.scopeService.ListVisibleSurveys(c.Request.Context(), userID, activeOnly)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, surveys)
}
