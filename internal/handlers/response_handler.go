package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/services"
	"github.com/moh-surveys/survey-service/internal/utils"
)

type ResponseHandler struct {
	BaseHandler
	responseService services.ResponseService
}

func NewResponseHandler(responseService services.ResponseService, logger utils.Logger) *ResponseHandler {
	return &ResponseHandler{
		BaseHandler:     NewBaseHandler(logger),
		responseService: responseService,
	}
}

// SubmitResponse records a survey submission for the calling employee
func (h *ResponseHandler) SubmitResponse(c *gin.Context) {
	var req services.SubmitResponseRequest
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

	response, err := h.responseService.Submit(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListResponses lists responses within the caller's scope
func (h *ResponseHandler) ListResponses(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	limit, offset := pagination(c)
	filters := repositories.ResponseFilters{
		SurveyID:      parseUintQueryPtr(c, "survey_id"),
		HealthAdminID: parseUintQueryPtr(c, "health_admin_id"),
		IsCompleted:   parseBoolQueryPtr(c, "is_completed"),
		DateFrom:      parseTimeQueryPtr(c, "date_from"),
		DateTo:        parseTimeQueryPtr(c, "date_to"),
		Limit:         limit,
		Offset:        offset,
	}

	responses, err := h.responseService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses)
}

// GetResponseDetails returns a response header row with its answers
func (h *ResponseHandler) GetResponseDetails(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	details, err := h.responseService.GetDetails(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// UpdateAnswer corrects one stored answer
func (h *ResponseHandler) UpdateAnswer(c *gin.Context) {
	detailID := parseIDParam(c, "detail_id")
	if detailID == 0 {
		return
	}

	h.LogRequest(c, "Updating answer", "detail_id", detailID)

	var req services.UpdateAnswerRequest
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

	detail, err := h.responseService.UpdateAnswer(c.Request.Context(), detailID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}
