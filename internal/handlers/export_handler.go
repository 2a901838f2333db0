package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/services"
	"github.com/moh-surveys/survey-service/internal/utils"
)

type ExportHandler struct {
	BaseHandler
	exportService services.ExportService
}

func NewExportHandler(exportService services.ExportService, logger utils.Logger) *ExportHandler {
	return &ExportHandler{
		BaseHandler:   NewBaseHandler(logger),
		exportService: exportService,
	}
}

// ExportResponses streams a survey's responses as CSV or XLSX
func (h *ExportHandler) ExportResponses(c *gin.Context) {
	surveyID := parseIDParam(c, "id")
	if surveyID == 0 {
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	format := services.ExportFormat(c.DefaultQuery("format", "csv"))

	h.LogRequest(c, "Exporting survey responses", "survey_id", surveyID, "format", format)

	result, err := h.exportService.ExportResponses(c.Request.Context(), surveyID, format, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
