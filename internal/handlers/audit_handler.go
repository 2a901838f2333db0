package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/services"
	"github.com/moh-surveys/survey-service/internal/utils"
)

type AuditHandler struct {
	BaseHandler
	auditService  services.AuditService
	exportService services.ExportService
}

func NewAuditHandler(auditService services.AuditService, exportService services.ExportService, logger utils.Logger) *AuditHandler {
	return &AuditHandler{
		BaseHandler:   NewBaseHandler(logger),
		auditService:  auditService,
		exportService: exportService,
	}
}

// QueryAuditLog queries the audit trail with filters, newest first
func (h *AuditHandler) QueryAuditLog(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	entries, err := h.auditService.Query(c.Request.Context(), h.parseAuditFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ExportAuditLog streams the filtered audit trail as CSV or XLSX
func (h *AuditHandler) ExportAuditLog(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	format := services.ExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exportService.ExportAuditLog(c.Request.Context(), h.parseAuditFilters(c), format, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *AuditHandler) parseAuditFilters(c *gin.Context) repositories.AuditFilters {
	limit, offset := pagination(c)
	filters := repositories.AuditFilters{
		TableName: c.Query("table_name"),
		Username:  c.Query("username"),
		Search:    c.Query("search"),
		DateFrom:  parseTimeQueryPtr(c, "date_from"),
		DateTo:    parseTimeQueryPtr(c, "date_to"),
		Limit:     limit,
		Offset:    offset,
	}
	if action := c.Query("action"); action != "" {
		auditAction := models.AuditAction(action)
		filters.Action = &auditAction
	}
	return filters
}
