package repositories

import (
	"time"

	"github.com/moh-surveys/survey-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type SurveyFilters struct {
	IsActive      *bool  `json:"is_active"`
	CreatedBy     *uint  `json:"created_by"`
	GovernorateID *uint  `json:"governorate_id"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	SortBy        string `json:"sort_by"`    // "created_at", "name"
	SortOrder     string `json:"sort_order"` // "asc", "desc"
}

type ResponseFilters struct {
	SurveyID      *uint      `json:"survey_id"`
	UserID        *uint      `json:"user_id"`
	HealthAdminID *uint      `json:"health_admin_id"`
	GovernorateID *uint      `json:"governorate_id"`
	IsCompleted   *bool      `json:"is_completed"`
	DateFrom      *time.Time `json:"date_from"`
	DateTo        *time.Time `json:"date_to"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
}

type UserFilters struct {
	Role          *models.UserRole `json:"role"`
	HealthAdminID *uint            `json:"health_admin_id"`
	GovernorateID *uint            `json:"governorate_id"`
	Limit         int              `json:"limit"`
	Offset        int              `json:"offset"`
}

type AuditFilters struct {
	TableName string              `json:"table_name"`
	Action    *models.AuditAction `json:"action"`
	Username  string              `json:"username"` // substring match
	DateFrom  *time.Time          `json:"date_from"`
	DateTo    *time.Time          `json:"date_to"`
	Search    string              `json:"search"` // free text across old/new values
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type SurveyStats struct {
	TotalResponses     int `json:"total_responses"`
	CompletedResponses int `json:"completed_responses"`
	DraftResponses     int `json:"draft_responses"`
	FieldCount         int `json:"field_count"`
}
