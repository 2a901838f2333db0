package services

import (
	"context"
	"time"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
)

// ===== SERVICE INTERFACES =====

type OrgService interface {
	// Governorates
	CreateGovernorate(ctx context.Context, req *CreateGovernorateRequest, actorID uint) (*models.Governorate, error)
	UpdateGovernorate(ctx context.Context, id uint, req *UpdateGovernorateRequest, actorID uint) (*models.Governorate, error)
	DeleteGovernorate(ctx context.Context, id uint, actorID uint) error
	GetGovernorate(ctx context.Context, id uint) (*models.Governorate, error)
	ListGovernorates(ctx context.Context) ([]*models.Governorate, error)

	// Health administrations
	CreateHealthAdmin(ctx context.Context, req *CreateHealthAdminRequest, actorID uint) (*models.HealthAdministration, error)
	UpdateHealthAdmin(ctx context.Context, id uint, req *UpdateHealthAdminRequest, actorID uint) (*models.HealthAdministration, error)
	DeleteHealthAdmin(ctx context.Context, id uint, actorID uint) error
	GetHealthAdmin(ctx context.Context, id uint) (*models.HealthAdministration, error)
	ListHealthAdmins(ctx context.Context, governorateID *uint) ([]*models.HealthAdministration, error)
}

type UserService interface {
	Create(ctx context.Context, req *CreateUserRequest, actorID uint) (*models.User, error)
	Update(ctx context.Context, id uint, req *UpdateUserRequest, actorID uint) (*models.User, error)
	Delete(ctx context.Context, id uint, actorID uint) error
	GetByID(ctx context.Context, id uint, actorID uint) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters, actorID uint) (*UserListResponse, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	TouchActivity(ctx context.Context, userID uint)
}

// ScopeService resolves what a user may see. Admins see everything,
// governorate admins see their governorate's surveys plus explicit grants,
// employees see surveys targeting their health administration's governorate
// plus explicit grants.
type ScopeService interface {
	ResolveScope(ctx context.Context, userID uint) (*Scope, error)
	ListVisibleSurveys(ctx context.Context, userID uint, activeOnly bool) ([]*models.Survey, error)
	CanAccessSurvey(ctx context.Context, userID, surveyID uint) (bool, error)
	SetUserGrants(ctx context.Context, userID uint, surveyIDs []uint, actorID uint) error
	GetUserGrants(ctx context.Context, userID uint, actorID uint) ([]*models.Survey, error)
}

type SurveyService interface {
	Create(ctx context.Context, req *CreateSurveyRequest, actorID uint) (*SurveyResponse, error)
	Update(ctx context.Context, id uint, req *UpdateSurveyRequest, actorID uint) (*SurveyResponse, error)
	ReconcileFields(ctx context.Context, surveyID uint, req *ReconcileFieldsRequest, actorID uint) (*SurveyResponse, error)
	Delete(ctx context.Context, id uint, actorID uint) error
	GetByID(ctx context.Context, id uint, userID uint) (*SurveyResponse, error)
	List(ctx context.Context, filters repositories.SurveyFilters, userID uint) (*SurveyListResponse, error)
	ListFields(ctx context.Context, surveyID uint, userID uint) ([]*models.SurveyField, error)
	SetActive(ctx context.Context, id uint, active bool, actorID uint) (*SurveyResponse, error)
}

type ResponseService interface {
	Submit(ctx context.Context, req *SubmitResponseRequest, userID uint) (*ResponseDetailsResponse, error)
	UpdateAnswer(ctx context.Context, detailID uint, req *UpdateAnswerRequest, actorID uint) (*models.ResponseDetail, error)
	List(ctx context.Context, filters repositories.ResponseFilters, userID uint) (*ResponseListResponse, error)
	GetDetails(ctx context.Context, responseID uint, userID uint) (*ResponseDetailsResponse, error)
}

// AuditService records and queries the append-only audit trail. Record takes
// the repository so callers inside a transaction can pass their tx-bound one.
type AuditService interface {
	Record(ctx context.Context, repo repositories.Repository, userID uint, action models.AuditAction, tableName string, recordID *uint, oldValue, newValue interface{}) error
	Query(ctx context.Context, filters repositories.AuditFilters, actorID uint) (*AuditListResponse, error)
}

type ExportService interface {
	ExportResponses(ctx context.Context, surveyID uint, format ExportFormat, userID uint) (*ExportResult, error)
	ExportAuditLog(ctx context.Context, filters repositories.AuditFilters, format ExportFormat, actorID uint) (*ExportResult, error)
}

// ===== SHARED TYPES =====

// Scope is the resolved visibility of a user for a single request.
type Scope struct {
	UserID        uint            `json:"user_id"`
	Role          models.UserRole `json:"role"`
	GovernorateID *uint           `json:"governorate_id,omitempty"`
	HealthAdminID *uint           `json:"health_admin_id,omitempty"`
}

func (s *Scope) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ===== ORGANIZATION DTOS =====

type CreateGovernorateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"max=1000"`
}

type UpdateGovernorateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

type CreateHealthAdminRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=255"`
	Description   string `json:"description" validate:"max=1000"`
	GovernorateID uint   `json:"governorate_id" validate:"required"`
}

type UpdateHealthAdminRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	GovernorateID *uint   `json:"governorate_id,omitempty"`
}

// ===== USER DTOS =====

type CreateUserRequest struct {
	Username      string          `json:"username" validate:"required,min=3,max=100"`
	Password      string          `json:"password" validate:"required,min=8,max=72"`
	Role          models.UserRole `json:"role" validate:"required,user_role"`
	HealthAdminID *uint           `json:"health_admin_id,omitempty"`
	GovernorateID *uint           `json:"governorate_id,omitempty"`
}

type UpdateUserRequest struct {
	Username      *string          `json:"username,omitempty" validate:"omitempty,min=3,max=100"`
	Password      *string          `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Role          *models.UserRole `json:"role,omitempty" validate:"omitempty,user_role"`
	HealthAdminID *uint            `json:"health_admin_id,omitempty"`
	GovernorateID *uint            `json:"governorate_id,omitempty"`
}

type UserListResponse struct {
	Users  []*models.User `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ===== SURVEY DTOS =====

type SurveyFieldRequest struct {
	ID         *uint            `json:"id,omitempty"`
	Label      string           `json:"label" validate:"required,min=1,max=500"`
	Type       models.FieldType `json:"type" validate:"required,field_type"`
	Options    []string         `json:"options,omitempty"`
	IsRequired bool             `json:"is_required"`
}

type CreateSurveyRequest struct {
	Name           string               `json:"name" validate:"required,min=2,max=255"`
	IsActive       bool                 `json:"is_active"`
	Fields         []SurveyFieldRequest `json:"fields" validate:"required,min=1,dive"`
	GovernorateIDs []uint               `json:"governorate_ids"`
}

type UpdateSurveyRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	IsActive       *bool   `json:"is_active,omitempty"`
	GovernorateIDs []uint  `json:"governorate_ids,omitempty"`
}

// ReconcileFieldsRequest replaces the survey's field set with the given
// list: entries with an ID update the existing field, entries without one
// are inserted, and existing fields absent from the list are removed.
// Order in the list becomes the display order. Name and IsActive, when set,
// are updated in the same transaction.
type ReconcileFieldsRequest struct {
	Name     *string              `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	IsActive *bool                `json:"is_active,omitempty"`
	Fields   []SurveyFieldRequest `json:"fields" validate:"required,min=1,dive"`

	// Force allows deleting fields that already have submitted answers,
	// destroying those answers.
	Force bool `json:"force"`
}

type SurveyResponse struct {
	Survey *models.Survey `json:"survey"`
}

type SurveyListResponse struct {
	Surveys []*models.Survey `json:"surveys"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ===== RESPONSE DTOS =====

type AnswerRequest struct {
	FieldID uint   `json:"field_id" validate:"required"`
	Value   string `json:"value"`
}

type SubmitResponseRequest struct {
	SurveyID uint            `json:"survey_id" validate:"required"`
	Answers  []AnswerRequest `json:"answers" validate:"required,min=1,dive"`

	// Completed marks the submission as final. Required-field presence and
	// the once-per-day rule are only enforced for completed submissions.
	Completed bool `json:"completed"`
}

type UpdateAnswerRequest struct {
	Value string `json:"value"`
}

type ResponseDetailsResponse struct {
	Response *models.Response         `json:"response"`
	Details  []*models.ResponseDetail `json:"details"`
}

type ResponseListResponse struct {
	Responses []*models.Response `json:"responses"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// ===== AUDIT DTOS =====

type AuditListResponse struct {
	Entries []*models.AuditLogEntry `json:"entries"`
	Total   int64                   `json:"total"`
	Limit   int                     `json:"limit"`
	Offset  int                     `json:"offset"`
}

// AuditChange is the envelope stored in old_value/new_value columns for
// human-readable audit diffs.
type AuditChange struct {
	Fields map[string]interface{} `json:"fields"`
	At     time.Time              `json:"at"`
}
