package postgres

import (
	"context"
	"time"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

// ===== BASIC CRUD =====

func (r *ResponsePostgreSQL) Create(ctx context.Context, response *models.Response) error {
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(response).Error
}

func (r *ResponsePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Response, error) {
	var response models.Response
	if err := r.db.WithContext(ctx).First(&response, id).Error; err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *ResponsePostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Response, error) {
	var response models.Response
	err := r.db.WithContext(ctx).
		Preload("Survey").
		Preload("User").
		Preload("HealthAdmin").
		Preload("HealthAdmin.Governorate").
		First(&response, id).Error
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *ResponsePostgreSQL) List(ctx context.Context, filters repositories.ResponseFilters) ([]*models.Response, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Response{})

	if filters.SurveyID != nil {
		query = query.Where("responses.survey_id = ?", *filters.SurveyID)
	}
	if filters.UserID != nil {
		query = query.Where("responses.user_id = ?", *filters.UserID)
	}
	if filters.HealthAdminID != nil {
		query = query.Where("responses.health_admin_id = ?", *filters.HealthAdminID)
	}
	if filters.GovernorateID != nil {
		query = query.
			Joins("JOIN health_administrations ha ON responses.health_admin_id = ha.id").
			Where("ha.governorate_id = ?", *filters.GovernorateID)
	}
	if filters.IsCompleted != nil {
		query = query.Where("responses.is_completed = ?", *filters.IsCompleted)
	}
	if filters.DateFrom != nil {
		query = query.Where("responses.submitted_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("responses.submitted_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var responses []*models.Response
	err := query.
		Preload("User").
		Preload("HealthAdmin").
		Preload("HealthAdmin.Governorate").
		Order("responses.submitted_at DESC").
		Find(&responses).Error
	if err != nil {
		return nil, 0, err
	}

	return responses, total, nil
}

// ===== ANSWER MANAGEMENT =====

func (r *ResponsePostgreSQL) CreateDetails(ctx context.Context, details []*models.ResponseDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

func (r *ResponsePostgreSQL) GetDetails(ctx context.Context, responseID uint) ([]*models.ResponseDetail, error) {
	var details []*models.ResponseDetail
	err := r.db.WithContext(ctx).
		Preload("Field").
		Joins("JOIN survey_fields sf ON response_details.field_id = sf.id").
		Where("response_details.response_id = ?", responseID).
		Order("sf.field_order ASC").
		Find(&details).Error
	return details, err
}

func (r *ResponsePostgreSQL) GetDetail(ctx context.Context, detailID uint) (*models.ResponseDetail, error) {
	var detail models.ResponseDetail
	err := r.db.WithContext(ctx).
		Preload("Field").
		First(&detail, detailID).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *ResponsePostgreSQL) UpdateDetailValue(ctx context.Context, detailID uint, value string) error {
	return r.db.WithContext(ctx).
		Model(&models.ResponseDetail{}).
		Where("id = ?", detailID).
		Update("answer_value", value).Error
}

// ===== PER-DAY COMPLETION GATE =====

// HasCompletedOn reports whether a completed response exists for the user,
// survey and calendar day. Inside the submit transaction the matching rows
// are locked so a concurrent completion for the same day blocks until this
// transaction finishes, and then sees the committed row.
func (r *ResponsePostgreSQL) HasCompletedOn(ctx context.Context, userID, surveyID uint, day time.Time) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var existing []models.Response
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND survey_id = ? AND is_completed = ? AND submitted_at >= ? AND submitted_at < ?",
			userID, surveyID, true, dayStart, dayEnd).
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}
