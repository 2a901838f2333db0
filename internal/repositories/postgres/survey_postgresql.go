package postgres

import (
	"context"
	"time"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"gorm.io/gorm"
)

type SurveyPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSurveyPostgreSQL(db *gorm.DB) repositories.SurveyRepository {
	return &SurveyPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// ===== BASIC CRUD =====

// Create inserts the survey row together with any fields attached to it.
func (s *SurveyPostgreSQL) Create(ctx context.Context, survey *models.Survey) error {
	return s.db.WithContext(ctx).Create(survey).Error
}

func (s *SurveyPostgreSQL) Update(ctx context.Context, survey *models.Survey) error {
	return s.db.WithContext(ctx).
		Model(&models.Survey{}).
		Where("id = ?", survey.ID).
		Updates(map[string]interface{}{
			"name":       survey.Name,
			"is_active":  survey.IsActive,
			"updated_at": time.Now(),
		}).Error
}

func (s *SurveyPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Survey, error) {
	var survey models.Survey
	if err := s.db.WithContext(ctx).First(&survey, id).Error; err != nil {
		return nil, err
	}
	return &survey, nil
}

// GetByIDWithDetails retrieves a survey with its ordered fields and linked
// governorates.
func (s *SurveyPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Survey, error) {
	var survey models.Survey
	err := s.db.WithContext(ctx).
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("field_order ASC")
		}).
		Preload("Governorates").
		First(&survey, id).Error
	if err != nil {
		return nil, err
	}

	survey.FieldCount = len(survey.Fields)
	return &survey, nil
}

func (s *SurveyPostgreSQL) List(ctx context.Context, filters repositories.SurveyFilters) ([]*models.Survey, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Survey{})

	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.GovernorateID != nil {
		query = query.
			Joins("JOIN survey_governorates sg ON sg.survey_id = surveys.id").
			Where("sg.governorate_id = ?", *filters.GovernorateID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var surveys []*models.Survey
	if err := query.Find(&surveys).Error; err != nil {
		return nil, 0, err
	}
	return surveys, total, nil
}

func (s *SurveyPostgreSQL) GetStats(ctx context.Context, id uint) (*repositories.SurveyStats, error) {
	stats := &repositories.SurveyStats{}

	var total, completed, fields int64
	if err := s.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("survey_id = ?", id).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("survey_id = ? AND is_completed = ?", id, true).
		Count(&completed).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.SurveyField{}).
		Where("survey_id = ?", id).
		Count(&fields).Error; err != nil {
		return nil, err
	}

	stats.TotalResponses = int(total)
	stats.CompletedResponses = int(completed)
	stats.DraftResponses = int(total - completed)
	stats.FieldCount = int(fields)
	return stats, nil
}

// ===== FIELD MANAGEMENT =====

func (s *SurveyPostgreSQL) ListFields(ctx context.Context, surveyID uint) ([]*models.SurveyField, error) {
	var fields []*models.SurveyField
	err := s.db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		Order("field_order ASC").
		Find(&fields).Error
	return fields, err
}

func (s *SurveyPostgreSQL) GetFieldIDs(ctx context.Context, surveyID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.SurveyField{}).
		Where("survey_id = ?", surveyID).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *SurveyPostgreSQL) CreateField(ctx context.Context, field *models.SurveyField) error {
	return s.db.WithContext(ctx).Create(field).Error
}

func (s *SurveyPostgreSQL) UpdateField(ctx context.Context, field *models.SurveyField) error {
	return s.db.WithContext(ctx).
		Model(&models.SurveyField{}).
		Where("id = ?", field.ID).
		Updates(map[string]interface{}{
			"label":       field.Label,
			"type":        field.Type,
			"options":     field.Options,
			"is_required": field.IsRequired,
			"field_order": field.FieldOrder,
		}).Error
}

func (s *SurveyPostgreSQL) DeleteFields(ctx context.Context, fieldIDs []uint) error {
	if len(fieldIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("id IN ?", fieldIDs).
		Delete(&models.SurveyField{}).Error
}

// FieldsWithAnswers returns the subset of fieldIDs that at least one
// response detail still references.
func (s *SurveyPostgreSQL) FieldsWithAnswers(ctx context.Context, fieldIDs []uint) ([]uint, error) {
	if len(fieldIDs) == 0 {
		return nil, nil
	}
	var referenced []uint
	err := s.db.WithContext(ctx).
		Model(&models.ResponseDetail{}).
		Where("field_id IN ?", fieldIDs).
		Distinct().
		Pluck("field_id", &referenced).Error
	return referenced, err
}

func (s *SurveyPostgreSQL) DeleteFieldAnswers(ctx context.Context, fieldIDs []uint) error {
	if len(fieldIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("field_id IN ?", fieldIDs).
		Delete(&models.ResponseDetail{}).Error
}

// ===== GOVERNORATE LINKAGE =====

// ReplaceGovernorateLinks swaps the survey's governorate link set wholesale.
func (s *SurveyPostgreSQL) ReplaceGovernorateLinks(ctx context.Context, surveyID uint, governorateIDs []uint) error {
	govs := make([]models.Governorate, 0, len(governorateIDs))
	for _, id := range governorateIDs {
		govs = append(govs, models.Governorate{ID: id})
	}
	return s.db.WithContext(ctx).
		Model(&models.Survey{ID: surveyID}).
		Association("Governorates").
		Replace(govs)
}

func (s *SurveyPostgreSQL) ListByGovernorate(ctx context.Context, governorateID uint, activeOnly bool) ([]*models.Survey, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Survey{}).
		Joins("JOIN survey_governorates sg ON sg.survey_id = surveys.id").
		Where("sg.governorate_id = ?", governorateID)
	if activeOnly {
		query = query.Where("surveys.is_active = ?", true)
	}

	var surveys []*models.Survey
	err := query.Order("surveys.name ASC").Find(&surveys).Error
	return surveys, err
}

// ===== DELETION CASCADE PRIMITIVES =====

// DeleteResponseData removes all response details and responses of a survey,
// in that order.
func (s *SurveyPostgreSQL) DeleteResponseData(ctx context.Context, surveyID uint) error {
	err := s.db.WithContext(ctx).
		Where("response_id IN (?)",
			s.db.Model(&models.Response{}).Select("id").Where("survey_id = ?", surveyID)).
		Delete(&models.ResponseDetail{}).Error
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		Delete(&models.Response{}).Error
}

// DeleteSurveyRow removes the survey's governorate links and the survey row
// itself. Fields and response data must already be gone.
func (s *SurveyPostgreSQL) DeleteSurveyRow(ctx context.Context, surveyID uint) error {
	if err := s.db.WithContext(ctx).
		Model(&models.Survey{ID: surveyID}).
		Association("Governorates").
		Clear(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Survey{}, surveyID).Error
}
