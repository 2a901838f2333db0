package repositories

import (
	"context"

	"github.com/moh-surveys/survey-service/internal/models"
)

// SurveyRepository covers surveys, their ordered field sets and the
// survey-governorate link table. Multi-step mutations (field reconciliation,
// cascade deletion) are orchestrated by the schema service inside WithTx;
// this interface provides the primitives.
type SurveyRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, survey *models.Survey) error
	Update(ctx context.Context, survey *models.Survey) error
	GetByID(ctx context.Context, id uint) (*models.Survey, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Survey, error) // Include fields, governorates
	List(ctx context.Context, filters SurveyFilters) ([]*models.Survey, int64, error)
	GetStats(ctx context.Context, id uint) (*SurveyStats, error)

	// Field management
	ListFields(ctx context.Context, surveyID uint) ([]*models.SurveyField, error)
	GetFieldIDs(ctx context.Context, surveyID uint) ([]uint, error)
	CreateField(ctx context.Context, field *models.SurveyField) error
	UpdateField(ctx context.Context, field *models.SurveyField) error
	DeleteFields(ctx context.Context, fieldIDs []uint) error
	FieldsWithAnswers(ctx context.Context, fieldIDs []uint) ([]uint, error)
	DeleteFieldAnswers(ctx context.Context, fieldIDs []uint) error

	// Governorate linkage
	ReplaceGovernorateLinks(ctx context.Context, surveyID uint, governorateIDs []uint) error
	ListByGovernorate(ctx context.Context, governorateID uint, activeOnly bool) ([]*models.Survey, error)

	// Deletion cascade primitives, to be called in foreign-key order:
	// response details -> responses -> fields -> governorate links -> survey
	DeleteResponseData(ctx context.Context, surveyID uint) error
	DeleteSurveyRow(ctx context.Context, surveyID uint) error
}
