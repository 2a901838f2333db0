package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/moh-surveys/survey-service/internal/events"
	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/validator"
)

func newSurveyServiceForTest(repo *MockRepository, publisher events.EventPublisher) SurveyService {
	logger := testLogger()
	audit := NewAuditService(repo, logger)
	scope := NewScopeService(repo, audit, logger)
	return NewSurveyService(repo, scope, audit, publisher, logger, validator.New())
}

func expectSurveyReload(repo *MockRepository, survey *models.Survey) {
	repo.survey.On("GetByIDWithDetails", mock.Anything, survey.ID).Return(survey, nil)
	repo.survey.On("GetStats", mock.Anything, survey.ID).Return(&repositories.SurveyStats{
		TotalResponses: 0,
		FieldCount:     len(survey.Fields),
	}, nil)
}

func TestSurveyService_Create(t *testing.T) {
	t.Run("admin creates survey with ordered fields", func(t *testing.T) {
		repo := newMockRepository()
		publisher := events.NewMockEventPublisher(testLogger())
		service := newSurveyServiceForTest(repo, publisher)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.org.On("GetGovernorate", mock.Anything, uint(7)).Return(&models.Governorate{ID: 7, Name: "Cairo"}, nil)

		repo.survey.On("Create", mock.Anything, mock.MatchedBy(func(sv *models.Survey) bool {
			if sv.Name != "Daily Clinic Report" || len(sv.Fields) != 2 {
				return false
			}
			return sv.Fields[0].FieldOrder == 0 && sv.Fields[1].FieldOrder == 1
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Survey).ID = 10
		}).Return(nil)
		repo.survey.On("ReplaceGovernorateLinks", mock.Anything, uint(10), []uint{7}).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		expectSurveyReload(repo, &models.Survey{ID: 10, Name: "Daily Clinic Report", IsActive: true})

		result, err := service.Create(context.Background(), &CreateSurveyRequest{
			Name:     "Daily Clinic Report",
			IsActive: true,
			Fields: []SurveyFieldRequest{
				{Label: "Patient count", Type: models.FieldNumber, IsRequired: true},
				{Label: "Notes", Type: models.FieldText},
			},
			GovernorateIDs: []uint{7},
		}, 1)

		assert.NoError(t, err)
		assert.NotNil(t, result)
		assert.Equal(t, uint(10), result.Survey.ID)
		repo.survey.AssertExpectations(t)
		repo.audit.AssertNumberOfCalls(t, "Create", 1)

		published := publisher.GetPublishedEvents()
		assert.Len(t, published, 1)
		assert.Equal(t, events.EventSurveyPublished, published[0].Type)
	})

	t.Run("inactive survey publishes no event", func(t *testing.T) {
		repo := newMockRepository()
		publisher := events.NewMockEventPublisher(testLogger())
		service := newSurveyServiceForTest(repo, publisher)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.survey.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Survey).ID = 11
		}).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		expectSurveyReload(repo, &models.Survey{ID: 11, Name: "Draft Survey"})

		_, err := service.Create(context.Background(), &CreateSurveyRequest{
			Name:   "Draft Survey",
			Fields: []SurveyFieldRequest{{Label: "Notes", Type: models.FieldText}},
		}, 1)

		assert.NoError(t, err)
		assert.Empty(t, publisher.GetPublishedEvents())
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		repo.user.On("GetByID", mock.Anything, uint(2)).Return(employeeUser(2, 3), nil)

		_, err := service.Create(context.Background(), &CreateSurveyRequest{
			Name:   "Forbidden",
			Fields: []SurveyFieldRequest{{Label: "Notes", Type: models.FieldText}},
		}, 2)

		assert.Error(t, err)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("dropdown without options is rejected", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)

		_, err := service.Create(context.Background(), &CreateSurveyRequest{
			Name:   "Bad Dropdown",
			Fields: []SurveyFieldRequest{{Label: "Choice", Type: models.FieldDropdown}},
		}, 1)

		assert.Error(t, err)
		assert.True(t, IsValidation(err) || errors.As(err, new(*ValidationError)))
	})

	t.Run("unknown governorate is rejected", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.org.On("GetGovernorate", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		_, err := service.Create(context.Background(), &CreateSurveyRequest{
			Name:           "Orphan Links",
			Fields:         []SurveyFieldRequest{{Label: "Notes", Type: models.FieldText}},
			GovernorateIDs: []uint{99},
		}, 1)

		assert.ErrorIs(t, err, ErrGovernorateNotFound)
	})
}

func TestSurveyService_ReconcileFields(t *testing.T) {
	currentFields := func() []*models.SurveyField {
		return []*models.SurveyField{
			{ID: 1, SurveyID: 5, Label: "Patient count", Type: models.FieldNumber, FieldOrder: 0},
			{ID: 2, SurveyID: 5, Label: "Notes", Type: models.FieldText, FieldOrder: 1},
			{ID: 3, SurveyID: 5, Label: "Visit date", Type: models.FieldDate, FieldOrder: 2},
		}
	}

	setupAdminAndSurvey := func(repo *MockRepository) *models.Survey {
		survey := &models.Survey{ID: 5, Name: "Daily Clinic Report", IsActive: true}
		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.survey.On("GetByID", mock.Anything, uint(5)).Return(survey, nil)
		return survey
	}

	t.Run("updates inserts and deletes in one pass", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		survey := setupAdminAndSurvey(repo)
		repo.survey.On("ListFields", mock.Anything, uint(5)).Return(currentFields(), nil)
		repo.survey.On("FieldsWithAnswers", mock.Anything, []uint{1, 3}).Return([]uint{}, nil)
		repo.survey.On("DeleteFields", mock.Anything, []uint{1, 3}).Return(nil)
		repo.survey.On("UpdateField", mock.Anything, mock.MatchedBy(func(f *models.SurveyField) bool {
			return f.ID == 2 && f.Label == "Detailed notes" && f.FieldOrder == 0
		})).Return(nil)
		repo.survey.On("CreateField", mock.Anything, mock.MatchedBy(func(f *models.SurveyField) bool {
			return f.ID == 0 && f.Label == "Ward" && f.FieldOrder == 1 && f.SurveyID == 5
		})).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		expectSurveyReload(repo, survey)

		_, err := service.ReconcileFields(context.Background(), 5, &ReconcileFieldsRequest{
			Fields: []SurveyFieldRequest{
				{ID: uintPtr(2), Label: "Detailed notes", Type: models.FieldText},
				{Label: "Ward", Type: models.FieldDropdown, Options: []string{"A", "B"}},
			},
		}, 1)

		assert.NoError(t, err)
		repo.survey.AssertExpectations(t)
		repo.survey.AssertNotCalled(t, "DeleteFieldAnswers", mock.Anything, mock.Anything)
	})

	t.Run("submitted order becomes field order", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		survey := setupAdminAndSurvey(repo)
		repo.survey.On("ListFields", mock.Anything, uint(5)).Return(currentFields(), nil)
		repo.survey.On("FieldsWithAnswers", mock.Anything, mock.Anything).Return([]uint{}, nil)

		orders := map[uint]int{}
		repo.survey.On("UpdateField", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			f := args.Get(1).(*models.SurveyField)
			orders[f.ID] = f.FieldOrder
		}).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		expectSurveyReload(repo, survey)

		// Resubmit all three in reversed order.
		_, err := service.ReconcileFields(context.Background(), 5, &ReconcileFieldsRequest{
			Fields: []SurveyFieldRequest{
				{ID: uintPtr(3), Label: "Visit date", Type: models.FieldDate},
				{ID: uintPtr(2), Label: "Notes", Type: models.FieldText},
				{ID: uintPtr(1), Label: "Patient count", Type: models.FieldNumber},
			},
		}, 1)

		assert.NoError(t, err)
		assert.Equal(t, map[uint]int{3: 0, 2: 1, 1: 2}, orders)
		repo.survey.AssertNotCalled(t, "DeleteFields", mock.Anything, mock.Anything)
	})

	t.Run("answered field blocks deletion without force", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		setupAdminAndSurvey(repo)
		repo.survey.On("ListFields", mock.Anything, uint(5)).Return(currentFields(), nil)
		repo.survey.On("FieldsWithAnswers", mock.Anything, []uint{3}).Return([]uint{3}, nil)

		_, err := service.ReconcileFields(context.Background(), 5, &ReconcileFieldsRequest{
			Fields: []SurveyFieldRequest{
				{ID: uintPtr(1), Label: "Patient count", Type: models.FieldNumber},
				{ID: uintPtr(2), Label: "Notes", Type: models.FieldText},
			},
		}, 1)

		assert.ErrorIs(t, err, ErrFieldInUse)
		repo.survey.AssertNotCalled(t, "DeleteFields", mock.Anything, mock.Anything)
	})

	t.Run("answer arriving between check and delete aborts the pass", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		setupAdminAndSurvey(repo)
		repo.survey.On("ListFields", mock.Anything, uint(5)).Return(currentFields(), nil)

		// The field is unanswered at the first check; a submission lands
		// before the transactional re-check.
		repo.survey.On("FieldsWithAnswers", mock.Anything, []uint{3}).Return([]uint{}, nil).Once()
		repo.survey.On("FieldsWithAnswers", mock.Anything, []uint{3}).Return([]uint{3}, nil).Once()

		_, err := service.ReconcileFields(context.Background(), 5, &ReconcileFieldsRequest{
			Fields: []SurveyFieldRequest{
				{ID: uintPtr(1), Label: "Patient count", Type: models.FieldNumber},
				{ID: uintPtr(2), Label: "Notes", Type: models.FieldText},
			},
		}, 1)

		assert.ErrorIs(t, err, ErrFieldInUse)
		repo.survey.AssertNotCalled(t, "DeleteFields", mock.Anything, mock.Anything)
		repo.survey.AssertNotCalled(t, "DeleteFieldAnswers", mock.Anything, mock.Anything)
	})

	t.Run("force deletes answers before fields", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		survey := setupAdminAndSurvey(repo)
		repo.survey.On("ListFields", mock.Anything, uint(5)).Return(currentFields(), nil)
		repo.survey.On("FieldsWithAnswers", mock.Anything, []uint{3}).Return([]uint{3}, nil)

		var answersDeleted bool
		repo.survey.On("DeleteFieldAnswers", mock.Anything, []uint{3}).Run(func(mock.Arguments) {
			answersDeleted = true
		}).Return(nil)
		repo.survey.On("DeleteFields", mock.Anything, []uint{3}).Run(func(mock.Arguments) {
			assert.True(t, answersDeleted, "answers must be deleted before their fields")
		}).Return(nil)
		repo.survey.On("UpdateField", mock.Anything, mock.Anything).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		expectSurveyReload(repo, survey)

		_, err := service.ReconcileFields(context.Background(), 5, &ReconcileFieldsRequest{
			Fields: []SurveyFieldRequest{
				{ID: uintPtr(1), Label: "Patient count", Type: models.FieldNumber},
				{ID: uintPtr(2), Label: "Notes", Type: models.FieldText},
			},
			Force: true,
		}, 1)

		assert.NoError(t, err)
		repo.survey.AssertExpectations(t)
	})

	t.Run("unknown field id is rejected", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		setupAdminAndSurvey(repo)
		repo.survey.On("ListFields", mock.Anything, uint(5)).Return(currentFields(), nil)

		_, err := service.ReconcileFields(context.Background(), 5, &ReconcileFieldsRequest{
			Fields: []SurveyFieldRequest{
				{ID: uintPtr(42), Label: "Ghost", Type: models.FieldText},
			},
		}, 1)

		assert.ErrorIs(t, err, ErrFieldNotFound)
	})

	t.Run("name and active state updated in same pass", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		survey := setupAdminAndSurvey(repo)
		repo.survey.On("ListFields", mock.Anything, uint(5)).Return(currentFields(), nil)
		repo.survey.On("FieldsWithAnswers", mock.Anything, mock.Anything).Return([]uint{}, nil)
		repo.survey.On("UpdateField", mock.Anything, mock.Anything).Return(nil)
		repo.survey.On("Update", mock.Anything, mock.MatchedBy(func(sv *models.Survey) bool {
			return sv.Name == "Renamed Report" && !sv.IsActive
		})).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		expectSurveyReload(repo, survey)

		_, err := service.ReconcileFields(context.Background(), 5, &ReconcileFieldsRequest{
			Name:     stringPtr("Renamed Report"),
			IsActive: boolPtr(false),
			Fields: []SurveyFieldRequest{
				{ID: uintPtr(1), Label: "Patient count", Type: models.FieldNumber},
				{ID: uintPtr(2), Label: "Notes", Type: models.FieldText},
				{ID: uintPtr(3), Label: "Visit date", Type: models.FieldDate},
			},
		}, 1)

		assert.NoError(t, err)
		repo.survey.AssertExpectations(t)
	})
}

func TestSurveyService_Delete(t *testing.T) {
	t.Run("cascade runs in foreign key order", func(t *testing.T) {
		repo := newMockRepository()
		publisher := events.NewMockEventPublisher(testLogger())
		service := newSurveyServiceForTest(repo, publisher)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.survey.On("GetByID", mock.Anything, uint(5)).Return(&models.Survey{ID: 5, Name: "Old Survey"}, nil)

		var order []string
		repo.survey.On("DeleteResponseData", mock.Anything, uint(5)).Run(func(mock.Arguments) {
			order = append(order, "responses")
		}).Return(nil)
		repo.survey.On("GetFieldIDs", mock.Anything, uint(5)).Return([]uint{1, 2}, nil)
		repo.survey.On("DeleteFields", mock.Anything, []uint{1, 2}).Run(func(mock.Arguments) {
			order = append(order, "fields")
		}).Return(nil)
		repo.survey.On("DeleteSurveyRow", mock.Anything, uint(5)).Run(func(mock.Arguments) {
			order = append(order, "survey")
		}).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		err := service.Delete(context.Background(), 5, 1)

		assert.NoError(t, err)
		assert.Equal(t, []string{"responses", "fields", "survey"}, order)

		published := publisher.GetPublishedEvents()
		assert.Len(t, published, 1)
		assert.Equal(t, events.EventSurveyDeleted, published[0].Type)
	})

	t.Run("missing survey", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.survey.On("GetByID", mock.Anything, uint(404)).Return(nil, gorm.ErrRecordNotFound)

		err := service.Delete(context.Background(), 404, 1)
		assert.ErrorIs(t, err, ErrSurveyNotFound)
	})
}

func TestSurveyService_SetActive(t *testing.T) {
	t.Run("activation publishes event", func(t *testing.T) {
		repo := newMockRepository()
		publisher := events.NewMockEventPublisher(testLogger())
		service := newSurveyServiceForTest(repo, publisher)

		survey := &models.Survey{ID: 5, Name: "Daily Clinic Report", IsActive: false}
		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.survey.On("GetByID", mock.Anything, uint(5)).Return(survey, nil)
		repo.survey.On("Update", mock.Anything, mock.Anything).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		expectSurveyReload(repo, survey)

		_, err := service.SetActive(context.Background(), 5, true, 1)

		assert.NoError(t, err)
		published := publisher.GetPublishedEvents()
		assert.Len(t, published, 1)
		assert.Equal(t, events.EventSurveyPublished, published[0].Type)
	})

	t.Run("deactivation publishes nothing", func(t *testing.T) {
		repo := newMockRepository()
		publisher := events.NewMockEventPublisher(testLogger())
		service := newSurveyServiceForTest(repo, publisher)

		survey := &models.Survey{ID: 5, Name: "Daily Clinic Report", IsActive: true}
		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.survey.On("GetByID", mock.Anything, uint(5)).Return(survey, nil)
		repo.survey.On("Update", mock.Anything, mock.Anything).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
		expectSurveyReload(repo, survey)

		_, err := service.SetActive(context.Background(), 5, false, 1)

		assert.NoError(t, err)
		assert.Empty(t, publisher.GetPublishedEvents())
	})
}

func TestSurveyService_List(t *testing.T) {
	t.Run("admin lists through repository filters", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.survey.On("List", mock.Anything, mock.MatchedBy(func(f repositories.SurveyFilters) bool {
			return f.Limit == 50
		})).Return([]*models.Survey{{ID: 1}, {ID: 2}}, int64(2), nil)

		result, err := service.List(context.Background(), repositories.SurveyFilters{}, 1)

		assert.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
		assert.Len(t, result.Surveys, 2)
	})

	t.Run("employee gets scoped visible list", func(t *testing.T) {
		repo := newMockRepository()
		service := newSurveyServiceForTest(repo, events.NewMockEventPublisher(testLogger()))

		repo.user.On("GetByID", mock.Anything, uint(2)).Return(employeeUser(2, 3), nil)
		repo.org.On("GetHealthAdmin", mock.Anything, uint(3)).Return(&models.HealthAdministration{ID: 3, GovernorateID: 7}, nil)
		repo.survey.On("ListByGovernorate", mock.Anything, uint(7), true).Return([]*models.Survey{{ID: 5, IsActive: true}}, nil)
		repo.user.On("GetGrantedSurveys", mock.Anything, uint(2), true).Return([]*models.Survey{}, nil)

		result, err := service.List(context.Background(), repositories.SurveyFilters{}, 2)

		assert.NoError(t, err)
		assert.Len(t, result.Surveys, 1)
		assert.Equal(t, uint(5), result.Surveys[0].ID)
		repo.survey.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}
