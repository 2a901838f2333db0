package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
)

// ===== REPOSITORY MOCKS =====

type MockOrgRepository struct {
	mock.Mock
}

func (m *MockOrgRepository) CreateGovernorate(ctx context.Context, gov *models.Governorate) error {
	args := m.Called(ctx, gov)
	return args.Error(0)
}

func (m *MockOrgRepository) UpdateGovernorate(ctx context.Context, gov *models.Governorate) error {
	args := m.Called(ctx, gov)
	return args.Error(0)
}

func (m *MockOrgRepository) DeleteGovernorate(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrgRepository) GetGovernorate(ctx context.Context, id uint) (*models.Governorate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Governorate), args.Error(1)
}

func (m *MockOrgRepository) ListGovernorates(ctx context.Context) ([]*models.Governorate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Governorate), args.Error(1)
}

func (m *MockOrgRepository) CreateHealthAdmin(ctx context.Context, ha *models.HealthAdministration) error {
	args := m.Called(ctx, ha)
	return args.Error(0)
}

func (m *MockOrgRepository) UpdateHealthAdmin(ctx context.Context, ha *models.HealthAdministration) error {
	args := m.Called(ctx, ha)
	return args.Error(0)
}

func (m *MockOrgRepository) DeleteHealthAdmin(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrgRepository) GetHealthAdmin(ctx context.Context, id uint) (*models.HealthAdministration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HealthAdministration), args.Error(1)
}

func (m *MockOrgRepository) ListHealthAdmins(ctx context.Context, governorateID *uint) ([]*models.HealthAdministration, error) {
	args := m.Called(ctx, governorateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.HealthAdministration), args.Error(1)
}

func (m *MockOrgRepository) GovernorateNameExists(ctx context.Context, name string, excludeID *uint) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrgRepository) HealthAdminNameExists(ctx context.Context, name string, governorateID uint, excludeID *uint) (bool, error) {
	args := m.Called(ctx, name, governorateID, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrgRepository) GovernorateHasHealthAdmins(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrgRepository) HealthAdminHasUsers(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string, excludeID *uint) (bool, error) {
	args := m.Called(ctx, username, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) BindGovernorate(ctx context.Context, userID, governorateID uint) error {
	args := m.Called(ctx, userID, governorateID)
	return args.Error(0)
}

func (m *MockUserRepository) UnbindGovernorate(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) GetGovernorateBinding(ctx context.Context, userID uint) (*models.GovernorateAdmin, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GovernorateAdmin), args.Error(1)
}

func (m *MockUserRepository) ReplaceSurveyGrants(ctx context.Context, userID uint, surveyIDs []uint) error {
	args := m.Called(ctx, userID, surveyIDs)
	return args.Error(0)
}

func (m *MockUserRepository) GetGrantedSurveys(ctx context.Context, userID uint, activeOnly bool) ([]*models.Survey, error) {
	args := m.Called(ctx, userID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Survey), args.Error(1)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLastActivity(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockSurveyRepository struct {
	mock.Mock
}

func (m *MockSurveyRepository) Create(ctx context.Context, survey *models.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepository) Update(ctx context.Context, survey *models.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepository) GetByID(ctx context.Context, id uint) (*models.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Survey), args.Error(1)
}

func (m *MockSurveyRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Survey), args.Error(1)
}

func (m *MockSurveyRepository) List(ctx context.Context, filters repositories.SurveyFilters) ([]*models.Survey, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.Survey), args.Get(1).(int64), args.Error(2)
}

func (m *MockSurveyRepository) GetStats(ctx context.Context, id uint) (*repositories.SurveyStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.SurveyStats), args.Error(1)
}

func (m *MockSurveyRepository) ListFields(ctx context.Context, surveyID uint) ([]*models.SurveyField, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SurveyField), args.Error(1)
}

func (m *MockSurveyRepository) GetFieldIDs(ctx context.Context, surveyID uint) ([]uint, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockSurveyRepository) CreateField(ctx context.Context, field *models.SurveyField) error {
	args := m.Called(ctx, field)
	return args.Error(0)
}

func (m *MockSurveyRepository) UpdateField(ctx context.Context, field *models.SurveyField) error {
	args := m.Called(ctx, field)
	return args.Error(0)
}

func (m *MockSurveyRepository) DeleteFields(ctx context.Context, fieldIDs []uint) error {
	args := m.Called(ctx, fieldIDs)
	return args.Error(0)
}

func (m *MockSurveyRepository) FieldsWithAnswers(ctx context.Context, fieldIDs []uint) ([]uint, error) {
	args := m.Called(ctx, fieldIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockSurveyRepository) DeleteFieldAnswers(ctx context.Context, fieldIDs []uint) error {
	args := m.Called(ctx, fieldIDs)
	return args.Error(0)
}

func (m *MockSurveyRepository) ReplaceGovernorateLinks(ctx context.Context, surveyID uint, governorateIDs []uint) error {
	args := m.Called(ctx, surveyID, governorateIDs)
	return args.Error(0)
}

func (m *MockSurveyRepository) ListByGovernorate(ctx context.Context, governorateID uint, activeOnly bool) ([]*models.Survey, error) {
	args := m.Called(ctx, governorateID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Survey), args.Error(1)
}

func (m *MockSurveyRepository) DeleteResponseData(ctx context.Context, surveyID uint) error {
	args := m.Called(ctx, surveyID)
	return args.Error(0)
}

func (m *MockSurveyRepository) DeleteSurveyRow(ctx context.Context, surveyID uint) error {
	args := m.Called(ctx, surveyID)
	return args.Error(0)
}

type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) Create(ctx context.Context, response *models.Response) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepository) GetByID(ctx context.Context, id uint) (*models.Response, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Response), args.Error(1)
}

func (m *MockResponseRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Response, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Response), args.Error(1)
}

func (m *MockResponseRepository) List(ctx context.Context, filters repositories.ResponseFilters) ([]*models.Response, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.Response), args.Get(1).(int64), args.Error(2)
}

func (m *MockResponseRepository) CreateDetails(ctx context.Context, details []*models.ResponseDetail) error {
	args := m.Called(ctx, details)
	return args.Error(0)
}

func (m *MockResponseRepository) GetDetails(ctx context.Context, responseID uint) ([]*models.ResponseDetail, error) {
	args := m.Called(ctx, responseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ResponseDetail), args.Error(1)
}

func (m *MockResponseRepository) GetDetail(ctx context.Context, detailID uint) (*models.ResponseDetail, error) {
	args := m.Called(ctx, detailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResponseDetail), args.Error(1)
}

func (m *MockResponseRepository) UpdateDetailValue(ctx context.Context, detailID uint, value string) error {
	args := m.Called(ctx, detailID, value)
	return args.Error(0)
}

func (m *MockResponseRepository) HasCompletedOn(ctx context.Context, userID, surveyID uint, day time.Time) (bool, error) {
	args := m.Called(ctx, userID, surveyID, day)
	return args.Bool(0), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filters repositories.AuditFilters) ([]*models.AuditLogEntry, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.AuditLogEntry), args.Get(1).(int64), args.Error(2)
}

// MockRepository aggregates the entity mocks. WithTx runs the callback
// against the same mock set, so expectations cover both paths.
type MockRepository struct {
	org      *MockOrgRepository
	user     *MockUserRepository
	survey   *MockSurveyRepository
	response *MockResponseRepository
	audit    *MockAuditRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		org:      &MockOrgRepository{},
		user:     &MockUserRepository{},
		survey:   &MockSurveyRepository{},
		response: &MockResponseRepository{},
		audit:    &MockAuditRepository{},
	}
}

func (m *MockRepository) Org() repositories.OrgRepository           { return m.org }
func (m *MockRepository) User() repositories.UserRepository         { return m.user }
func (m *MockRepository) Survey() repositories.SurveyRepository     { return m.survey }
func (m *MockRepository) Response() repositories.ResponseRepository { return m.response }
func (m *MockRepository) Audit() repositories.AuditRepository       { return m.audit }

func (m *MockRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

// ===== CACHE MOCK =====

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheService) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}

// ===== TEST HELPERS =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uintPtr(v uint) *uint       { return &v }
func boolPtr(v bool) *bool       { return &v }
func stringPtr(v string) *string { return &v }

func adminUser(id uint) *models.User {
	return &models.User{ID: id, Username: "admin", Role: models.RoleAdmin}
}

func employeeUser(id, healthAdminID uint) *models.User {
	return &models.User{ID: id, Username: "employee", Role: models.RoleEmployee, HealthAdminID: &healthAdminID}
}

func govAdminUser(id uint) *models.User {
	return &models.User{ID: id, Username: "govadmin", Role: models.RoleGovernorateAdmin}
}
