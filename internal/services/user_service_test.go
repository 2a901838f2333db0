package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/validator"
)

func newUserServiceForTest(repo *MockRepository) UserService {
	logger := testLogger()
	return NewUserService(repo, NewAuditService(repo, logger), logger, validator.New())
}

func TestUserService_Create(t *testing.T) {
	t.Run("employee is bound to a health administration", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.org.On("GetHealthAdmin", mock.Anything, uint(4)).Return(&models.HealthAdministration{ID: 4, GovernorateID: 7}, nil)
		repo.user.On("UsernameExists", mock.Anything, "clinic.worker", (*uint)(nil)).Return(false, nil)
		repo.user.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "clinic.worker" &&
				u.Role == models.RoleEmployee &&
				u.HealthAdminID != nil && *u.HealthAdminID == 4 &&
				u.PasswordHash != "" && u.PasswordHash != "s3cret-pass"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 3
		}).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		user, err := service.Create(context.Background(), &CreateUserRequest{
			Username:      "clinic.worker",
			Password:      "s3cret-pass",
			Role:          models.RoleEmployee,
			HealthAdminID: uintPtr(4),
		}, 1)

		assert.NoError(t, err)
		assert.Equal(t, uint(3), user.ID)
		repo.user.AssertNotCalled(t, "BindGovernorate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("employee without health administration is rejected", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)

		_, err := service.Create(context.Background(), &CreateUserRequest{
			Username: "stray.worker",
			Password: "s3cret-pass",
			Role:     models.RoleEmployee,
		}, 1)

		assert.ErrorIs(t, err, ErrEmployeeNeedsAdmin)
	})

	t.Run("governorate admin gets a governorate binding", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.org.On("GetGovernorate", mock.Anything, uint(7)).Return(&models.Governorate{ID: 7}, nil)
		repo.user.On("UsernameExists", mock.Anything, "gov.admin", (*uint)(nil)).Return(false, nil)
		repo.user.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 2
		}).Return(nil)
		repo.user.On("BindGovernorate", mock.Anything, uint(2), uint(7)).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		user, err := service.Create(context.Background(), &CreateUserRequest{
			Username:      "gov.admin",
			Password:      "s3cret-pass",
			Role:          models.RoleGovernorateAdmin,
			GovernorateID: uintPtr(7),
		}, 1)

		assert.NoError(t, err)
		assert.Nil(t, user.HealthAdminID)
		repo.user.AssertExpectations(t)
	})

	t.Run("governorate admin without governorate is rejected", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)

		_, err := service.Create(context.Background(), &CreateUserRequest{
			Username: "gov.admin",
			Password: "s3cret-pass",
			Role:     models.RoleGovernorateAdmin,
		}, 1)

		assert.ErrorIs(t, err, ErrGovAdminNeedsBinding)
	})

	t.Run("taken username", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.user.On("UsernameExists", mock.Anything, "taken", (*uint)(nil)).Return(true, nil)

		_, err := service.Create(context.Background(), &CreateUserRequest{
			Username: "taken",
			Password: "s3cret-pass",
			Role:     models.RoleAdmin,
		}, 1)

		assert.ErrorIs(t, err, ErrUsernameTaken)
		assert.True(t, IsConflict(err))
	})

	t.Run("non-admin actor", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(3)).Return(employeeUser(3, 4), nil)

		_, err := service.Create(context.Background(), &CreateUserRequest{
			Username: "whoever",
			Password: "s3cret-pass",
			Role:     models.RoleAdmin,
		}, 3)

		assert.True(t, IsUnauthorized(err))
	})
}

func TestUserService_Update(t *testing.T) {
	t.Run("role change to governorate admin rebinds", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.user.On("GetByID", mock.Anything, uint(3)).Return(employeeUser(3, 4), nil)
		repo.org.On("GetGovernorate", mock.Anything, uint(7)).Return(&models.Governorate{ID: 7}, nil)
		repo.user.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Role == models.RoleGovernorateAdmin && u.HealthAdminID == nil
		})).Return(nil)
		repo.user.On("BindGovernorate", mock.Anything, uint(3), uint(7)).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		role := models.RoleGovernorateAdmin
		user, err := service.Update(context.Background(), 3, &UpdateUserRequest{
			Role:          &role,
			GovernorateID: uintPtr(7),
		}, 1)

		assert.NoError(t, err)
		assert.Equal(t, models.RoleGovernorateAdmin, user.Role)
		repo.user.AssertExpectations(t)
	})

	t.Run("role change away from governorate admin unbinds", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.user.On("GetByID", mock.Anything, uint(2)).Return(govAdminUser(2), nil)
		repo.user.On("Update", mock.Anything, mock.Anything).Return(nil)
		repo.user.On("UnbindGovernorate", mock.Anything, uint(2)).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		role := models.RoleAdmin
		_, err := service.Update(context.Background(), 2, &UpdateUserRequest{Role: &role}, 1)

		assert.NoError(t, err)
		repo.user.AssertCalled(t, "UnbindGovernorate", mock.Anything, uint(2))
	})

	t.Run("username change re-checks uniqueness", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.user.On("GetByID", mock.Anything, uint(3)).Return(employeeUser(3, 4), nil)
		repo.org.On("GetHealthAdmin", mock.Anything, uint(4)).Return(&models.HealthAdministration{ID: 4, GovernorateID: 7}, nil)
		repo.user.On("UsernameExists", mock.Anything, "clerk2", mock.MatchedBy(func(exclude *uint) bool {
			return exclude != nil && *exclude == 3
		})).Return(false, nil)
		repo.user.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "clerk2"
		})).Return(nil)
		repo.user.On("UnbindGovernorate", mock.Anything, uint(3)).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		user, err := service.Update(context.Background(), 3, &UpdateUserRequest{
			Username: stringPtr("clerk2"),
		}, 1)

		assert.NoError(t, err)
		assert.Equal(t, "clerk2", user.Username)
		repo.user.AssertExpectations(t)
	})

	t.Run("taken username blocks the update", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.user.On("GetByID", mock.Anything, uint(3)).Return(employeeUser(3, 4), nil)
		repo.org.On("GetHealthAdmin", mock.Anything, uint(4)).Return(&models.HealthAdministration{ID: 4, GovernorateID: 7}, nil)
		repo.user.On("UsernameExists", mock.Anything, "admin", mock.Anything).Return(true, nil)

		_, err := service.Update(context.Background(), 3, &UpdateUserRequest{
			Username: stringPtr("admin"),
		}, 1)

		assert.ErrorIs(t, err, ErrUsernameTaken)
		assert.True(t, IsConflict(err))
		repo.user.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestUserService_Delete(t *testing.T) {
	t.Run("self deletion is a business rule violation", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)

		err := service.Delete(context.Background(), 1, 1)

		assert.Error(t, err)
		assert.True(t, IsBusinessRule(err))
	})

	t.Run("deletion clears bindings and grants", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.user.On("GetByID", mock.Anything, uint(3)).Return(employeeUser(3, 4), nil)
		repo.user.On("UnbindGovernorate", mock.Anything, uint(3)).Return(nil)
		repo.user.On("ReplaceSurveyGrants", mock.Anything, uint(3), []uint(nil)).Return(nil)
		repo.user.On("Delete", mock.Anything, uint(3)).Return(nil)
		repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		err := service.Delete(context.Background(), 3, 1)

		assert.NoError(t, err)
		repo.user.AssertExpectations(t)
		repo.audit.AssertNumberOfCalls(t, "Create", 1)
	})
}

func TestUserService_List(t *testing.T) {
	t.Run("governorate admin is scoped to own governorate", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(2)).Return(govAdminUser(2), nil)
		repo.user.On("GetGovernorateBinding", mock.Anything, uint(2)).Return(&models.GovernorateAdmin{UserID: 2, GovernorateID: 7}, nil)
		repo.user.On("List", mock.Anything, mock.MatchedBy(func(f repositories.UserFilters) bool {
			return f.GovernorateID != nil && *f.GovernorateID == 7
		})).Return([]*models.User{}, int64(0), nil)

		_, err := service.List(context.Background(), repositories.UserFilters{}, 2)
		assert.NoError(t, err)
	})

	t.Run("employee cannot list users", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByID", mock.Anything, uint(3)).Return(employeeUser(3, 4), nil)

		_, err := service.List(context.Background(), repositories.UserFilters{}, 3)
		assert.True(t, IsUnauthorized(err))
	})
}

func TestUserService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	assert.NoError(t, err)

	t.Run("valid credentials log in and touch activity", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByUsername", mock.Anything, "clinic.worker").Return(&models.User{
			ID:           3,
			Username:     "clinic.worker",
			PasswordHash: string(hash),
			Role:         models.RoleEmployee,
		}, nil)
		repo.user.On("TouchLastLogin", mock.Anything, uint(3)).Return(nil)

		user, err := service.Authenticate(context.Background(), "clinic.worker", "s3cret-pass")

		assert.NoError(t, err)
		assert.Equal(t, uint(3), user.ID)
		repo.user.AssertCalled(t, "TouchLastLogin", mock.Anything, uint(3))
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByUsername", mock.Anything, "clinic.worker").Return(&models.User{
			ID:           3,
			PasswordHash: string(hash),
		}, nil)

		_, err := service.Authenticate(context.Background(), "clinic.worker", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown username gets the same error", func(t *testing.T) {
		repo := newMockRepository()
		service := newUserServiceForTest(repo)

		repo.user.On("GetByUsername", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)

		_, err := service.Authenticate(context.Background(), "ghost", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_TouchActivity(t *testing.T) {
	repo := newMockRepository()
	service := newUserServiceForTest(repo)

	repo.user.On("TouchLastActivity", mock.Anything, uint(3)).Return(nil)
	service.TouchActivity(context.Background(), 3)
	repo.user.AssertCalled(t, "TouchLastActivity", mock.Anything, uint(3))

	// A storage failure only logs; there is nothing for the caller to handle.
	repo.user.On("TouchLastActivity", mock.Anything, uint(4)).Return(gorm.ErrInvalidDB)
	service.TouchActivity(context.Background(), 4)
}
