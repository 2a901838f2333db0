package repositories

import (
	"context"

	"github.com/moh-surveys/survey-service/internal/models"
)

// UserRepository covers users, the governorate_admin binding relation and the
// per-user survey grant allow-list.
type UserRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	UsernameExists(ctx context.Context, username string, excludeID *uint) (bool, error)

	// Governorate admin binding
	BindGovernorate(ctx context.Context, userID, governorateID uint) error
	UnbindGovernorate(ctx context.Context, userID uint) error
	GetGovernorateBinding(ctx context.Context, userID uint) (*models.GovernorateAdmin, error)

	// Survey grants (explicit allow-list, replaced wholesale)
	ReplaceSurveyGrants(ctx context.Context, userID uint, surveyIDs []uint) error
	GetGrantedSurveys(ctx context.Context, userID uint, activeOnly bool) ([]*models.Survey, error)

	// Activity tracking
	TouchLastLogin(ctx context.Context, userID uint) error
	TouchLastActivity(ctx context.Context, userID uint) error
}
