package postgres

import (
	"context"
	"time"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

// ===== BASIC CRUD =====

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username":        user.Username,
			"role":            user.Role,
			"health_admin_id": user.HealthAdminID,
			"updated_at":      time.Now(),
		}).Error
}

func (u *UserPostgreSQL) Delete(ctx context.Context, id uint) error {
	return u.db.WithContext(ctx).Delete(&models.User{}, id).Error
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).
		Preload("HealthAdmin").
		Preload("HealthAdmin.Governorate").
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).
		Preload("HealthAdmin").
		Preload("HealthAdmin.Governorate").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	query := u.db.WithContext(ctx).Model(&models.User{})

	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.HealthAdminID != nil {
		query = query.Where("health_admin_id = ?", *filters.HealthAdminID)
	}
	if filters.GovernorateID != nil {
		query = query.
			Joins("JOIN health_administrations ha ON users.health_admin_id = ha.id").
			Where("ha.governorate_id = ?", *filters.GovernorateID)
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

	var users []*models.User
	err := query.
		Preload("HealthAdmin").
		Preload("HealthAdmin.Governorate").
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (u *UserPostgreSQL) UsernameExists(ctx context.Context, username string, excludeID *uint) (bool, error) {
	query := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

// ===== GOVERNORATE ADMIN BINDING =====

func (u *UserPostgreSQL) BindGovernorate(ctx context.Context, userID, governorateID uint) error {
	// One binding per user: replace any existing row.
	if err := u.UnbindGovernorate(ctx, userID); err != nil {
		return err
	}
	return u.db.WithContext(ctx).Create(&models.GovernorateAdmin{
		UserID:        userID,
		GovernorateID: governorateID,
	}).Error
}

func (u *UserPostgreSQL) UnbindGovernorate(ctx context.Context, userID uint) error {
	return u.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.GovernorateAdmin{}).Error
}

func (u *UserPostgreSQL) GetGovernorateBinding(ctx context.Context, userID uint) (*models.GovernorateAdmin, error) {
	var binding models.GovernorateAdmin
	err := u.db.WithContext(ctx).
		Preload("Governorate").
		Where("user_id = ?", userID).
		First(&binding).Error
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

// ===== SURVEY GRANTS =====

// ReplaceSurveyGrants swaps the user's entire allow-list: delete all current
// grants, insert the new set.
func (u *UserPostgreSQL) ReplaceSurveyGrants(ctx context.Context, userID uint, surveyIDs []uint) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserSurveyGrant{}).Error; err != nil {
			return err
		}
		if len(surveyIDs) == 0 {
			return nil
		}
		grants := make([]models.UserSurveyGrant, 0, len(surveyIDs))
		for _, sid := range surveyIDs {
			grants = append(grants, models.UserSurveyGrant{UserID: userID, SurveyID: sid})
		}
		return tx.Create(&grants).Error
	})
}

func (u *UserPostgreSQL) GetGrantedSurveys(ctx context.Context, userID uint, activeOnly bool) ([]*models.Survey, error) {
	query := u.db.WithContext(ctx).
		Model(&models.Survey{}).
		Joins("JOIN user_survey_grants usg ON usg.survey_id = surveys.id").
		Where("usg.user_id = ?", userID)
	if activeOnly {
		query = query.Where("surveys.is_active = ?", true)
	}

	var surveys []*models.Survey
	err := query.Order("surveys.name ASC").Find(&surveys).Error
	return surveys, err
}

// ===== ACTIVITY TRACKING =====

func (u *UserPostgreSQL) TouchLastLogin(ctx context.Context, userID uint) error {
	return u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", time.Now()).Error
}

func (u *UserPostgreSQL) TouchLastActivity(ctx context.Context, userID uint) error {
	return u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_activity_at", time.Now()).Error
}
