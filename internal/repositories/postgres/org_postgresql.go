package postgres

import (
	"context"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"gorm.io/gorm"
)

type OrgPostgreSQL struct {
	db *gorm.DB
}

func NewOrgPostgreSQL(db *gorm.DB) repositories.OrgRepository {
	return &OrgPostgreSQL{db: db}
}

// ===== GOVERNORATES =====

func (o *OrgPostgreSQL) CreateGovernorate(ctx context.Context, gov *models.Governorate) error {
	return o.db.WithContext(ctx).Create(gov).Error
}

func (o *OrgPostgreSQL) UpdateGovernorate(ctx context.Context, gov *models.Governorate) error {
	return o.db.WithContext(ctx).
		Model(&models.Governorate{}).
		Where("id = ?", gov.ID).
		Updates(map[string]interface{}{
			"name":        gov.Name,
			"description": gov.Description,
		}).Error
}

func (o *OrgPostgreSQL) DeleteGovernorate(ctx context.Context, id uint) error {
	return o.db.WithContext(ctx).Delete(&models.Governorate{}, id).Error
}

func (o *OrgPostgreSQL) GetGovernorate(ctx context.Context, id uint) (*models.Governorate, error) {
	var gov models.Governorate
	if err := o.db.WithContext(ctx).First(&gov, id).Error; err != nil {
		return nil, err
	}
	return &gov, nil
}

func (o *OrgPostgreSQL) ListGovernorates(ctx context.Context) ([]*models.Governorate, error) {
	var govs []*models.Governorate
	err := o.db.WithContext(ctx).Order("name ASC").Find(&govs).Error
	return govs, err
}

// ===== HEALTH ADMINISTRATIONS =====

func (o *OrgPostgreSQL) CreateHealthAdmin(ctx context.Context, ha *models.HealthAdministration) error {
	return o.db.WithContext(ctx).Create(ha).Error
}

func (o *OrgPostgreSQL) UpdateHealthAdmin(ctx context.Context, ha *models.HealthAdministration) error {
	return o.db.WithContext(ctx).
		Model(&models.HealthAdministration{}).
		Where("id = ?", ha.ID).
		Updates(map[string]interface{}{
			"name":           ha.Name,
			"description":    ha.Description,
			"governorate_id": ha.GovernorateID,
		}).Error
}

func (o *OrgPostgreSQL) DeleteHealthAdmin(ctx context.Context, id uint) error {
	return o.db.WithContext(ctx).Delete(&models.HealthAdministration{}, id).Error
}

func (o *OrgPostgreSQL) GetHealthAdmin(ctx context.Context, id uint) (*models.HealthAdministration, error) {
	var ha models.HealthAdministration
	err := o.db.WithContext(ctx).
		Preload("Governorate").
		First(&ha, id).Error
	if err != nil {
		return nil, err
	}
	return &ha, nil
}

func (o *OrgPostgreSQL) ListHealthAdmins(ctx context.Context, governorateID *uint) ([]*models.HealthAdministration, error) {
	query := o.db.WithContext(ctx).Preload("Governorate").Order("name ASC")
	if governorateID != nil {
		query = query.Where("governorate_id = ?", *governorateID)
	}

	var admins []*models.HealthAdministration
	err := query.Find(&admins).Error
	return admins, err
}

// ===== UNIQUENESS AND INTEGRITY CHECKS =====

func (o *OrgPostgreSQL) GovernorateNameExists(ctx context.Context, name string, excludeID *uint) (bool, error) {
	query := o.db.WithContext(ctx).
		Model(&models.Governorate{}).
		Where("name = ?", name)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (o *OrgPostgreSQL) HealthAdminNameExists(ctx context.Context, name string, governorateID uint, excludeID *uint) (bool, error) {
	query := o.db.WithContext(ctx).
		Model(&models.HealthAdministration{}).
		Where("name = ? AND governorate_id = ?", name, governorateID)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (o *OrgPostgreSQL) GovernorateHasHealthAdmins(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := o.db.WithContext(ctx).
		Model(&models.HealthAdministration{}).
		Where("governorate_id = ?", id).
		Count(&count).Error
	return count > 0, err
}

func (o *OrgPostgreSQL) HealthAdminHasUsers(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := o.db.WithContext(ctx).
		Model(&models.User{}).
		Where("health_admin_id = ?", id).
		Count(&count).Error
	return count > 0, err
}
