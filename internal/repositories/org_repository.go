package repositories

import (
	"context"

	"github.com/moh-surveys/survey-service/internal/models"
)

// OrgRepository covers the organizational hierarchy: governorates and the
// health administrations under them.
type OrgRepository interface {
	// Governorates
	CreateGovernorate(ctx context.Context, gov *models.Governorate) error
	UpdateGovernorate(ctx context.Context, gov *models.Governorate) error
	DeleteGovernorate(ctx context.Context, id uint) error
	GetGovernorate(ctx context.Context, id uint) (*models.Governorate, error)
	ListGovernorates(ctx context.Context) ([]*models.Governorate, error)

	// Health administrations
	CreateHealthAdmin(ctx context.Context, ha *models.HealthAdministration) error
	UpdateHealthAdmin(ctx context.Context, ha *models.HealthAdministration) error
	DeleteHealthAdmin(ctx context.Context, id uint) error
	GetHealthAdmin(ctx context.Context, id uint) (*models.HealthAdministration, error)
	ListHealthAdmins(ctx context.Context, governorateID *uint) ([]*models.HealthAdministration, error)

	// Uniqueness and integrity checks
	GovernorateNameExists(ctx context.Context, name string, excludeID *uint) (bool, error)
	HealthAdminNameExists(ctx context.Context, name string, governorateID uint, excludeID *uint) (bool, error)
	GovernorateHasHealthAdmins(ctx context.Context, id uint) (bool, error)
	HealthAdminHasUsers(ctx context.Context, id uint) (bool, error)
}
