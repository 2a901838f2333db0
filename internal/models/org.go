package models

type Governorate struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;not null;size:200" validate:"required,min=1,max=200"`
	Description string `json:"description" gorm:"type:text" validate:"max=1000"`

	// Relations
	HealthAdmins []HealthAdministration `json:"health_admins,omitempty" gorm:"foreignKey:GovernorateID"`
}

func (Governorate) TableName() string {
	return "governorates"
}

// HealthAdministration is the sub-unit of a governorate that employees and
// responses are scoped to. Name is unique within its governorate.
type HealthAdministration struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	Name          string `json:"name" gorm:"not null;size:200;uniqueIndex:idx_health_admin_name_gov" validate:"required,min=1,max=200"`
	Description   string `json:"description" gorm:"type:text" validate:"max=1000"`
	GovernorateID uint   `json:"governorate_id" gorm:"not null;index;uniqueIndex:idx_health_admin_name_gov" validate:"required"`

	// Relations
	Governorate Governorate `json:"governorate,omitempty" gorm:"foreignKey:GovernorateID"`
}

func (HealthAdministration) TableName() string {
	return "health_administrations"
}
