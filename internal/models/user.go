package models

import (
	"time"
)

type UserRole string

const (
	RoleAdmin            UserRole = "admin"
	RoleGovernorateAdmin UserRole = "governorate_admin"
	RoleEmployee         UserRole = "employee"
)

type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	Username     string   `json:"username" gorm:"uniqueIndex;not null;size:100" validate:"required,min=1,max=100"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Role         UserRole `json:"role" gorm:"not null;size:30;index" validate:"required,user_role"`

	// HealthAdminID is set only for employees; their governorate is derived
	// through the health administration.
	HealthAdminID *uint `json:"health_admin_id" gorm:"index"`

	LastLoginAt    *time.Time `json:"last_login_at"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	HealthAdmin *HealthAdministration `json:"health_admin,omitempty" gorm:"foreignKey:HealthAdminID"`
}

func (User) TableName() string {
	return "users"
}

// GovernorateAdmin binds a governorate_admin user to exactly one governorate.
type GovernorateAdmin struct {
	ID            uint `json:"id" gorm:"primaryKey"`
	UserID        uint `json:"user_id" gorm:"uniqueIndex;not null"`
	GovernorateID uint `json:"governorate_id" gorm:"not null;index"`

	// Relations
	User        User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Governorate Governorate `json:"governorate,omitempty" gorm:"foreignKey:GovernorateID"`
}

func (GovernorateAdmin) TableName() string {
	return "governorate_admins"
}

// UserSurveyGrant is an explicit per-user allow-list entry that supplements
// the governorate-based survey visibility rule. Grants are strictly additive.
type UserSurveyGrant struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	UserID   uint `json:"user_id" gorm:"not null;index;uniqueIndex:idx_user_survey_grant"`
	SurveyID uint `json:"survey_id" gorm:"not null;index;uniqueIndex:idx_user_survey_grant"`
}

func (UserSurveyGrant) TableName() string {
	return "user_survey_grants"
}
