package models

import (
	"time"

	"gorm.io/datatypes"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDropdown FieldType = "dropdown"
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
)

type Survey struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedBy uint      `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Fields       []SurveyField `json:"fields,omitempty" gorm:"foreignKey:SurveyID"`
	Governorates []Governorate `json:"governorates,omitempty" gorm:"many2many:survey_governorates"`
	Creator      User          `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`

	// Computed fields (not stored)
	FieldCount    int `json:"field_count" gorm:"-"`
	ResponseCount int `json:"response_count" gorm:"-"`
}

func (Survey) TableName() string {
	return "surveys"
}

// SurveyField is one question of a survey. Options is a JSON array of strings
// and is populated only for dropdown fields. FieldOrder defines display and
// storage order; it is assigned from the position of the field in the
// submitted field list and is unique within a survey.
type SurveyField struct {
	ID         uint                       `json:"id" gorm:"primaryKey"`
	SurveyID   uint                       `json:"survey_id" gorm:"not null;index"`
	Label      string                     `json:"label" gorm:"not null;size:300" validate:"required,min=1,max=300"`
	Type       FieldType                  `json:"type" gorm:"not null;size:20" validate:"required,field_type"`
	Options    datatypes.JSONSlice[string] `json:"options"`
	IsRequired bool                       `json:"is_required" gorm:"default:false"`
	FieldOrder int                        `json:"field_order" gorm:"not null"`
}

func (SurveyField) TableName() string {
	return "survey_fields"
}
