package models

import (
	"time"
)

// Response is one instance of an employee filling out a survey. HealthAdminID
// captures the acting user's scope at submission time and is never updated
// afterwards; scoped reporting joins through it.
//
// A partial unique index on (user_id, survey_id, submitted day) over completed
// rows enforces one completion per user, survey and UTC day. It is created
// alongside AutoMigrate because gorm tags cannot express it.
type Response struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	SurveyID      uint      `json:"survey_id" gorm:"not null;index"`
	UserID        uint      `json:"user_id" gorm:"not null;index"`
	HealthAdminID uint      `json:"health_admin_id" gorm:"not null;index"`
	IsCompleted   bool      `json:"is_completed" gorm:"default:false;index"`
	SubmittedAt   time.Time `json:"submitted_at" gorm:"not null;index"`

	// Relations
	Survey      Survey               `json:"survey,omitempty" gorm:"foreignKey:SurveyID"`
	User        User                 `json:"user,omitempty" gorm:"foreignKey:UserID"`
	HealthAdmin HealthAdministration `json:"health_admin,omitempty" gorm:"foreignKey:HealthAdminID"`
	Details     []ResponseDetail     `json:"details,omitempty" gorm:"foreignKey:ResponseID"`
}

func (Response) TableName() string {
	return "responses"
}

// ResponseDetail is one answer to one field. The value is stored as opaque
// text regardless of field type; interpretation joins to the field's current
// type at read time, so answers survive later type changes of their field.
type ResponseDetail struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ResponseID  uint   `json:"response_id" gorm:"not null;index"`
	FieldID     uint   `json:"field_id" gorm:"not null;index"`
	AnswerValue string `json:"answer_value" gorm:"type:text"`

	// Relations
	Field SurveyField `json:"field,omitempty" gorm:"foreignKey:FieldID"`
}

func (ResponseDetail) TableName() string {
	return "response_details"
}
