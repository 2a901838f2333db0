package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of survey domain events
type EventType string

const (
	// Survey lifecycle events
	EventSurveyPublished EventType = "survey.published"
	EventSurveyDeleted   EventType = "survey.deleted"

	// Response events
	EventResponseCompleted EventType = "response.completed"
	EventAnswerCorrected   EventType = "response.answer_corrected"
)

// SurveyEvent is the base event structure for all survey domain events
type SurveyEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Survey lifecycle event payloads

type SurveyPublishedEvent struct {
	SurveyID       uint   `json:"survey_id"`
	SurveyName     string `json:"survey_name"`
	GovernorateIDs []uint `json:"governorate_ids"`
	CreatorID      uint   `json:"creator_id"`
}

type SurveyDeletedEvent struct {
	SurveyID   uint   `json:"survey_id"`
	SurveyName string `json:"survey_name"`
	DeletedBy  uint   `json:"deleted_by"`
}

// Response event payloads

type ResponseCompletedEvent struct {
	ResponseID    uint      `json:"response_id"`
	SurveyID      uint      `json:"survey_id"`
	UserID        uint      `json:"user_id"`
	HealthAdminID uint      `json:"health_admin_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
	AnswerCount   int       `json:"answer_count"`
}

type AnswerCorrectedEvent struct {
	ResponseID  uint   `json:"response_id"`
	SurveyID    uint   `json:"survey_id"`
	FieldID     uint   `json:"field_id"`
	CorrectedBy uint   `json:"corrected_by"`
	OldValue    string `json:"old_value"`
	NewValue    string `json:"new_value"`
}

// Event factory functions

func NewSurveyPublishedEvent(surveyID uint, name string, governorateIDs []uint, creatorID uint) *SurveyEvent {
	return newSurveyEvent(EventSurveyPublished, SurveyPublishedEvent{
		SurveyID:       surveyID,
		SurveyName:     name,
		GovernorateIDs: governorateIDs,
		CreatorID:      creatorID,
	})
}

func NewSurveyDeletedEvent(surveyID uint, name string, deletedBy uint) *SurveyEvent {
	return newSurveyEvent(EventSurveyDeleted, SurveyDeletedEvent{
		SurveyID:   surveyID,
		SurveyName: name,
		DeletedBy:  deletedBy,
	})
}

func NewResponseCompletedEvent(responseID, surveyID, userID, healthAdminID uint, submittedAt time.Time, answerCount int) *SurveyEvent {
	return newSurveyEvent(EventResponseCompleted, ResponseCompletedEvent{
		ResponseID:    responseID,
		SurveyID:      surveyID,
		UserID:        userID,
		HealthAdminID: healthAdminID,
		SubmittedAt:   submittedAt,
		AnswerCount:   answerCount,
	})
}

func NewAnswerCorrectedEvent(responseID, surveyID, fieldID, correctedBy uint, oldValue, newValue string) *SurveyEvent {
	return newSurveyEvent(EventAnswerCorrected, AnswerCorrectedEvent{
		ResponseID:  responseID,
		SurveyID:    surveyID,
		FieldID:     fieldID,
		CorrectedBy: correctedBy,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

func newSurveyEvent(eventType EventType, data interface{}) *SurveyEvent {
	return &SurveyEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    "survey-service",
		Version:   "1.0",
		Data:      data,
	}
}
