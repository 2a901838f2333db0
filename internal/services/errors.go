package services

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/moh-surveys/survey-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Governorate specific errors
	ErrGovernorateNotFound  = errors.New("governorate not found")
	ErrGovernorateNameTaken = errors.New("governorate name already exists")
	ErrGovernorateHasAdmins = errors.New("governorate cannot be deleted - has health administrations")

	// Health administration specific errors
	ErrHealthAdminNotFound  = errors.New("health administration not found")
	ErrHealthAdminNameTaken = errors.New("health administration name already exists in this governorate")
	ErrHealthAdminHasUsers  = errors.New("health administration cannot be deleted - has assigned employees")

	// User specific errors
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrInvalidRole          = errors.New("invalid user role")
	ErrEmployeeNeedsAdmin   = errors.New("employee must be assigned to a health administration")
	ErrGovAdminNeedsBinding = errors.New("governorate admin must be bound to a governorate")

	// Survey specific errors
	ErrSurveyNotFound     = errors.New("survey not found")
	ErrSurveyAccessDenied = errors.New("access denied to survey")
	ErrSurveyInactive     = errors.New("survey is not active")
	ErrFieldNotFound      = errors.New("survey field not found")
	ErrFieldInUse         = errors.New("field cannot be removed - has submitted answers")

	// Response specific errors
	ErrResponseNotFound       = errors.New("response not found")
	ErrResponseAccessDenied   = errors.New("access denied to response")
	ErrAlreadyCompletedToday  = errors.New("survey already completed today")
	ErrAnswerNotFound         = errors.New("answer not found in response")
	ErrNoAnswersSubmitted     = errors.New("response must contain at least one answer")
	ErrAnswerFieldMismatch    = errors.New("answer references a field outside this survey")
	ErrEmployeeWithoutScope   = errors.New("employee has no health administration assigned")
	ErrInsufficientPermission = errors.New("insufficient permissions")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     uint   `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// MissingRequiredFieldsError reports every required field a submission left
// unanswered, by label, so the client can show them all at once.
type MissingRequiredFieldsError struct {
	SurveyID uint     `json:"survey_id"`
	Labels   []string `json:"labels"`
}

func (mre *MissingRequiredFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(mre.Labels, ", "))
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGovernorateNotFound) ||
		errors.Is(err, ErrHealthAdminNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrSurveyNotFound) ||
		errors.Is(err, ErrFieldNotFound) ||
		errors.Is(err, ErrResponseNotFound) ||
		errors.Is(err, ErrAnswerNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrSurveyAccessDenied) ||
		errors.Is(err, ErrResponseAccessDenied) ||
		errors.Is(err, ErrInsufficientPermission) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var mre *MissingRequiredFieldsError
	return errors.As(err, &mre)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrGovernorateNameTaken) ||
		errors.Is(err, ErrGovernorateHasAdmins) ||
		errors.Is(err, ErrHealthAdminNameTaken) ||
		errors.Is(err, ErrHealthAdminHasUsers) ||
		errors.Is(err, ErrUsernameTaken) ||
		errors.Is(err, ErrFieldInUse) ||
		errors.Is(err, ErrAlreadyCompletedToday)
}
