package validator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moh-surveys/survey-service/internal/models"
)

// FieldValidator validates survey field definitions and submitted answer
// values against the field's declared type.
type FieldValidator struct{}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

// ValidateDefinition checks a field definition beyond what struct tags cover.
func (fv *FieldValidator) ValidateDefinition(field *models.SurveyField) error {
	switch field.Type {
	case models.FieldDropdown:
		return fv.validateDropdownDefinition(field)
	case models.FieldText, models.FieldNumber, models.FieldCheckbox, models.FieldDate:
		return nil
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type)
	}
}

func (fv *FieldValidator) validateDropdownDefinition(field *models.SurveyField) error {
	if len(field.Options) == 0 {
		return fmt.Errorf("dropdown field '%s' must have at least one option", field.Label)
	}

	seen := make(map[string]bool, len(field.Options))
	for _, opt := range field.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("dropdown field '%s' has an empty option", field.Label)
		}
		if seen[opt] {
			return fmt.Errorf("dropdown field '%s' has duplicate option '%s'", field.Label, opt)
		}
		seen[opt] = true
	}

	return nil
}

// ValidateAnswer checks a submitted answer value against the field type.
// Empty values are allowed here; required-field enforcement happens in the
// response service where it can report all missing labels at once.
func (fv *FieldValidator) ValidateAnswer(field *models.SurveyField, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	switch field.Type {
	case models.FieldText:
		return nil
	case models.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("field '%s' expects a numeric value", field.Label)
		}
		return nil
	case models.FieldDropdown:
		for _, opt := range field.Options {
			if opt == value {
				return nil
			}
		}
		return fmt.Errorf("field '%s' does not allow value '%s'", field.Label, value)
	case models.FieldCheckbox:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("field '%s' expects true or false", field.Label)
		}
		return nil
	case models.FieldDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("field '%s' expects a date in YYYY-MM-DD format", field.Label)
		}
		return nil
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type)
	}
}
