package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/moh-surveys/survey-service/internal/models"
)

// Validator wraps the struct-tag validator together with the survey field
// rules that cannot be expressed as tags.
type Validator struct {
	structValidator *validator.Validate
	fieldValidator  *FieldValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		fieldValidator:  NewFieldValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Field returns the survey field validator
func (v *Validator) Field() *FieldValidator {
	return v.fieldValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("field_type", validateFieldType)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("audit_action", validateAuditAction)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions

func validateFieldType(fl validator.FieldLevel) bool {
	validTypes := []models.FieldType{
		models.FieldText,
		models.FieldNumber,
		models.FieldDropdown,
		models.FieldCheckbox,
		models.FieldDate,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleAdmin,
		models.RoleGovernorateAdmin,
		models.RoleEmployee,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

func validateAuditAction(fl validator.FieldLevel) bool {
	validActions := []models.AuditAction{
		models.AuditInsert,
		models.AuditUpdate,
		models.AuditDelete,
	}

	value := fl.Field().String()
	for _, validAction := range validActions {
		if string(validAction) == value {
			return true
		}
	}
	return false
}
