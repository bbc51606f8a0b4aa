package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field-level validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation failures
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// ToValidationErrors converts go-playground validator errors into our
// structured form.
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var errors ValidationErrors
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			errors = append(errors, ValidationError{
				Field:   strings.ToLower(fe.Field()),
				Message: messageForTag(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
		return errors
	}

	return ValidationErrors{{
		Field:   "",
		Message: err.Error(),
		Rule:    "unknown",
	}}
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "course_code":
		return "must be an uppercase course code"
	case "exam_date":
		return "must be a date in YYYY-MM-DD format"
	case "exam_duration":
		return "must be between 15 and 600 minutes"
	case "user_role":
		return "must be a valid role"
	default:
		return fmt.Sprintf("failed validation rule %s", fe.Tag())
	}
}

// Validator wraps struct validation and business rule validation
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all custom rules registered
func New() *Validator {
	return &Validator{
		validate: newValidate(),
		business: NewBusinessValidator(),
	}
}

// Validate validates struct tags and returns structured errors
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator returns the business rule validator
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}
