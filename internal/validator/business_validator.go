package validator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/techcadd/exam-admin-service/internal/models"
)

var courseCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]*$`)

func newValidate() *validator.Validate {
	validate := validator.New()
	registerDomainRules(validate)
	return validate
}

// registerDomainRules registers custom rule validators shared by struct
// and business validation.
func registerDomainRules(validate *validator.Validate) {
	// Course codes are uppercase alphanumeric with optional dashes
	_ = validate.RegisterValidation("course_code", func(fl validator.FieldLevel) bool {
		return courseCodePattern.MatchString(fl.Field().String())
	})

	// Exam dates are civil dates without a time component
	_ = validate.RegisterValidation("exam_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.ExamDateLayout, fl.Field().String())
		return err == nil
	})

	// Exam duration in minutes (15-600)
	_ = validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 15 && duration <= 600
	})

	// Role validation
	_ = validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		role := models.UserRole(fl.Field().String())
		return role == models.RoleSuperAdmin || role == models.RoleSubadmin || role == models.RoleStudent
	})
}

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{validate: newValidate()}
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateSets validates a list of exam sets: names must be non-empty
// and unique within the exam, and every set needs a description.
func (bv *BusinessValidator) ValidateSets(sets []models.ExamSet) ValidationErrors {
	var errors ValidationErrors

	seen := make(map[string]bool, len(sets))
	for i, set := range sets {
		name := strings.TrimSpace(set.Name)
		if name == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("sets[%d].name", i),
				Message: "set name cannot be empty",
				Value:   set.Name,
				Rule:    "business_logic",
			})
			continue
		}
		if seen[name] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("sets[%d].name", i),
				Message: "duplicate set name",
				Value:   name,
				Rule:    "business_logic",
			})
		}
		seen[name] = true

		if strings.TrimSpace(set.Description) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("sets[%d].description", i),
				Message: "set description cannot be empty",
				Value:   set.Description,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// ValidateCourseCodes validates that course codes are well-formed
func (bv *BusinessValidator) ValidateCourseCodes(codes []string) ValidationErrors {
	var errors ValidationErrors

	if len(codes) == 0 {
		errors = append(errors, ValidationError{
			Field:   "course_codes",
			Message: "at least one course code is required",
			Rule:    "business_logic",
		})
		return errors
	}

	for i, code := range codes {
		if !courseCodePattern.MatchString(code) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("course_codes[%d]", i),
				Message: "must be an uppercase course code",
				Value:   code,
				Rule:    "course_code",
			})
		}
	}

	return errors
}

// ValidateExamWindow validates the date and duration of a new exam
func (bv *BusinessValidator) ValidateExamWindow(examDate string, durationMinutes int) ValidationErrors {
	var errors ValidationErrors

	if _, err := time.Parse(models.ExamDateLayout, examDate); err != nil {
		errors = append(errors, ValidationError{
			Field:   "exam_date",
			Message: "must be a date in YYYY-MM-DD format",
			Value:   examDate,
			Rule:    "exam_date",
		})
	}

	if durationMinutes < 15 || durationMinutes > 600 {
		errors = append(errors, ValidationError{
			Field:   "duration_minutes",
			Message: "must be between 15 and 600 minutes",
			Value:   durationMinutes,
			Rule:    "exam_duration",
		})
	}

	return errors
}
