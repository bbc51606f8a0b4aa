package validator

// StudentImportRow represents one row parsed from a bulk student import
// spreadsheet.
type StudentImportRow struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Email       string   `json:"email" validate:"required,email"`
	CourseCodes []string `json:"course_codes" validate:"omitempty,dive,course_code"`
}
