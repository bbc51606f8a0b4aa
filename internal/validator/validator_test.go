package validator

import (
	"testing"

	"github.com/techcadd/exam-admin-service/internal/models"
)

func TestValidator_StudentImportRow(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		row     StudentImportRow
		wantErr bool
	}{
		{"valid", StudentImportRow{Name: "One", Email: "one@ex.com", CourseCodes: []string{"CS-101"}}, false},
		{"no courses", StudentImportRow{Name: "One", Email: "one@ex.com"}, false},
		{"missing name", StudentImportRow{Email: "one@ex.com"}, true},
		{"bad email", StudentImportRow{Name: "One", Email: "nope"}, true},
		{"lowercase course code", StudentImportRow{Name: "One", Email: "one@ex.com", CourseCodes: []string{"cs-101"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.row)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestValidator_ExamRules(t *testing.T) {
	v := New()

	type examFields struct {
		ExamDate        string `validate:"required,exam_date"`
		DurationMinutes int    `validate:"required,exam_duration"`
	}

	tests := []struct {
		name    string
		fields  examFields
		wantErr bool
	}{
		{"valid", examFields{"2026-09-01", 60}, false},
		{"minimum duration", examFields{"2026-09-01", 15}, false},
		{"maximum duration", examFields{"2026-09-01", 600}, false},
		{"too short", examFields{"2026-09-01", 14}, true},
		{"too long", examFields{"2026-09-01", 601}, true},
		{"bad date format", examFields{"01/09/2026", 60}, true},
		{"date with time", examFields{"2026-09-01T10:00", 60}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.fields)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestBusinessValidator_ValidateSets(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name     string
		sets     []models.ExamSet
		wantErrs int
	}{
		{"valid", []models.ExamSet{{Name: "A", Description: "x"}, {Name: "B", Description: "y"}}, 0},
		{"empty name", []models.ExamSet{{Name: "  "}}, 1},
		{"duplicate name", []models.ExamSet{{Name: "A", Description: "x"}, {Name: "A", Description: "y"}}, 1},
		{"empty description", []models.ExamSet{{Name: "A", Description: "  "}}, 1},
		{"name and description problems", []models.ExamSet{{Name: ""}, {Name: "A", Description: "x"}, {Name: "A", Description: ""}}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateSets(tt.sets)
			if len(errs) != tt.wantErrs {
				t.Errorf("Expected %d errors, got %d: %v", tt.wantErrs, len(errs), errs)
			}
		})
	}
}

func TestBusinessValidator_ValidateCourseCodes(t *testing.T) {
	bv := NewBusinessValidator()

	if errs := bv.ValidateCourseCodes(nil); len(errs) != 1 {
		t.Errorf("Expected 1 error for empty codes, got %d", len(errs))
	}
	if errs := bv.ValidateCourseCodes([]string{"CS-101", "001"}); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
	if errs := bv.ValidateCourseCodes([]string{"cs-101", "-X"}); len(errs) != 2 {
		t.Errorf("Expected 2 errors, got %v", errs)
	}
}
