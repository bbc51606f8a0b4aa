package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Course is keyed by its short uppercase code. The code is the join key
// between courses, exams and user enrollment.
type Course struct {
	Code           string                      `json:"code" gorm:"primaryKey;size:32"`
	Name           string                      `json:"name" gorm:"not null;size:200"`
	SubadminEmails datatypes.JSONSlice[string] `json:"subadminEmails" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Course) TableName() string {
	return "courses"
}

// NormalizeCourseCode returns the canonical form used for all lookups.
func NormalizeCourseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeCourseCodes uppercases and deduplicates a code list, preserving
// first-occurrence order.
func NormalizeCourseCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		normalized := NormalizeCourseCode(code)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
