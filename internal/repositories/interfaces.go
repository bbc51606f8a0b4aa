package repositories

import (
	"github.com/techcadd/exam-admin-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Search    *string `json:"search"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`    // "code", "name", "created_at"
	SortOrder string  `json:"sort_order"` // "asc", "desc"
}

type UserFilters struct {
	Role       *models.UserRole `json:"role"`
	IsActive   *bool            `json:"is_active"`
	CourseCode *string          `json:"course_code"`
	Search     *string          `json:"search"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
	SortBy     string           `json:"sort_by"`
	SortOrder  string           `json:"sort_order"`
}

type ExamFilters struct {
	Status     *models.ExamStatus `json:"status"`
	CourseCode *string            `json:"course_code"`
	ExamDate   *string            `json:"exam_date"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
	SortBy     string             `json:"sort_by"`
	SortOrder  string             `json:"sort_order"`
}
