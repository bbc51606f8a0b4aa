package postgres

import (
	"gorm.io/gorm"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// enrolledInAnyExpr matches rows whose JSON course_codes column contains
// at least one of the given codes.
const enrolledInAnyExpr = `EXISTS (SELECT 1 FROM jsonb_array_elements_text(course_codes) AS cc WHERE cc IN ?)`

// enrolledInExpr matches rows whose JSON course_codes column contains the
// given code.
const enrolledInExpr = `EXISTS (SELECT 1 FROM jsonb_array_elements_text(course_codes) AS cc WHERE cc = ?)`

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"id":         true,
		"code":       true,
		"name":       true,
		"email":      true,
		"role":       true,
		"status":     true,
		"exam_date":  true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
