package repositories

import (
	"context"

	"github.com/techcadd/exam-admin-service/internal/models"
	"gorm.io/gorm"
)

// CourseRepository interface for course directory operations
type CourseRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, code string) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*models.Course, error)
	GetAllCodes(ctx context.Context, tx *gorm.DB) ([]string, error)

	// Validation and checks
	ExistsByCode(ctx context.Context, tx *gorm.DB, code string) (bool, error)
}
