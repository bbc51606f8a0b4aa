package repositories

import (
	"context"

	"github.com/techcadd/exam-admin-service/internal/models"
	"gorm.io/gorm"
)

// UserRepository interface for user directory operations
type UserRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	Delete(ctx context.Context, tx *gorm.DB, email string) error

	// Bulk operations
	CreateBatch(ctx context.Context, tx *gorm.DB, users []*models.User) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)
	GetByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error)
	GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*models.User, error)

	// Enrollment queries over the JSON course_codes column
	ListByCourseCode(ctx context.Context, tx *gorm.DB, code string) ([]*models.User, error)
	ListActiveStudentsByCourses(ctx context.Context, tx *gorm.DB, codes []string) ([]*models.User, error)

	// Validation and checks
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
}
