package repositories

import (
	"context"

	"github.com/techcadd/exam-admin-service/internal/models"
	"gorm.io/gorm"
)

// ExamRepository interface for exam lifecycle operations
type ExamRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)
	GetByStatus(ctx context.Context, tx *gorm.DB, status models.ExamStatus) ([]*models.Exam, error)

	// UpdateStatusGuarded applies updates to a single exam only when its
	// current status matches expected. Returns the number of rows
	// changed, zero meaning a concurrent writer won the transition.
	UpdateStatusGuarded(ctx context.Context, tx *gorm.DB, id uint, expected models.ExamStatus, updates map[string]interface{}) (int64, error)

	// UpdateAssignments replaces the set assignments of a single exam.
	UpdateAssignments(ctx context.Context, tx *gorm.DB, id uint, assignments []models.SetAssignment) error
}
