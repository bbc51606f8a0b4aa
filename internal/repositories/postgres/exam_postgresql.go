package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/techcadd/exam-admin-service/internal/cache"
	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new exam and invalidates cache
func (r *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Exam, "list:*")

	return nil
}

// GetByID retrieves an exam by ID. Exam reads are never cached for long
// because status can change lazily on any read.
func (r *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := r.getDB(tx)
	var exam models.Exam
	if err := db.WithContext(ctx).First(&exam, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("exam not found with ID %d", id)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	return &exam, nil
}

// Update updates an exam
func (r *ExamPostgreSQL) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(exam).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}

	cache.InvalidateExamCache(ctx, r.cacheManager, exam.ID)

	return nil
}

// Delete removes an exam by ID
func (r *ExamPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Exam{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("exam not found with ID %d", id)
	}

	cache.InvalidateExamCache(ctx, r.cacheManager, id)

	return nil
}

// ===== QUERY OPERATIONS =====

// List retrieves exams with filtering and pagination
func (r *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Exam{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ExamDate != nil && *filters.ExamDate != "" {
		query = query.Where("exam_date = ?", *filters.ExamDate)
	}
	if filters.CourseCode != nil && *filters.CourseCode != "" {
		query = query.Where(enrolledInExpr, *filters.CourseCode)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var exams []*models.Exam
	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}

	return exams, total, nil
}

// GetByStatus retrieves all exams with a given status
func (r *ExamPostgreSQL) GetByStatus(ctx context.Context, tx *gorm.DB, status models.ExamStatus) ([]*models.Exam, error) {
	db := r.getDB(tx)
	var exams []*models.Exam
	if err := db.WithContext(ctx).Where("status = ?", status).Find(&exams).Error; err != nil {
		return nil, fmt.Errorf("failed to get exams by status: %w", err)
	}

	return exams, nil
}

// ===== STATUS TRANSITIONS =====

// UpdateStatusGuarded applies updates only when the exam's current status
// matches expected. The WHERE guard makes concurrent transitions race-free:
// exactly one writer observes RowsAffected == 1.
func (r *ExamPostgreSQL) UpdateStatusGuarded(ctx context.Context, tx *gorm.DB, id uint, expected models.ExamStatus, updates map[string]interface{}) (int64, error) {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update exam status: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		cache.InvalidateExamCache(ctx, r.cacheManager, id)
	}

	return result.RowsAffected, nil
}

// UpdateAssignments replaces the set assignments of an exam
func (r *ExamPostgreSQL) UpdateAssignments(ctx context.Context, tx *gorm.DB, id uint, assignments []models.SetAssignment) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ?", id).
		Update("student_set_assignments", datatypes.NewJSONSlice(assignments))
	if result.Error != nil {
		return fmt.Errorf("failed to update exam assignments: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("exam not found with ID %d", id)
	}

	cache.InvalidateExamCache(ctx, r.cacheManager, id)

	return nil
}
