package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/techcadd/exam-admin-service/internal/cache"
	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new course and invalidates cache
func (r *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	cache.InvalidateCourseCache(ctx, r.cacheManager, course.Code)

	return nil
}

// GetByCode retrieves a course by its code with caching
func (r *CoursePostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Course, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("code:%s", code)
	var course models.Course

	err := r.cacheManager.Course.CacheOrExecute(ctx, cacheKey, &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := db.WithContext(ctx).Where("code = ?", code).First(&dbCourse).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("course not found with code %s", code)
			}
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		return &dbCourse, nil
	})

	if err != nil {
		return nil, err
	}

	return &course, nil
}

// Update updates a course
func (r *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(course).Error; err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	cache.InvalidateCourseCache(ctx, r.cacheManager, course.Code)

	return nil
}

// Delete removes a course by code
func (r *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, code string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Where("code = ?", code).Delete(&models.Course{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("course not found with code %s", code)
	}

	cache.InvalidateCourseCache(ctx, r.cacheManager, code)

	return nil
}

// ===== QUERY OPERATIONS =====

// List retrieves courses with filtering and pagination
func (r *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Course{})

	if filters.Search != nil && *filters.Search != "" {
		search := "%" + *filters.Search + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var courses []*models.Course
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}

	return courses, total, nil
}

// GetByCodes retrieves multiple courses by their codes
func (r *CoursePostgreSQL) GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*models.Course, error) {
	if len(codes) == 0 {
		return []*models.Course{}, nil
	}

	db := r.getDB(tx)
	var courses []*models.Course
	if err := db.WithContext(ctx).Where("code IN ?", codes).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to get courses by codes: %w", err)
	}

	return courses, nil
}

// GetAllCodes returns every course code. Used for serial code generation.
func (r *CoursePostgreSQL) GetAllCodes(ctx context.Context, tx *gorm.DB) ([]string, error) {
	db := r.getDB(tx)
	var codes []string
	if err := db.WithContext(ctx).Model(&models.Course{}).Pluck("code", &codes).Error; err != nil {
		return nil, fmt.Errorf("failed to get course codes: %w", err)
	}

	return codes, nil
}

// ===== VALIDATION AND CHECKS =====

// ExistsByCode checks whether a course exists, with short-lived caching
func (r *CoursePostgreSQL) ExistsByCode(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("course:%s", code)
	var exists bool

	err := r.cacheManager.Exists.CacheOrExecute(ctx, cacheKey, &exists, cache.ExistsCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		if err := db.WithContext(ctx).Model(&models.Course{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check course existence: %w", err)
		}
		return count > 0, nil
	})

	if err != nil {
		return false, err
	}

	return exists, nil
}
