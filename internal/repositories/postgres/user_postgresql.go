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

type UserPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.UserRepository {
	return &UserPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new user and invalidates cache
func (r *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	cache.InvalidateUserCache(ctx, r.cacheManager, user.Email)

	return nil
}

// GetByEmail retrieves a user by email with caching
func (r *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("email:%s", email)
	var user models.User

	err := r.cacheManager.User.CacheOrExecute(ctx, cacheKey, &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		var dbUser models.User
		if err := db.WithContext(ctx).Where("email = ?", email).First(&dbUser).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("user not found with email %s", email)
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		return &dbUser, nil
	})

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Update updates a user
func (r *UserPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	cache.InvalidateUserCache(ctx, r.cacheManager, user.Email)

	return nil
}

// Delete removes a user by email
func (r *UserPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, email string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Where("email = ?", email).Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user not found with email %s", email)
	}

	cache.InvalidateUserCache(ctx, r.cacheManager, email)

	return nil
}

// ===== BULK OPERATIONS =====

// CreateBatch creates multiple users in a batch
func (r *UserPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}

	db := r.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(users, 100).Error; err != nil {
		return fmt.Errorf("failed to create users batch: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.User, "list:*")

	return nil
}

// ===== QUERY OPERATIONS =====

// List retrieves users with filtering and pagination
func (r *UserPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.User{})

	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.CourseCode != nil && *filters.CourseCode != "" {
		query = query.Where(enrolledInExpr, *filters.CourseCode)
	}
	if filters.Search != nil && *filters.Search != "" {
		search := "%" + *filters.Search + "%"
		query = query.Where("email ILIKE ? OR name ILIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var users []*models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

// GetByRole retrieves all users with a given role
func (r *UserPostgreSQL) GetByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error) {
	db := r.getDB(tx)
	var users []*models.User
	if err := db.WithContext(ctx).Where("role = ?", role).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by role: %w", err)
	}

	return users, nil
}

// GetByEmails retrieves multiple users by their emails
func (r *UserPostgreSQL) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*models.User, error) {
	if len(emails) == 0 {
		return []*models.User{}, nil
	}

	db := r.getDB(tx)
	var users []*models.User
	if err := db.WithContext(ctx).Where("email IN ?", emails).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by emails: %w", err)
	}

	return users, nil
}

// ListByCourseCode retrieves all users enrolled in a course
func (r *UserPostgreSQL) ListByCourseCode(ctx context.Context, tx *gorm.DB, code string) ([]*models.User, error) {
	db := r.getDB(tx)
	var users []*models.User
	if err := db.WithContext(ctx).Where(enrolledInExpr, code).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users by course code: %w", err)
	}

	return users, nil
}

// ListActiveStudentsByCourses retrieves active students enrolled in any of
// the given courses
func (r *UserPostgreSQL) ListActiveStudentsByCourses(ctx context.Context, tx *gorm.DB, codes []string) ([]*models.User, error) {
	if len(codes) == 0 {
		return []*models.User{}, nil
	}

	db := r.getDB(tx)
	var users []*models.User
	err := db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleStudent, true).
		Where(enrolledInAnyExpr, codes).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active students by courses: %w", err)
	}

	return users, nil
}

// ===== VALIDATION AND CHECKS =====

// ExistsByEmail checks whether a user exists, with short-lived caching
func (r *UserPostgreSQL) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("user:%s", email)
	var exists bool

	err := r.cacheManager.Exists.CacheOrExecute(ctx, cacheKey, &exists, cache.ExistsCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check user existence: %w", err)
		}
		return count > 0, nil
	})

	if err != nil {
		return false, err
	}

	return exists, nil
}
