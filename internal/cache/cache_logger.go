package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// BatchInvalidate invalidates multiple patterns in batch
func BatchInvalidate(ctx context.Context, helper *CacheHelper, patterns []string) error {
	var lastErr error
	for _, pattern := range patterns {
		if err := helper.InvalidatePattern(ctx, pattern); err != nil {
			lastErr = err
			slog.ErrorContext(ctx, "Failed to invalidate pattern in batch",
				"error", err,
				"pattern", pattern)
		}
	}
	return lastErr
}

// InvalidateCourseCache invalidates all caches keyed by a course code.
// Subadmin lists live on the user cache, so both sides are cleared.
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, code string) {
	SafeDelete(ctx, cm.Course, fmt.Sprintf("code:%s", code))
	SafeInvalidatePattern(ctx, cm.Course, "list:*")
	SafeInvalidatePattern(ctx, cm.User, "list:*")
	SafeDelete(ctx, cm.Exists, fmt.Sprintf("course:%s", code))
}

// InvalidateUserCache invalidates all user-related caches
func InvalidateUserCache(ctx context.Context, cm *CacheManager, email string) {
	SafeDelete(ctx, cm.User, fmt.Sprintf("email:%s", email))
	SafeInvalidatePattern(ctx, cm.User, "list:*")
	SafeDelete(ctx, cm.Exists, fmt.Sprintf("user:%s", email))
}

// InvalidateExamCache invalidates all exam-related caches
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint) {
	SafeDelete(ctx, cm.Exam, fmt.Sprintf("id:%d", examID))
	SafeInvalidatePattern(ctx, cm.Exam, "list:*")
}
