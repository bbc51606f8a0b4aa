package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/techcadd/exam-admin-service/internal/events"
	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	SuperAdminEmail string
	Clock           Clock
}

// serviceManager implements the ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	courseService CourseService
	userService   UserService
	examService   ExamService
	importService ImportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	if config.Clock == nil {
		config.Clock = NewSystemClock(nil)
	}
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

// Initialize sets up all services and bootstraps the superadmin account
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.courseService = NewCourseService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher)
	sm.userService = NewUserService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.SuperAdminEmail, sm.config.Clock)
	sm.examService = NewExamService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher, sm.config.Clock)
	sm.importService = NewImportService(sm.userService, sm.logger, sm.validator)

	if err := sm.userService.EnsureSuperAdmin(ctx); err != nil {
		return fmt.Errorf("superadmin bootstrap failed: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.courseService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.userService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.examService
}

func (sm *serviceManager) Import() ImportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.importService
}

// HealthCheck verifies the backing connections
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	return sm.repo.Ping(ctx)
}

// Shutdown gracefully stops the services
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true

	return nil
}
