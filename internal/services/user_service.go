package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

type userService struct {
	repo            repositories.Repository
	db              *gorm.DB
	logger          *slog.Logger
	validator       *validator.Validator
	superAdminEmail string
	clock           Clock
}

func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, superAdminEmail string, clock Clock) UserService {
	return &userService{
		repo:            repo,
		db:              db,
		logger:          logger,
		validator:       validator,
		superAdminEmail: models.NormalizeEmail(superAdminEmail),
		clock:           clock,
	}
}

// ResolveRole decides the effective role for an email. The configured
// superadmin email always resolves to superadmin, an existing role is
// preserved, everyone else defaults to student.
func (s *userService) ResolveRole(email string, existing *models.UserRole) models.UserRole {
	if models.NormalizeEmail(email) == s.superAdminEmail {
		return models.RoleSuperAdmin
	}
	if existing != nil {
		return *existing
	}
	return models.RoleStudent
}

// EnsureSuperAdmin makes the configured superadmin account exist, be
// active and carry the superadmin role. Idempotent; called on startup
// and before every login provisioning.
func (s *userService) EnsureSuperAdmin(ctx context.Context) error {
	existing, err := s.repo.User().GetByEmail(ctx, s.db, s.superAdminEmail)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to look up superadmin: %w", err)
		}

		user := &models.User{
			Email:       s.superAdminEmail,
			Name:        "Super Admin",
			Role:        models.RoleSuperAdmin,
			IsActive:    true,
			Permissions: datatypes.NewJSONType(models.DefaultPermissions(models.RoleSuperAdmin)),
			CourseCodes: datatypes.NewJSONSlice([]string{}),
		}
		if err := s.repo.User().Create(ctx, s.db, user); err != nil {
			return fmt.Errorf("failed to create superadmin: %w", err)
		}

		s.logger.Info("Superadmin created", "email", s.superAdminEmail)
		return nil
	}

	if existing.Role == models.RoleSuperAdmin && existing.IsActive {
		return nil
	}

	existing.Role = models.RoleSuperAdmin
	existing.IsActive = true
	existing.Permissions = datatypes.NewJSONType(models.DefaultPermissions(models.RoleSuperAdmin))
	if err := s.repo.User().Update(ctx, s.db, existing); err != nil {
		return fmt.Errorf("failed to promote superadmin: %w", err)
	}

	s.logger.Info("Superadmin promoted and reactivated", "email", s.superAdminEmail)
	return nil
}

// CanSignIn gates login provisioning: the superadmin may always sign in,
// anyone else needs an existing active account. Unknown emails are
// denied, not auto-registered.
func (s *userService) CanSignIn(ctx context.Context, email string) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == s.superAdminEmail {
		return true, nil
	}

	user, err := s.repo.User().GetByEmail(ctx, s.db, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	return user.IsActive, nil
}

// ProvisionOnLogin upserts an account on a successful external sign-in.
// A denied sign-in returns nil without error. Existing directory fields
// (name, permissions, courses, activation) are preserved; only login
// metadata is refreshed.
func (s *userService) ProvisionOnLogin(ctx context.Context, req *ProvisionLoginRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.EnsureSuperAdmin(ctx); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	allowed, err := s.CanSignIn(ctx, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.Info("Sign-in denied", "email", email)
		return nil, nil
	}

	user, err := s.repo.User().GetByEmail(ctx, s.db, email)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, err
		}
		// Only reachable for the superadmin, whose record EnsureSuperAdmin
		// just created. Anything else is denied above.
		return nil, ErrUserNotFound
	}

	user.Role = s.ResolveRole(email, &user.Role)
	user.Provider = req.Provider
	user.LastLoginAt = s.clock.Now()
	if req.Name != "" && user.Name == "" {
		user.Name = req.Name
	}
	if req.ProfileImagePath != nil {
		user.ProfileImagePath = req.ProfileImagePath
	}

	if err := s.repo.User().Update(ctx, s.db, user); err != nil {
		return nil, fmt.Errorf("failed to provision user on login: %w", err)
	}

	s.logger.Info("User provisioned on login", "email", email, "provider", req.Provider)

	return user, nil
}

// CreateSubadmin creates a managed subadmin account and records it on
// every referenced course's SubadminEmails. Unknown course codes are
// skipped, not rejected.
func (s *userService) CreateSubadmin(ctx context.Context, req *CreateSubadminRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	if email == s.superAdminEmail {
		return nil, NewValidationError("email", "is reserved for the superadmin", email)
	}

	exists, err := s.repo.User().ExistsByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewValidationError("email", "already exists", email)
	}

	codes, err := s.filterToExistingCourses(ctx, models.NormalizeCourseCodes(req.CourseCodes))
	if err != nil {
		return nil, err
	}

	permissions := models.DefaultPermissions(models.RoleSubadmin)
	if req.Permissions != nil {
		permissions = *req.Permissions
	}

	user := &models.User{
		Email:       email,
		Name:        req.Name,
		Role:        models.RoleSubadmin,
		IsActive:    true,
		Permissions: datatypes.NewJSONType(permissions),
		CourseCodes: datatypes.NewJSONSlice(codes),
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.User().Create(ctx, nil, user); err != nil {
			return fmt.Errorf("failed to create subadmin: %w", err)
		}
		return syncCoursesFromSubadmin(ctx, txRepo, email, codes)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Subadmin created", "email", email, "courses", codes)

	return user, nil
}

// CreateStudent creates a managed student account.
func (s *userService) CreateStudent(ctx context.Context, req *CreateStudentRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	if email == s.superAdminEmail {
		return nil, NewValidationError("email", "is reserved for the superadmin", email)
	}

	exists, err := s.repo.User().ExistsByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewValidationError("email", "already exists", email)
	}

	codes, err := s.filterToExistingCourses(ctx, models.NormalizeCourseCodes(req.CourseCodes))
	if err != nil {
		return nil, err
	}

	permissions := models.DefaultPermissions(models.RoleStudent)
	if req.Permissions != nil {
		permissions = *req.Permissions
	}

	user := &models.User{
		Email:       email,
		Name:        req.Name,
		Role:        models.RoleStudent,
		IsActive:    true,
		Permissions: datatypes.NewJSONType(permissions),
		CourseCodes: datatypes.NewJSONSlice(codes),
	}

	if err := s.repo.User().Create(ctx, s.db, user); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	s.logger.Info("Student created", "email", email)

	return user, nil
}

// UpdateAccess applies a partial update to activation, permissions,
// enrollment and profile image. The superadmin's access fields are
// immutable: updates against it succeed without changing anything.
func (s *userService) UpdateAccess(ctx context.Context, email string, req *UpdateAccessRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email = models.NormalizeEmail(email)
	user, err := s.repo.User().GetByEmail(ctx, s.db, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.Role == models.RoleSuperAdmin {
		s.logger.Warn("Access update against superadmin ignored", "email", email)
		return user, nil
	}

	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Permissions != nil {
		user.Permissions = datatypes.NewJSONType(*req.Permissions)
	}
	if req.ProfileImagePath != nil {
		user.ProfileImagePath = req.ProfileImagePath
	}

	var newCodes []string
	if req.CourseCodes != nil {
		newCodes = models.NormalizeCourseCodes(*req.CourseCodes)
		user.CourseCodes = datatypes.NewJSONSlice(newCodes)
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.User().Update(ctx, nil, user); err != nil {
			return fmt.Errorf("failed to update user access: %w", err)
		}
		if req.CourseCodes != nil && user.Role == models.RoleSubadmin {
			return syncCoursesFromSubadmin(ctx, txRepo, email, newCodes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User access updated", "email", email)

	return user, nil
}

// Delete removes a user. Deleting the superadmin is a silent no-op.
func (s *userService) Delete(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == s.superAdminEmail {
		s.logger.Warn("Delete against superadmin ignored", "email", email)
		return nil
	}

	user, err := s.repo.User().GetByEmail(ctx, s.db, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.User().Delete(ctx, nil, email); err != nil {
			return err
		}
		if user.Role == models.RoleSubadmin {
			return syncCoursesFromSubadmin(ctx, txRepo, email, nil)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("User deleted", "email", email)

	return nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	user, err := s.repo.User().GetByEmail(ctx, s.db, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error) {
	users, total, err := s.repo.User().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &UserListResponse{
		Users: users,
		Total: total,
	}, nil
}

// filterToExistingCourses drops codes that do not resolve to a course.
func (s *userService) filterToExistingCourses(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return []string{}, nil
	}

	courses, err := s.repo.Course().GetByCodes(ctx, s.db, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve course codes: %w", err)
	}

	known := make(map[string]bool, len(courses))
	for _, course := range courses {
		known[course.Code] = true
	}

	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if known[code] {
			out = append(out, code)
		}
	}
	return out, nil
}
