package services

import (
	"context"
	"io"

	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
)

// ===== COURSE DTOs =====

type CreateCourseRequest struct {
	Name string  `json:"name" validate:"required,min=1,max=200"`
	Code *string `json:"code" validate:"omitempty,min=1,max=32"`
}

type RenameCourseRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

type SetSubadminsRequest struct {
	Emails []string `json:"emails" validate:"dive,email"`
}

type CourseListResponse struct {
	Courses []*models.Course `json:"courses"`
	Total   int64            `json:"total"`
}

// ===== USER DTOs =====

type ProvisionLoginRequest struct {
	Email            string              `json:"email" validate:"required,email"`
	Name             string              `json:"name" validate:"omitempty,max=200"`
	Provider         models.UserProvider `json:"provider" validate:"required,oneof=otp google"`
	ProfileImagePath *string             `json:"profileImagePath" validate:"omitempty,max=500"`
}

type CreateSubadminRequest struct {
	Email       string              `json:"email" validate:"required,email"`
	Name        string              `json:"name" validate:"required,min=1,max=200"`
	CourseCodes []string            `json:"courseCodes" validate:"omitempty,dive,min=1"`
	Permissions *models.Permissions `json:"permissions"`
}

type CreateStudentRequest struct {
	Email       string              `json:"email" validate:"required,email"`
	Name        string              `json:"name" validate:"required,min=1,max=200"`
	CourseCodes []string            `json:"courseCodes" validate:"omitempty,dive,min=1"`
	Permissions *models.Permissions `json:"permissions"`
}

// UpdateAccessRequest carries a partial update; nil fields are left as is.
type UpdateAccessRequest struct {
	IsActive         *bool               `json:"isActive"`
	Permissions      *models.Permissions `json:"permissions"`
	CourseCodes      *[]string           `json:"courseCodes"`
	ProfileImagePath *string             `json:"profileImagePath" validate:"omitempty,max=500"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

// ===== EXAM DTOs =====

type CreateExamRequest struct {
	CourseCodes     []string         `json:"courseCodes" validate:"required,min=1,dive,min=1"`
	ExamDate        string           `json:"examDate" validate:"required,exam_date"`
	DurationMinutes int              `json:"durationMinutes" validate:"required,exam_duration"`
	Sets            []models.ExamSet `json:"sets" validate:"required,min=1"`
}

type UpdateExamRequest struct {
	CourseCodes     []string         `json:"courseCodes" validate:"required,min=1,dive,min=1"`
	ExamDate        string           `json:"examDate" validate:"required,exam_date"`
	DurationMinutes int              `json:"durationMinutes" validate:"required,exam_duration"`
	Sets            []models.ExamSet `json:"sets" validate:"required,min=1"`
}

type AssignSetsRequest struct {
	Assignments []models.SetAssignment `json:"assignments" validate:"required"`
}

type ExamListResponse struct {
	Exams []*models.Exam `json:"exams"`
	Total int64          `json:"total"`
}

// ===== IMPORT DTOs =====

type ImportRowError struct {
	Row     int    `json:"row"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
}

// ===== SERVICE INTERFACES =====

// CourseService manages the course directory
type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest) (*models.Course, error)
	Rename(ctx context.Context, code string, req *RenameCourseRequest) (*models.Course, error)
	SetSubadmins(ctx context.Context, code string, emails []string) (*models.Course, error)
	Delete(ctx context.Context, code string) error

	GetByCode(ctx context.Context, code string) (*models.Course, error)
	List(ctx context.Context, filters repositories.CourseFilters) (*CourseListResponse, error)
}

// UserService manages the user directory
type UserService interface {
	// ResolveRole is pure: the configured superadmin email always wins,
	// an existing role is preserved, anything else defaults to student.
	ResolveRole(email string, existing *models.UserRole) models.UserRole

	EnsureSuperAdmin(ctx context.Context) error
	CanSignIn(ctx context.Context, email string) (bool, error)
	ProvisionOnLogin(ctx context.Context, req *ProvisionLoginRequest) (*models.User, error)

	CreateSubadmin(ctx context.Context, req *CreateSubadminRequest) (*models.User, error)
	CreateStudent(ctx context.Context, req *CreateStudentRequest) (*models.User, error)
	UpdateAccess(ctx context.Context, email string, req *UpdateAccessRequest) (*models.User, error)
	Delete(ctx context.Context, email string) error

	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error)
}

// ExamService manages the exam lifecycle
type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest) (*models.Exam, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest) (*models.Exam, error)
	AssignSets(ctx context.Context, id uint, req *AssignSetsRequest) (*models.Exam, error)

	Start(ctx context.Context, id uint) (*models.Exam, error)
	Terminate(ctx context.Context, id uint) (*models.Exam, error)
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	List(ctx context.Context, filters repositories.ExamFilters) (*ExamListResponse, error)
}

// ImportService handles bulk student creation from spreadsheets
type ImportService interface {
	ImportStudents(ctx context.Context, r io.Reader) (*ImportResult, error)
}

// ServiceManager wires and owns all service instances
type ServiceManager interface {
	Course() CourseService
	User() UserService
	Exam() ExamService
	Import() ImportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
