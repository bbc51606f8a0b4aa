package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/techcadd/exam-admin-service/internal/events"
	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

type courseService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewCourseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) CourseService {
	return &courseService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

var serialDigits = regexp.MustCompile(`\d+`)

// NextSerialCode derives the next auto-assigned course code: the highest
// numeric run found in any existing code, plus one, zero-padded to three
// digits. An empty directory starts at "001".
func NextSerialCode(codes []string) string {
	max := 0
	for _, code := range codes {
		for _, digits := range serialDigits.FindAllString(code, -1) {
			n, err := strconv.Atoi(digits)
			if err != nil {
				continue
			}
			if n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("%03d", max+1)
}

// Create registers a course. When a code is supplied and already exists
// this is an upsert that only bumps UpdatedAt; the stored name wins.
func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var code string
	if req.Code != nil && models.NormalizeCourseCode(*req.Code) != "" {
		code = models.NormalizeCourseCode(*req.Code)
	} else {
		existing, err := s.repo.Course().GetAllCodes(ctx, s.db)
		if err != nil {
			return nil, fmt.Errorf("failed to derive serial code: %w", err)
		}
		code = NextSerialCode(existing)
	}

	existing, err := s.repo.Course().GetByCode(ctx, s.db, code)
	if err == nil {
		// Known code: leave the stored record intact, only touch UpdatedAt.
		if err := s.repo.Course().Update(ctx, s.db, existing); err != nil {
			return nil, fmt.Errorf("failed to touch existing course: %w", err)
		}
		s.logger.Info("Course create resolved to existing course", "code", code)
		return existing, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, err
	}

	course := &models.Course{
		Code:           code,
		Name:           req.Name,
		SubadminEmails: datatypes.NewJSONSlice([]string{}),
	}
	if err := s.repo.Course().Create(ctx, s.db, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created", "code", code, "name", req.Name)

	return course, nil
}

func (s *courseService) Rename(ctx context.Context, code string, req *RenameCourseRequest) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	code = models.NormalizeCourseCode(code)
	course, err := s.repo.Course().GetByCode(ctx, s.db, code)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	course.Name = req.Name
	if err := s.repo.Course().Update(ctx, s.db, course); err != nil {
		return nil, fmt.Errorf("failed to rename course: %w", err)
	}

	s.logger.Info("Course renamed", "code", code, "name", req.Name)

	return course, nil
}

// SetSubadmins replaces the full assigned-subadmin set of a course. The
// user-side CourseCodes of affected subadmins are updated in the same
// transaction so both views of the relationship stay consistent.
func (s *courseService) SetSubadmins(ctx context.Context, code string, emails []string) (*models.Course, error) {
	code = models.NormalizeCourseCode(code)

	normalized := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, email := range emails {
		e := models.NormalizeEmail(email)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		normalized = append(normalized, e)
	}

	var course *models.Course
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var err error
		course, err = txRepo.Course().GetByCode(ctx, nil, code)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCourseNotFound
			}
			return err
		}

		previous := []string(course.SubadminEmails)
		course.SubadminEmails = datatypes.NewJSONSlice(normalized)
		if err := txRepo.Course().Update(ctx, nil, course); err != nil {
			return fmt.Errorf("failed to update course subadmins: %w", err)
		}

		return syncSubadminUsersFromCourse(ctx, txRepo, code, previous, normalized)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Course subadmins replaced", "code", code, "count", len(normalized))

	return course, nil
}

// Delete removes a course and sweeps its code out of every user's
// enrollment. Exams keep their course code references; started or
// scheduled exams are left untouched by course deletion.
func (s *courseService) Delete(ctx context.Context, code string) error {
	code = models.NormalizeCourseCode(code)

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Course().Delete(ctx, nil, code); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCourseNotFound
			}
			return err
		}

		return sweepCourseCodeFromUsers(ctx, txRepo, code)
	})
	if err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, events.NewEvent(events.EventCourseDeleted, map[string]interface{}{
		"code": code,
	})); err != nil {
		s.logger.Error("Failed to publish course.deleted event", "error", err, "code", code)
	}

	s.logger.Info("Course deleted", "code", code)

	return nil
}

func (s *courseService) GetByCode(ctx context.Context, code string) (*models.Course, error) {
	code = models.NormalizeCourseCode(code)
	course, err := s.repo.Course().GetByCode(ctx, s.db, code)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *courseService) List(ctx context.Context, filters repositories.CourseFilters) (*CourseListResponse, error) {
	courses, total, err := s.repo.Course().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	return &CourseListResponse{
		Courses: courses,
		Total:   total,
	}, nil
}
