package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/techcadd/exam-admin-service/internal/events"
	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

// ExamEventData is the payload of exam lifecycle events.
type ExamEventData struct {
	ExamID uint              `json:"examId"`
	Status models.ExamStatus `json:"status"`
	At     time.Time         `json:"at"`
}

type examService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	clock     Clock
}

func NewExamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, clock Clock) ExamService {
	return &examService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		clock:     clock,
	}
}

// Create schedules a new exam. Every referenced course must exist; a
// single unknown code rejects the whole request.
func (s *examService) Create(ctx context.Context, req *CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	codes := models.NormalizeCourseCodes(req.CourseCodes)
	sets := NormalizeSets(req.Sets)
	if err := s.validateDefinition(codes, req.ExamDate, req.DurationMinutes, sets); err != nil {
		return nil, err
	}
	if err := s.requireCoursesExist(ctx, codes); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		CourseCodes:           datatypes.NewJSONSlice(codes),
		ExamDate:              req.ExamDate,
		DurationMinutes:       req.DurationMinutes,
		Sets:                  toJSONSets(sets),
		StudentSetAssignments: datatypes.NewJSONSlice([]models.SetAssignment{}),
		Status:                models.ExamScheduled,
	}

	if err := s.repo.Exam().Create(ctx, s.db, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created", "exam_id", exam.ID, "exam_date", exam.ExamDate, "courses", codes)

	return exam, nil
}

// Update replaces an exam's definition wholesale. Assignments referring
// to set names removed by the update are silently pruned. There is no
// status gate: started and finished exams can still be edited.
func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	codes := models.NormalizeCourseCodes(req.CourseCodes)
	sets := NormalizeSets(req.Sets)
	if err := s.validateDefinition(codes, req.ExamDate, req.DurationMinutes, sets); err != nil {
		return nil, err
	}
	if err := s.requireCoursesExist(ctx, codes); err != nil {
		return nil, err
	}

	exam.CourseCodes = datatypes.NewJSONSlice(codes)
	exam.ExamDate = req.ExamDate
	exam.DurationMinutes = req.DurationMinutes
	exam.Sets = toJSONSets(sets)
	exam.StudentSetAssignments = datatypes.NewJSONSlice(pruneAssignments(exam.StudentSetAssignments, sets))

	if err := s.repo.Exam().Update(ctx, s.db, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	s.logger.Info("Exam updated", "exam_id", exam.ID)

	return exam, nil
}

// AssignSets replaces the full student-to-set assignment of an exam.
// Validation is all-or-nothing: no assignment is written unless every
// one passes.
func (s *examService) AssignSets(ctx context.Context, id uint, req *AssignSetsRequest) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	normalized := make([]models.SetAssignment, 0, len(req.Assignments))
	seen := make(map[string]bool, len(req.Assignments))
	for _, a := range req.Assignments {
		email := models.NormalizeEmail(a.StudentEmail)
		if seen[email] {
			return nil, NewValidationError("assignments", fmt.Sprintf("student %s is assigned more than once", email), a.StudentEmail)
		}
		seen[email] = true

		setName := strings.TrimSpace(a.SetName)
		if !exam.HasSet(setName) {
			return nil, NewValidationError("assignments", fmt.Sprintf("student %s is assigned to unknown set %q", email, a.SetName), a.SetName)
		}

		normalized = append(normalized, models.SetAssignment{
			StudentEmail: email,
			SetName:      setName,
		})
	}

	eligible, err := s.repo.User().ListActiveStudentsByCourses(ctx, s.db, exam.CourseCodes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve eligible students: %w", err)
	}
	eligibleSet := make(map[string]bool, len(eligible))
	for _, student := range eligible {
		eligibleSet[student.Email] = true
	}

	for _, a := range normalized {
		if !eligibleSet[a.StudentEmail] {
			return nil, NewValidationError("assignments", fmt.Sprintf("student %s is not an active student enrolled in this exam's courses", a.StudentEmail), a.StudentEmail)
		}
	}

	if err := s.repo.Exam().UpdateAssignments(ctx, s.db, exam.ID, normalized); err != nil {
		return nil, fmt.Errorf("failed to assign sets: %w", err)
	}

	exam.StudentSetAssignments = datatypes.NewJSONSlice(normalized)

	s.logger.Info("Exam set assignments replaced", "exam_id", exam.ID, "count", len(normalized))

	return exam, nil
}

// Start moves a scheduled exam into the started state. Preconditions
// are checked in order so each failure reports its own reason; the
// transition itself is a status-guarded single-row update, making
// concurrent starts race-free.
func (s *examService) Start(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := checkStartPreconditions(exam, now); err != nil {
		return nil, err
	}

	rows, err := s.repo.Exam().UpdateStatusGuarded(ctx, s.db, exam.ID, models.ExamScheduled, map[string]interface{}{
		"status":     models.ExamStarted,
		"started_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start exam: %w", err)
	}
	if rows == 0 {
		return nil, NewPreconditionError("exam", string(models.ExamScheduled), "exam was started concurrently")
	}

	exam.Status = models.ExamStarted
	exam.StartedAt = &now

	s.publishLifecycleEvent(ctx, events.EventExamStarted, exam.ID, models.ExamStarted, now)
	s.logger.Info("Exam started", "exam_id", exam.ID, "started_at", now)

	return exam, nil
}

// Terminate ends a started exam early. EndedAt records the actual
// termination instant, unlike natural expiry which records planned end.
func (s *examService) Terminate(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	if exam.Status != models.ExamStarted {
		return nil, NewPreconditionError("exam", string(exam.Status), "only a started exam can be terminated")
	}

	now := s.clock.Now()
	rows, err := s.repo.Exam().UpdateStatusGuarded(ctx, s.db, exam.ID, models.ExamStarted, map[string]interface{}{
		"status":   models.ExamTerminated,
		"ended_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to terminate exam: %w", err)
	}
	if rows == 0 {
		return nil, NewPreconditionError("exam", string(exam.Status), "exam is no longer in the started state")
	}

	exam.Status = models.ExamTerminated
	exam.EndedAt = &now

	s.publishLifecycleEvent(ctx, events.EventExamTerminated, exam.ID, models.ExamTerminated, now)
	s.logger.Info("Exam terminated", "exam_id", exam.ID, "ended_at", now)

	return exam, nil
}

// Delete removes an exam unconditionally, whatever its state. The set
// assignments live on the exam row and go with it.
func (s *examService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Exam().Delete(ctx, s.db, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return err
	}

	s.logger.Info("Exam deleted", "exam_id", id)

	return nil
}

// GetByID returns an exam, first applying lazy expiry: a started exam
// whose time has run out is persisted as ended before it is returned.
func (s *examService) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	s.expireIfDue(ctx, exam)

	return exam, nil
}

// List returns exams, applying lazy expiry to every started exam whose
// planned end has passed.
func (s *examService) List(ctx context.Context, filters repositories.ExamFilters) (*ExamListResponse, error) {
	exams, total, err := s.repo.Exam().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	for _, exam := range exams {
		s.expireIfDue(ctx, exam)
	}

	return &ExamListResponse{
		Exams: exams,
		Total: total,
	}, nil
}

// expireIfDue persists a read-triggered expiry. The guarded update means
// concurrent readers race benignly: only the winner publishes the event.
func (s *examService) expireIfDue(ctx context.Context, exam *models.Exam) {
	if !MaybeExpire(exam, s.clock.Now()) {
		return
	}

	rows, err := s.repo.Exam().UpdateStatusGuarded(ctx, s.db, exam.ID, models.ExamStarted, map[string]interface{}{
		"status":   models.ExamEnded,
		"ended_at": *exam.EndedAt,
	})
	if err != nil {
		s.logger.Error("Failed to persist exam expiry", "error", err, "exam_id", exam.ID)
		return
	}
	if rows > 0 {
		s.publishLifecycleEvent(ctx, events.EventExamEnded, exam.ID, models.ExamEnded, *exam.EndedAt)
		s.logger.Info("Exam expired on read", "exam_id", exam.ID, "ended_at", *exam.EndedAt)
	}
}

func (s *examService) getExam(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return exam, nil
}

// validateDefinition applies the business rules shared by create and
// update: well-formed course codes, a parseable date with a sane
// duration, and at least one surviving set, each carrying a description.
// Sets are checked after normalization so blank-named entries are
// already gone.
func (s *examService) validateDefinition(codes []string, examDate string, durationMinutes int, sets []models.ExamSet) error {
	business := s.validator.GetBusinessValidator()

	var errs validator.ValidationErrors
	errs = append(errs, business.ValidateCourseCodes(codes)...)
	errs = append(errs, business.ValidateExamWindow(examDate, durationMinutes)...)
	if len(sets) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "sets",
			Message: "at least one set with a non-empty name is required",
			Rule:    "business_logic",
		})
	} else {
		errs = append(errs, business.ValidateSets(sets)...)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// requireCoursesExist rejects the request when any code has no course,
// naming every missing code.
func (s *examService) requireCoursesExist(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return NewValidationError("course_codes", "at least one course code is required", codes)
	}

	courses, err := s.repo.Course().GetByCodes(ctx, s.db, codes)
	if err != nil {
		return fmt.Errorf("failed to resolve course codes: %w", err)
	}

	known := make(map[string]bool, len(courses))
	for _, course := range courses {
		known[course.Code] = true
	}

	var missing []string
	for _, code := range codes {
		if !known[code] {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return NewValidationError("course_codes", fmt.Sprintf("unknown course codes: %s", strings.Join(missing, ", ")), missing)
	}

	return nil
}

func (s *examService) publishLifecycleEvent(ctx context.Context, eventType string, examID uint, status models.ExamStatus, at time.Time) {
	err := s.publisher.Publish(ctx, events.NewEvent(eventType, ExamEventData{
		ExamID: examID,
		Status: status,
		At:     at,
	}))
	if err != nil {
		s.logger.Error("Failed to publish exam lifecycle event", "error", err, "event_type", eventType, "exam_id", examID)
	}
}
