package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/techcadd/exam-admin-service/internal/events"
	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

// fixedClock pins time for deterministic lifecycle tests.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newExamTestFixture(now time.Time) (*mockRepository, *events.MockEventPublisher, *fixedClock, ExamService) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(logger)
	clock := &fixedClock{now: now}
	service := NewExamService(repo, nil, logger, validator.New(), publisher, clock)

	repo.courses.courses["CS-101"] = &models.Course{Code: "CS-101", Name: "Intro"}
	repo.courses.courses["MATH-2"] = &models.Course{Code: "MATH-2", Name: "Calculus"}

	return repo, publisher, clock, service
}

// 10:00 local on an arbitrary weekday, inside the start window.
var examTestNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.Local)

func validCreateRequest(date string) *CreateExamRequest {
	return &CreateExamRequest{
		CourseCodes:     []string{"CS-101"},
		ExamDate:        date,
		DurationMinutes: 60,
		Sets: []models.ExamSet{
			{Name: "A", Description: "first"},
			{Name: "B", Description: "second"},
		},
	}
}

func todayStr() string { return examTestNow.Format(models.ExamDateLayout) }

func TestExamService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("valid request", func(t *testing.T) {
		_, _, _, service := newExamTestFixture(examTestNow)

		exam, err := service.Create(ctx, validCreateRequest(todayStr()))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if exam.Status != models.ExamScheduled {
			t.Errorf("Expected scheduled status, got %s", exam.Status)
		}
		if len(exam.StudentSetAssignments) != 0 {
			t.Errorf("Expected empty assignments, got %v", exam.StudentSetAssignments)
		}
	})

	t.Run("unknown course code rejects whole request", func(t *testing.T) {
		_, _, _, service := newExamTestFixture(examTestNow)

		req := validCreateRequest(todayStr())
		req.CourseCodes = []string{"CS-101", "GHOST-9"}
		_, err := service.Create(ctx, req)
		if !IsValidation(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("sets deduplicated by name keeping first", func(t *testing.T) {
		_, _, _, service := newExamTestFixture(examTestNow)

		req := validCreateRequest(todayStr())
		req.Sets = []models.ExamSet{
			{Name: "A", Description: "x"},
			{Name: " A ", Description: "y"},
		}
		exam, err := service.Create(ctx, req)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if len(exam.Sets) != 1 {
			t.Fatalf("Expected 1 surviving set, got %d", len(exam.Sets))
		}
		if exam.Sets[0].Description != "x" {
			t.Errorf("Expected first occurrence to win, got %q", exam.Sets[0].Description)
		}
	})

	t.Run("all set names empty", func(t *testing.T) {
		_, _, _, service := newExamTestFixture(examTestNow)

		req := validCreateRequest(todayStr())
		req.Sets = []models.ExamSet{{Name: "  ", Description: "x"}}
		if _, err := service.Create(ctx, req); !IsValidation(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("blank set description rejected", func(t *testing.T) {
		repo, _, _, service := newExamTestFixture(examTestNow)

		req := validCreateRequest(todayStr())
		req.Sets = []models.ExamSet{{Name: "A", Description: "   "}}
		if _, err := service.Create(ctx, req); !IsValidation(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		if len(repo.exams.exams) != 0 {
			t.Error("Expected no exam to be persisted")
		}
	})

	t.Run("duration out of range", func(t *testing.T) {
		_, _, _, service := newExamTestFixture(examTestNow)

		req := validCreateRequest(todayStr())
		req.DurationMinutes = 10
		if _, err := service.Create(ctx, req); !IsValidation(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})
}

func TestExamService_Update(t *testing.T) {
	ctx := context.Background()
	repo, _, _, service := newExamTestFixture(examTestNow)

	exam, err := service.Create(ctx, validCreateRequest(todayStr()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Seed assignments to both sets directly.
	repo.exams.exams[exam.ID].StudentSetAssignments = datatypes.NewJSONSlice([]models.SetAssignment{
		{StudentEmail: "a@ex.com", SetName: "A"},
		{StudentEmail: "b@ex.com", SetName: "B"},
	})

	updated, err := service.Update(ctx, exam.ID, &UpdateExamRequest{
		CourseCodes:     []string{"MATH-2"},
		ExamDate:        todayStr(),
		DurationMinutes: 90,
		Sets:            []models.ExamSet{{Name: "A", Description: "only"}},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if len(updated.CourseCodes) != 1 || updated.CourseCodes[0] != "MATH-2" {
		t.Errorf("Expected course codes replaced, got %v", updated.CourseCodes)
	}
	if updated.DurationMinutes != 90 {
		t.Errorf("Expected duration 90, got %d", updated.DurationMinutes)
	}

	// Assignment to removed set B is silently pruned.
	if len(updated.StudentSetAssignments) != 1 || updated.StudentSetAssignments[0].StudentEmail != "a@ex.com" {
		t.Errorf("Expected only a@ex.com to survive the prune, got %v", updated.StudentSetAssignments)
	}
}

func TestExamService_Update_BlankSetDescription(t *testing.T) {
	ctx := context.Background()
	repo, _, _, service := newExamTestFixture(examTestNow)

	exam, err := service.Create(ctx, validCreateRequest(todayStr()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = service.Update(ctx, exam.ID, &UpdateExamRequest{
		CourseCodes:     []string{"CS-101"},
		ExamDate:        todayStr(),
		DurationMinutes: 60,
		Sets:            []models.ExamSet{{Name: "A", Description: ""}},
	})
	if !IsValidation(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if repo.exams.exams[exam.ID].Sets[0].Description != "first" {
		t.Error("Expected stored exam to be untouched after rejected update")
	}
}

func TestExamService_Update_NoStatusGate(t *testing.T) {
	ctx := context.Background()
	repo, _, _, service := newExamTestFixture(examTestNow)

	exam, err := service.Create(ctx, validCreateRequest(todayStr()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	repo.exams.exams[exam.ID].Status = models.ExamEnded

	if _, err := service.Update(ctx, exam.ID, &UpdateExamRequest{
		CourseCodes:     []string{"CS-101"},
		ExamDate:        todayStr(),
		DurationMinutes: 45,
		Sets:            []models.ExamSet{{Name: "A", Description: "x"}},
	}); err != nil {
		t.Errorf("Expected update on ended exam to succeed, got %v", err)
	}
}

func TestExamService_AssignSets(t *testing.T) {
	ctx := context.Background()
	repo, _, _, service := newExamTestFixture(examTestNow)

	exam, err := service.Create(ctx, validCreateRequest(todayStr()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	repo.users.users["stud@ex.com"] = &models.User{
		Email:       "stud@ex.com",
		Role:        models.RoleStudent,
		IsActive:    true,
		CourseCodes: datatypes.NewJSONSlice([]string{"CS-101"}),
	}
	repo.users.users["inactive@ex.com"] = &models.User{
		Email:       "inactive@ex.com",
		Role:        models.RoleStudent,
		IsActive:    false,
		CourseCodes: datatypes.NewJSONSlice([]string{"CS-101"}),
	}

	t.Run("valid assignment normalizes email case", func(t *testing.T) {
		updated, err := service.AssignSets(ctx, exam.ID, &AssignSetsRequest{
			Assignments: []models.SetAssignment{{StudentEmail: "Stud@Ex.com", SetName: "A"}},
		})
		if err != nil {
			t.Fatalf("AssignSets failed: %v", err)
		}
		if len(updated.StudentSetAssignments) != 1 {
			t.Fatalf("Expected 1 assignment, got %d", len(updated.StudentSetAssignments))
		}
		if updated.StudentSetAssignments[0].StudentEmail != "stud@ex.com" {
			t.Errorf("Expected lowercased email, got %s", updated.StudentSetAssignments[0].StudentEmail)
		}
	})

	t.Run("duplicate student rejected", func(t *testing.T) {
		_, err := service.AssignSets(ctx, exam.ID, &AssignSetsRequest{
			Assignments: []models.SetAssignment{
				{StudentEmail: "stud@ex.com", SetName: "A"},
				{StudentEmail: "Stud@Ex.com", SetName: "B"},
			},
		})
		if !IsValidation(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("unknown set rejected", func(t *testing.T) {
		_, err := service.AssignSets(ctx, exam.ID, &AssignSetsRequest{
			Assignments: []models.SetAssignment{{StudentEmail: "stud@ex.com", SetName: "Z"}},
		})
		if !IsValidation(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("inactive student rejected, nothing written", func(t *testing.T) {
		before := len(repo.exams.exams[exam.ID].StudentSetAssignments)
		_, err := service.AssignSets(ctx, exam.ID, &AssignSetsRequest{
			Assignments: []models.SetAssignment{
				{StudentEmail: "stud@ex.com", SetName: "A"},
				{StudentEmail: "inactive@ex.com", SetName: "B"},
			},
		})
		if !IsValidation(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		if after := len(repo.exams.exams[exam.ID].StudentSetAssignments); after != before {
			t.Errorf("Expected assignments unchanged, had %d now %d", before, after)
		}
	})

	t.Run("unenrolled student rejected", func(t *testing.T) {
		repo.users.users["outside@ex.com"] = &models.User{
			Email:       "outside@ex.com",
			Role:        models.RoleStudent,
			IsActive:    true,
			CourseCodes: datatypes.NewJSONSlice([]string{"MATH-2"}),
		}
		_, err := service.AssignSets(ctx, exam.ID, &AssignSetsRequest{
			Assignments: []models.SetAssignment{{StudentEmail: "outside@ex.com", SetName: "A"}},
		})
		if !IsValidation(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})
}

func TestExamService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		_, publisher, clock, service := newExamTestFixture(examTestNow)

		exam, err := service.Create(ctx, validCreateRequest(todayStr()))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		started, err := service.Start(ctx, exam.ID)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if started.Status != models.ExamStarted {
			t.Errorf("Expected started status, got %s", started.Status)
		}
		if started.StartedAt == nil || !started.StartedAt.Equal(clock.now) {
			t.Errorf("Expected StartedAt %v, got %v", clock.now, started.StartedAt)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EventExamStarted {
			t.Errorf("Expected one %s event, got %v", events.EventExamStarted, published)
		}
	})

	t.Run("wrong date", func(t *testing.T) {
		_, _, _, service := newExamTestFixture(examTestNow)

		tomorrow := examTestNow.AddDate(0, 0, 1).Format(models.ExamDateLayout)
		exam, err := service.Create(ctx, validCreateRequest(tomorrow))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if _, err := service.Start(ctx, exam.ID); !IsPrecondition(err) {
			t.Errorf("Expected precondition error, got %v", err)
		}
	})

	t.Run("outside start window", func(t *testing.T) {
		early := time.Date(2026, 8, 28, 8, 30, 0, 0, time.Local)
		_, _, _, service := newExamTestFixture(early)

		exam, err := service.Create(ctx, validCreateRequest(early.Format(models.ExamDateLayout)))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if _, err := service.Start(ctx, exam.ID); !IsPrecondition(err) {
			t.Errorf("Expected precondition error, got %v", err)
		}
	})

	t.Run("already started", func(t *testing.T) {
		_, _, _, service := newExamTestFixture(examTestNow)

		exam, err := service.Create(ctx, validCreateRequest(todayStr()))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := service.Start(ctx, exam.ID); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		if _, err := service.Start(ctx, exam.ID); !IsPrecondition(err) {
			t.Errorf("Expected precondition error, got %v", err)
		}
	})

	t.Run("unknown exam", func(t *testing.T) {
		_, _, _, service := newExamTestFixture(examTestNow)
		if _, err := service.Start(ctx, 999); !IsNotFound(err) {
			t.Errorf("Expected not-found error, got %v", err)
		}
	})
}

func TestExamService_Terminate(t *testing.T) {
	ctx := context.Background()
	_, publisher, clock, service := newExamTestFixture(examTestNow)

	exam, err := service.Create(ctx, validCreateRequest(todayStr()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Terminating a scheduled exam is rejected.
	if _, err := service.Terminate(ctx, exam.ID); !IsPrecondition(err) {
		t.Errorf("Expected precondition error, got %v", err)
	}

	if _, err := service.Start(ctx, exam.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	publisher.ClearEvents()

	clock.now = clock.now.Add(20 * time.Minute)
	terminated, err := service.Terminate(ctx, exam.ID)
	if err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}
	if terminated.Status != models.ExamTerminated {
		t.Errorf("Expected terminated status, got %s", terminated.Status)
	}
	// Termination records the actual instant, not planned end.
	if terminated.EndedAt == nil || !terminated.EndedAt.Equal(clock.now) {
		t.Errorf("Expected EndedAt %v, got %v", clock.now, terminated.EndedAt)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventExamTerminated {
		t.Errorf("Expected one %s event, got %v", events.EventExamTerminated, published)
	}

	// Terminal state: no further terminate.
	if _, err := service.Terminate(ctx, exam.ID); !IsPrecondition(err) {
		t.Errorf("Expected precondition error, got %v", err)
	}
}

func TestExamService_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	_, publisher, clock, service := newExamTestFixture(examTestNow)

	exam, err := service.Create(ctx, validCreateRequest(todayStr()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	started, err := service.Start(ctx, exam.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	publisher.ClearEvents()

	plannedEnd := started.StartedAt.Add(60 * time.Minute)

	// Before planned end nothing happens.
	clock.now = plannedEnd.Add(-1 * time.Minute)
	got, err := service.GetByID(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.ExamStarted {
		t.Errorf("Expected still started, got %s", got.Status)
	}

	// Read well past planned end: ended with EndedAt at the planned end,
	// not the observation instant.
	clock.now = plannedEnd.Add(2 * time.Hour)
	got, err = service.GetByID(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.ExamEnded {
		t.Errorf("Expected ended, got %s", got.Status)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(plannedEnd) {
		t.Errorf("Expected EndedAt %v, got %v", plannedEnd, got.EndedAt)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventExamEnded {
		t.Fatalf("Expected one %s event, got %v", events.EventExamEnded, published)
	}

	// A second read is idempotent: same EndedAt, no second event.
	again, err := service.GetByID(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !again.EndedAt.Equal(plannedEnd) {
		t.Errorf("Expected stable EndedAt %v, got %v", plannedEnd, again.EndedAt)
	}
	if count := len(publisher.GetPublishedEvents()); count != 1 {
		t.Errorf("Expected no further events, got %d", count)
	}
}

func TestExamService_List_ExpiresDueExams(t *testing.T) {
	ctx := context.Background()
	repo, _, clock, service := newExamTestFixture(examTestNow)

	exam, err := service.Create(ctx, validCreateRequest(todayStr()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.Start(ctx, exam.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	clock.now = clock.now.Add(61 * time.Minute)
	resp, err := service.List(ctx, repositories.ExamFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Exams) != 1 {
		t.Fatalf("Expected 1 exam, got %d", len(resp.Exams))
	}
	if resp.Exams[0].Status != models.ExamEnded {
		t.Errorf("Expected ended status in listing, got %s", resp.Exams[0].Status)
	}

	// The expiry was persisted, not just reported.
	if repo.exams.exams[exam.ID].Status != models.ExamEnded {
		t.Errorf("Expected stored exam ended, got %s", repo.exams.exams[exam.ID].Status)
	}
}

func TestExamService_Delete(t *testing.T) {
	ctx := context.Background()
	_, _, _, service := newExamTestFixture(examTestNow)

	exam, err := service.Create(ctx, validCreateRequest(todayStr()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.Start(ctx, exam.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Delete works in any state.
	if err := service.Delete(ctx, exam.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := service.Delete(ctx, exam.ID); !IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}
