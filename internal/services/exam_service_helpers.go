package services

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/techcadd/exam-admin-service/internal/models"
)

// Permitted daily start window: exams may only be started between 09:00
// inclusive and 18:00 exclusive, local time.
const (
	startWindowOpenHour  = 9
	startWindowCloseHour = 18
)

// NormalizeSets trims set names, drops sets with empty names and
// deduplicates by name keeping the first occurrence.
func NormalizeSets(sets []models.ExamSet) []models.ExamSet {
	seen := make(map[string]bool, len(sets))
	out := make([]models.ExamSet, 0, len(sets))
	for _, set := range sets {
		name := strings.TrimSpace(set.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, models.ExamSet{
			Name:        name,
			Description: strings.TrimSpace(set.Description),
		})
	}
	return out
}

// MaybeExpire transitions a started exam to ended once its planned end
// has passed. EndedAt is the planned end, not the observation instant:
// an exam read hours later still records the moment it ran out of time.
// Returns true when the exam was mutated.
func MaybeExpire(exam *models.Exam, now time.Time) bool {
	if exam.Status != models.ExamStarted || exam.StartedAt == nil {
		return false
	}

	plannedEnd := exam.PlannedEnd()
	if now.Before(plannedEnd) {
		return false
	}

	exam.Status = models.ExamEnded
	exam.EndedAt = &plannedEnd
	return true
}

// checkStartPreconditions validates start eligibility in order, each
// failure carrying its own reason. Existence is checked by the caller.
func checkStartPreconditions(exam *models.Exam, now time.Time) error {
	if exam.ExamDate != now.Format(models.ExamDateLayout) {
		return NewPreconditionError("exam", string(exam.Status), "exam is not scheduled for today")
	}

	hour := now.Hour()
	if hour < startWindowOpenHour || hour >= startWindowCloseHour {
		return NewPreconditionError("exam", string(exam.Status), "outside the permitted start window (09:00-18:00)")
	}

	if exam.Status != models.ExamScheduled {
		return NewPreconditionError("exam", string(exam.Status), "exam is not in the scheduled state")
	}

	return nil
}

// pruneAssignments drops assignments referencing set names that no
// longer exist on the exam.
func pruneAssignments(assignments []models.SetAssignment, sets []models.ExamSet) []models.SetAssignment {
	valid := make(map[string]bool, len(sets))
	for _, set := range sets {
		valid[set.Name] = true
	}

	out := make([]models.SetAssignment, 0, len(assignments))
	for _, a := range assignments {
		if valid[a.SetName] {
			out = append(out, a)
		}
	}
	return out
}

// toJSONSets converts a normalized set list into the stored column form.
func toJSONSets(sets []models.ExamSet) datatypes.JSONSlice[models.ExamSet] {
	return datatypes.NewJSONSlice(sets)
}
