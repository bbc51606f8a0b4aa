package models

import (
	"time"

	"gorm.io/datatypes"
)

type ExamStatus string

const (
	ExamScheduled  ExamStatus = "scheduled"
	ExamStarted    ExamStatus = "started"
	ExamEnded      ExamStatus = "ended"
	ExamTerminated ExamStatus = "terminated"
)

// IsTerminal reports whether no further transition is possible.
func (s ExamStatus) IsTerminal() bool {
	return s == ExamEnded || s == ExamTerminated
}

// ExamSet is a named variant of an exam ("Set A", "Set B"). Names are
// unique within an exam.
type ExamSet struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SetAssignment maps one student to exactly one set of an exam.
type SetAssignment struct {
	StudentEmail string `json:"studentEmail"`
	SetName      string `json:"setName"`
}

// ExamDateLayout is the civil-date format used for ExamDate. The field
// deliberately carries no time component: start eligibility compares
// against the server's local calendar date.
const ExamDateLayout = "2006-01-02"

type Exam struct {
	ID                    uint                               `json:"id" gorm:"primaryKey"`
	CourseCodes           datatypes.JSONSlice[string]        `json:"courseCodes" gorm:"type:jsonb"`
	ExamDate              string                             `json:"examDate" gorm:"size:10;not null;index"`
	DurationMinutes       int                                `json:"durationMinutes" gorm:"not null"`
	Sets                  datatypes.JSONSlice[ExamSet]       `json:"sets" gorm:"type:jsonb"`
	StudentSetAssignments datatypes.JSONSlice[SetAssignment] `json:"studentSetAssignments" gorm:"type:jsonb"`
	Status                ExamStatus                         `json:"status" gorm:"size:20;not null;default:scheduled;index"`
	StartedAt             *time.Time                         `json:"startedAt"`
	EndedAt               *time.Time                         `json:"endedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Exam) TableName() string {
	return "exams"
}

// PlannedEnd is the instant a started exam is due to end. Zero time when
// the exam has not been started.
func (e *Exam) PlannedEnd() time.Time {
	if e.StartedAt == nil {
		return time.Time{}
	}
	return e.StartedAt.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// HasSet reports whether a set with the given name exists on the exam.
func (e *Exam) HasSet(name string) bool {
	for _, set := range e.Sets {
		if set.Name == name {
			return true
		}
	}
	return false
}
