package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	RoleSuperAdmin UserRole = "superadmin"
	RoleSubadmin   UserRole = "subadmin"
	RoleStudent    UserRole = "student"
)

type UserProvider string

const (
	ProviderOTP    UserProvider = "otp"
	ProviderGoogle UserProvider = "google"
)

// Permissions are capability flags attached to each account. They are
// stored as a JSON document, not as separate columns.
type Permissions struct {
	CanManageCourses bool `json:"canManageCourses"`
	CanCreateExam    bool `json:"canCreateExam"`
	CanCheckExam     bool `json:"canCheckExam"`
	CanAttemptExam   bool `json:"canAttemptExam"`
	CanViewResults   bool `json:"canViewResults"`
}

// DefaultPermissions returns the role template applied when an account is
// created or promoted without explicit permissions.
func DefaultPermissions(role UserRole) Permissions {
	switch role {
	case RoleSuperAdmin:
		return Permissions{
			CanManageCourses: true,
			CanCreateExam:    true,
			CanCheckExam:     true,
			CanAttemptExam:   false,
			CanViewResults:   true,
		}
	case RoleSubadmin:
		return Permissions{
			CanManageCourses: false,
			CanCreateExam:    true,
			CanCheckExam:     true,
			CanAttemptExam:   false,
			CanViewResults:   true,
		}
	default:
		return Permissions{
			CanManageCourses: false,
			CanCreateExam:    false,
			CanCheckExam:     false,
			CanAttemptExam:   true,
			CanViewResults:   true,
		}
	}
}

// User is keyed by its lowercase email. CourseCodes means administered
// courses for a subadmin and enrollment for a student; it is empty for
// the superadmin.
type User struct {
	Email            string                           `json:"email" gorm:"primaryKey;size:255"`
	Name             string                           `json:"name" gorm:"not null;size:200"`
	Role             UserRole                         `json:"role" gorm:"not null;size:20;index"`
	IsActive         bool                             `json:"isActive" gorm:"not null;default:true"`
	Permissions      datatypes.JSONType[Permissions]  `json:"permissions" gorm:"type:jsonb"`
	CourseCodes      datatypes.JSONSlice[string]      `json:"courseCodes" gorm:"type:jsonb"`
	Provider         UserProvider                     `json:"provider" gorm:"size:20"`
	ProfileImagePath *string                          `json:"profileImagePath" gorm:"size:500"`

	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

func (User) TableName() string {
	return "users"
}

// NormalizeEmail returns the canonical form used for all lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnrolledInAny reports whether the user's CourseCodes intersect the
// given codes. Codes are assumed canonical.
func (u *User) EnrolledInAny(codes []string) bool {
	for _, enrolled := range u.CourseCodes {
		for _, code := range codes {
			if enrolled == code {
				return true
			}
		}
	}
	return false
}
