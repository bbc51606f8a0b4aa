package services

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
)

// The subadmin relationship is stored twice: course.SubadminEmails and
// user.CourseCodes. Every write path that touches either side goes
// through one of the coordinator functions below so the two views cannot
// drift. All of them expect to run inside a transaction-bound Repository.

// syncSubadminUsersFromCourse reconciles user.CourseCodes after a
// course-side replacement of SubadminEmails. Emails without a matching
// subadmin account are kept on the course but get no user-side edit.
func syncSubadminUsersFromCourse(ctx context.Context, repo repositories.Repository, code string, previous, current []string) error {
	currentSet := make(map[string]bool, len(current))
	for _, email := range current {
		currentSet[email] = true
	}

	for _, email := range previous {
		if currentSet[email] {
			continue
		}
		if err := editUserCourseCodes(ctx, repo, email, code, false); err != nil {
			return err
		}
	}

	for _, email := range current {
		if err := editUserCourseCodes(ctx, repo, email, code, true); err != nil {
			return err
		}
	}

	return nil
}

// syncCoursesFromSubadmin reconciles course.SubadminEmails after a
// user-side change to a subadmin's CourseCodes. Every course is
// recomputed: membership is added where the new codes say so and removed
// everywhere else.
func syncCoursesFromSubadmin(ctx context.Context, repo repositories.Repository, email string, newCodes []string) error {
	wanted := make(map[string]bool, len(newCodes))
	for _, code := range newCodes {
		wanted[code] = true
	}

	courses, _, err := repo.Course().List(ctx, nil, repositories.CourseFilters{})
	if err != nil {
		return fmt.Errorf("failed to list courses for subadmin sync: %w", err)
	}

	for _, course := range courses {
		has := containsString(course.SubadminEmails, email)
		want := wanted[course.Code]
		if has == want {
			continue
		}

		if want {
			course.SubadminEmails = datatypes.NewJSONSlice(append([]string(course.SubadminEmails), email))
		} else {
			course.SubadminEmails = datatypes.NewJSONSlice(removeString(course.SubadminEmails, email))
		}
		if err := repo.Course().Update(ctx, nil, course); err != nil {
			return fmt.Errorf("failed to sync course %s subadmins: %w", course.Code, err)
		}
	}

	return nil
}

// sweepCourseCodeFromUsers removes a deleted course's code from every
// user's enrollment. The sweep is multi-row and completes before course
// deletion is reported done.
func sweepCourseCodeFromUsers(ctx context.Context, repo repositories.Repository, code string) error {
	users, err := repo.User().ListByCourseCode(ctx, nil, code)
	if err != nil {
		return fmt.Errorf("failed to list users for course sweep: %w", err)
	}

	for _, user := range users {
		user.CourseCodes = datatypes.NewJSONSlice(removeString(user.CourseCodes, code))
		if err := repo.User().Update(ctx, nil, user); err != nil {
			return fmt.Errorf("failed to sweep course code from %s: %w", user.Email, err)
		}
	}

	return nil
}

// editUserCourseCodes adds or removes a single code on one user's
// enrollment. Missing users are skipped.
func editUserCourseCodes(ctx context.Context, repo repositories.Repository, email, code string, add bool) error {
	user, err := repo.User().GetByEmail(ctx, nil, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	if user.Role != models.RoleSubadmin {
		return nil
	}

	has := containsString(user.CourseCodes, code)
	if add == has {
		return nil
	}

	if add {
		user.CourseCodes = datatypes.NewJSONSlice(append([]string(user.CourseCodes), code))
	} else {
		user.CourseCodes = datatypes.NewJSONSlice(removeString(user.CourseCodes, code))
	}

	return repo.User().Update(ctx, nil, user)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
