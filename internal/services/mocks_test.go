package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
)

// In-memory repositories for testing. They ignore the tx parameter;
// WithTransaction hands back the same repository so cascade paths run
// against the shared maps.

type mockCourseRepository struct {
	mu      sync.Mutex
	courses map[string]*models.Course
}

func newMockCourseRepository() *mockCourseRepository {
	return &mockCourseRepository{courses: make(map[string]*models.Course)}
}

func (m *mockCourseRepository) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[course.Code]; ok {
		return gorm.ErrDuplicatedKey
	}
	clone := *course
	m.courses[course.Code] = &clone
	return nil
}

func (m *mockCourseRepository) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *course
	return &clone, nil
}

func (m *mockCourseRepository) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[course.Code]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *course
	m.courses[course.Code] = &clone
	return nil
}

func (m *mockCourseRepository) Delete(ctx context.Context, tx *gorm.DB, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[code]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.courses, code)
	return nil
}

func (m *mockCourseRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Course, 0, len(m.courses))
	for _, course := range m.courses {
		clone := *course
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, int64(len(out)), nil
}

func (m *mockCourseRepository) GetByCodes(ctx context.Context, tx *gorm.DB, codes []string) ([]*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Course, 0, len(codes))
	for _, code := range codes {
		if course, ok := m.courses[code]; ok {
			clone := *course
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockCourseRepository) GetAllCodes(ctx context.Context, tx *gorm.DB) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.courses))
	for code := range m.courses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *mockCourseRepository) ExistsByCode(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.courses[code]
	return ok, nil
}

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*models.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return gorm.ErrDuplicatedKey
	}
	clone := *user
	m.users[user.Email] = &clone
	return nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepository) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *user
	m.users[user.Email] = &clone
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, tx *gorm.DB, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, email)
	return nil
}

func (m *mockUserRepository) CreateBatch(ctx context.Context, tx *gorm.DB, users []*models.User) error {
	for _, user := range users {
		if err := m.Create(ctx, tx, user); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockUserRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(m.users))
	for _, user := range m.users {
		if filters.Role != nil && user.Role != *filters.Role {
			continue
		}
		if filters.IsActive != nil && user.IsActive != *filters.IsActive {
			continue
		}
		if filters.CourseCode != nil && !user.EnrolledInAny([]string{*filters.CourseCode}) {
			continue
		}
		clone := *user
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, int64(len(out)), nil
}

func (m *mockUserRepository) GetByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error) {
	users, _, err := m.List(ctx, tx, repositories.UserFilters{Role: &role})
	return users, err
}

func (m *mockUserRepository) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(emails))
	for _, email := range emails {
		if user, ok := m.users[email]; ok {
			clone := *user
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockUserRepository) ListByCourseCode(ctx context.Context, tx *gorm.DB, code string) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0)
	for _, user := range m.users {
		if user.EnrolledInAny([]string{code}) {
			clone := *user
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *mockUserRepository) ListActiveStudentsByCourses(ctx context.Context, tx *gorm.DB, codes []string) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0)
	for _, user := range m.users {
		if user.Role != models.RoleStudent || !user.IsActive {
			continue
		}
		if user.EnrolledInAny(codes) {
			clone := *user
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[email]
	return ok, nil
}

type mockExamRepository struct {
	mu     sync.Mutex
	nextID uint
	exams  map[uint]*models.Exam
}

func newMockExamRepository() *mockExamRepository {
	return &mockExamRepository{nextID: 1, exams: make(map[uint]*models.Exam)}
}

func (m *mockExamRepository) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam.ID = m.nextID
	m.nextID++
	clone := *exam
	m.exams[exam.ID] = &clone
	return nil
}

func (m *mockExamRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *exam
	return &clone, nil
}

func (m *mockExamRepository) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[exam.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *exam
	m.exams[exam.ID] = &clone
	return nil
}

func (m *mockExamRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.exams, id)
	return nil
}

func (m *mockExamRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Exam, 0, len(m.exams))
	for _, exam := range m.exams {
		if filters.Status != nil && exam.Status != *filters.Status {
			continue
		}
		if filters.ExamDate != nil && exam.ExamDate != *filters.ExamDate {
			continue
		}
		clone := *exam
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockExamRepository) GetByStatus(ctx context.Context, tx *gorm.DB, status models.ExamStatus) ([]*models.Exam, error) {
	exams, _, err := m.List(ctx, tx, repositories.ExamFilters{Status: &status})
	return exams, err
}

func (m *mockExamRepository) UpdateStatusGuarded(ctx context.Context, tx *gorm.DB, id uint, expected models.ExamStatus, updates map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[id]
	if !ok || exam.Status != expected {
		return 0, nil
	}
	for column, value := range updates {
		switch column {
		case "status":
			exam.Status = value.(models.ExamStatus)
		case "started_at":
			at := value.(time.Time)
			exam.StartedAt = &at
		case "ended_at":
			at := value.(time.Time)
			exam.EndedAt = &at
		}
	}
	return 1, nil
}

func (m *mockExamRepository) UpdateAssignments(ctx context.Context, tx *gorm.DB, id uint, assignments []models.SetAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	exam.StudentSetAssignments = datatypes.NewJSONSlice(assignments)
	return nil
}

type mockRepository struct {
	courses *mockCourseRepository
	users   *mockUserRepository
	exams   *mockExamRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		courses: newMockCourseRepository(),
		users:   newMockUserRepository(),
		exams:   newMockExamRepository(),
	}
}

func (m *mockRepository) Course() repositories.CourseRepository { return m.courses }
func (m *mockRepository) User() repositories.UserRepository     { return m.users }
func (m *mockRepository) Exam() repositories.ExamRepository     { return m.exams }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }
