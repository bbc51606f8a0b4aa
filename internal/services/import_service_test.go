package services

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("Failed to build cell reference: %v", err)
			}
			if err := f.SetCellValue(sheet, ref, cell); err != nil {
				t.Fatalf("Failed to set cell value: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Failed to write workbook: %v", err)
	}
	return &buf
}

func newImportTestFixture() (*mockRepository, ImportService) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newMockRepository()
	v := validator.New()
	users := NewUserService(repo, nil, logger, v, testSuperAdmin, &fixedClock{now: userTestNow})
	return repo, NewImportService(users, logger, v)
}

func TestImportService_ImportStudents(t *testing.T) {
	ctx := context.Background()
	repo, service := newImportTestFixture()

	repo.courses.courses["CS-101"] = &models.Course{Code: "CS-101", Name: "Intro"}

	buf := buildWorkbook(t, [][]string{
		{"Email", "Name", "Courses"},
		{"one@ex.com", "One", "cs-101"},
		{"two@ex.com", "Two", ""},
		{"not-an-email", "Bad", ""},
		{"one@ex.com", "Duplicate", ""},
	})

	result, err := service.ImportStudents(ctx, buf)
	if err != nil {
		t.Fatalf("ImportStudents failed: %v", err)
	}

	if result.Created != 2 {
		t.Errorf("Expected 2 created, got %d", result.Created)
	}
	if result.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", result.Skipped)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("Expected 2 row errors, got %d", len(result.Errors))
	}
	if result.Errors[0].Row != 4 {
		t.Errorf("Expected first error on row 4, got %d", result.Errors[0].Row)
	}
	if result.Errors[1].Row != 5 {
		t.Errorf("Expected second error on row 5, got %d", result.Errors[1].Row)
	}

	one, ok := repo.users.users["one@ex.com"]
	if !ok {
		t.Fatal("Expected one@ex.com to exist")
	}
	if one.Role != models.RoleStudent {
		t.Errorf("Expected student role, got %s", one.Role)
	}
	if len(one.CourseCodes) != 1 || one.CourseCodes[0] != "CS-101" {
		t.Errorf("Expected enrollment in CS-101, got %v", one.CourseCodes)
	}
}

func TestImportService_ImportStudents_MissingColumns(t *testing.T) {
	ctx := context.Background()
	_, service := newImportTestFixture()

	buf := buildWorkbook(t, [][]string{
		{"Email", "Courses"},
		{"one@ex.com", ""},
	})

	if _, err := service.ImportStudents(ctx, buf); err == nil {
		t.Error("Expected error for missing name column")
	}
}

func TestImportService_ImportStudents_NoDataRows(t *testing.T) {
	ctx := context.Background()
	_, service := newImportTestFixture()

	buf := buildWorkbook(t, [][]string{{"Email", "Name"}})

	if _, err := service.ImportStudents(ctx, buf); err == nil {
		t.Error("Expected error for empty import")
	}
}
