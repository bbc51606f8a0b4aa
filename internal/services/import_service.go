package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

type importService struct {
	users     UserService
	logger    *slog.Logger
	validator *validator.Validator
}

func NewImportService(users UserService, logger *slog.Logger, validator *validator.Validator) ImportService {
	return &importService{
		users:     users,
		logger:    logger,
		validator: validator,
	}
}

// ImportStudents bulk-creates student accounts from an xlsx upload. The
// first sheet must carry "email" and "name" header columns; an optional
// "courses" column holds comma-separated course codes. Rows fail
// individually, the import itself does not abort on bad rows.
func (s *importService) ImportStudents(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"email", "name"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	result := &ImportResult{Errors: make([]ImportRowError, 0)}

	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		importRow := validator.StudentImportRow{
			Email: models.NormalizeEmail(get("email")),
			Name:  get("name"),
		}
		if courses := get("courses"); courses != "" {
			importRow.CourseCodes = models.NormalizeCourseCodes(strings.Split(courses, ","))
		}

		if err := s.validator.Validate(&importRow); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, ImportRowError{
				Row:     rowNo,
				Email:   importRow.Email,
				Message: err.Error(),
			})
			continue
		}

		_, err := s.users.CreateStudent(ctx, &CreateStudentRequest{
			Email:       importRow.Email,
			Name:        importRow.Name,
			CourseCodes: importRow.CourseCodes,
		})
		if err != nil {
			if IsValidation(err) {
				// Duplicate or otherwise invalid row: skip, keep going.
				result.Skipped++
				result.Errors = append(result.Errors, ImportRowError{
					Row:     rowNo,
					Email:   importRow.Email,
					Message: err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("import aborted at row %d: %w", rowNo, err)
		}

		result.Created++
	}

	s.logger.Info("Student import finished",
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors))

	return result, nil
}
