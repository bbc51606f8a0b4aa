package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/services"
	"github.com/techcadd/exam-admin-service/internal/utils"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

type ExamHandler struct {
	BaseHandler
	examService services.ExamService
	validator   *validator.Validator
}

func NewExamHandler(examService services.ExamService, validator *validator.Validator, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		examService: examService,
		validator:   validator,
	}
}

func (h *ExamHandler) examID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid exam ID",
			Details: err.Error(),
		})
		return 0, false
	}
	return uint(id), true
}

// CreateExam schedules a new exam
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// UpdateExam replaces an exam's definition
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := h.examID(c)
	if !ok {
		return
	}

	var req services.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// AssignSets replaces an exam's student set assignments
func (h *ExamHandler) AssignSets(c *gin.Context) {
	id, ok := h.examID(c)
	if !ok {
		return
	}

	var req services.AssignSetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.examService.AssignSets(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// StartExam transitions a scheduled exam to started
func (h *ExamHandler) StartExam(c *gin.Context) {
	id, ok := h.examID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Start(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// TerminateExam forcibly ends a running exam
func (h *ExamHandler) TerminateExam(c *gin.Context) {
	id, ok := h.examID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Terminate(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// DeleteExam removes an exam in any state
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := h.examID(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetExam retrieves one exam, settling overdue ones along the way
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := h.examID(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// ListExams lists exams with optional status/course/date filters
func (h *ExamHandler) ListExams(c *gin.Context) {
	limit, offset := parsePagination(c)
	filters := repositories.ExamFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.ExamStatus(status)
		filters.Status = &s
	}
	if code := c.Query("course_code"); code != "" {
		normalized := models.NormalizeCourseCode(code)
		filters.CourseCode = &normalized
	}
	if date := c.Query("exam_date"); date != "" {
		filters.ExamDate = &date
	}

	exams, err := h.examService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}
