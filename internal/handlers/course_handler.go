package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/services"
	"github.com/techcadd/exam-admin-service/internal/utils"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
	validator     *validator.Validator
}

func NewCourseHandler(courseService services.CourseService, validator *validator.Validator, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
		validator:     validator,
	}
}

// CreateCourse registers a course; the code is optional and serial-derived
// when omitted
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// RenameCourse changes a course's display name
func (h *CourseHandler) RenameCourse(c *gin.Context) {
	var req services.RenameCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courseService.Rename(c.Request.Context(), c.Param("code"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// SetSubadmins replaces the full assigned-subadmin set of a course
func (h *CourseHandler) SetSubadmins(c *gin.Context) {
	var req services.SetSubadminsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courseService.SetSubadmins(c.Request.Context(), c.Param("code"), req.Emails)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse removes a course and sweeps it from user enrollment
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	if err := h.courseService.Delete(c.Request.Context(), c.Param("code")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetCourse retrieves one course by code
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseService.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// ListCourses lists courses with optional search and pagination
func (h *CourseHandler) ListCourses(c *gin.Context) {
	limit, offset := parsePagination(c)
	filters := repositories.CourseFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if search := c.Query("search"); search != "" {
		filters.Search = &search
	}

	courses, err := h.courseService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}
