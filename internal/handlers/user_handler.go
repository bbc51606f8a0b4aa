package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techcadd/exam-admin-service/internal/models"
	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/services"
	"github.com/techcadd/exam-admin-service/internal/utils"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

type UserHandler struct {
	BaseHandler
	userService   services.UserService
	importService services.ImportService
	validator     *validator.Validator
}

func NewUserHandler(userService services.UserService, importService services.ImportService, validator *validator.Validator, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler:   NewBaseHandler(logger),
		userService:   userService,
		importService: importService,
		validator:     validator,
	}
}

// ProvisionLogin upserts an account after a successful upstream sign-in.
// A denied sign-in answers 403 without creating anything.
func (h *UserHandler) ProvisionLogin(c *gin.Context) {
	var req services.ProvisionLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.ProvisionOnLogin(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Sign-in not permitted for this account",
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateSubadmin creates a managed subadmin account
func (h *UserHandler) CreateSubadmin(c *gin.Context) {
	var req services.CreateSubadminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.CreateSubadmin(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// CreateStudent creates a managed student account
func (h *UserHandler) CreateStudent(c *gin.Context) {
	var req services.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.CreateStudent(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ImportStudents bulk-creates students from an uploaded xlsx file
func (h *UserHandler) ImportStudents(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.importService.ImportStudents(c.Request.Context(), file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateAccess applies a partial update to a user's access fields
func (h *UserHandler) UpdateAccess(c *gin.Context) {
	var req services.UpdateAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.UpdateAccess(c.Request.Context(), c.Param("email"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user account
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), c.Param("email")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUser retrieves one user by email
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers lists users with optional role/activation/course filters
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, offset := parsePagination(c)
	filters := repositories.UserFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filters.Role = &r
	}
	if active := c.Query("is_active"); active != "" {
		isActive := active == "true"
		filters.IsActive = &isActive
	}
	if code := c.Query("course_code"); code != "" {
		normalized := models.NormalizeCourseCode(code)
		filters.CourseCode = &normalized
	}
	if search := c.Query("search"); search != "" {
		filters.Search = &search
	}

	users, err := h.userService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}
