package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/techcadd/exam-admin-service/internal/services"
	"github.com/techcadd/exam-admin-service/internal/utils"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

type HandlerManager struct {
	courseHandler *CourseHandler
	userHandler   *UserHandler
	examHandler   *ExamHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		courseHandler: NewCourseHandler(serviceManager.Course(), validator, logger),
		userHandler:   NewUserHandler(serviceManager.User(), serviceManager.Import(), validator, logger),
		examHandler:   NewExamHandler(serviceManager.Exam(), validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Login provisioning is called by the auth frontend before any
	// identity headers exist, so it sits outside the identified group.
	router.POST("/api/v1/auth/provision", hm.userHandler.ProvisionLogin)

	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		// Course routes
		courses := v1.Group("/courses")
		{
			// Create/modify courses - superadmin only
			courses.POST("", RequireSuperAdmin(), hm.courseHandler.CreateCourse)
			courses.PUT("/:code", RequireSuperAdmin(), hm.courseHandler.RenameCourse)
			courses.PUT("/:code/subadmins", RequireSuperAdmin(), hm.courseHandler.SetSubadmins)
			courses.DELETE("/:code", RequireSuperAdmin(), hm.courseHandler.DeleteCourse)

			// View courses - all identified users
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:code", hm.courseHandler.GetCourse)
		}

		// User routes - mutations superadmin only
		users := v1.Group("/users")
		{
			users.POST("/subadmins", RequireSuperAdmin(), hm.userHandler.CreateSubadmin)
			users.POST("/students", RequireSuperAdmin(), hm.userHandler.CreateStudent)
			users.POST("/students/import", RequireSuperAdmin(), hm.userHandler.ImportStudents)
			users.PUT("/:email/access", RequireSuperAdmin(), hm.userHandler.UpdateAccess)
			users.DELETE("/:email", RequireSuperAdmin(), hm.userHandler.DeleteUser)

			users.GET("", hm.userHandler.ListUsers)
			users.GET("/:email", hm.userHandler.GetUser)
		}

		// Exam routes - mutations superadmin only
		exams := v1.Group("/exams")
		{
			exams.POST("", RequireSuperAdmin(), hm.examHandler.CreateExam)
			exams.PUT("/:id", RequireSuperAdmin(), hm.examHandler.UpdateExam)
			exams.PUT("/:id/assignments", RequireSuperAdmin(), hm.examHandler.AssignSets)
			exams.POST("/:id/start", RequireSuperAdmin(), hm.examHandler.StartExam)
			exams.POST("/:id/terminate", RequireSuperAdmin(), hm.examHandler.TerminateExam)
			exams.DELETE("/:id", RequireSuperAdmin(), hm.examHandler.DeleteExam)

			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-admin-service",
		})
	})
}
