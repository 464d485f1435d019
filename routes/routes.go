package routes

import (
	"ethics-review-api/controllers"
	"ethics-review-api/middleware"
	"ethics-review-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Ethics Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Dashboard
			protected.GET("/dashboard/stats", controllers.GetDashboardStats)

			// Submissions
			submissions := protected.Group("/submissions")
			{
				submissions.GET("", controllers.GetSubmissions)
				submissions.GET("/:id", controllers.GetSubmission)
				submissions.GET("/:id/history", controllers.GetSubmissionHistory)
				submissions.GET("/:id/documents", controllers.GetDocuments)
				submissions.GET("/:id/verifications", controllers.GetVerifications)
				submissions.GET("/:id/progress", controllers.GetReviewProgress)

				// Researchers own the intake and revision legs
				submissions.POST("", middleware.RequireRole(models.RoleResearcher), controllers.CreateSubmission)
				submissions.PUT("/:id", middleware.RequireRole(models.RoleResearcher), controllers.UpdateSubmission)
				submissions.DELETE("/:id", middleware.RequireRole(models.RoleResearcher), controllers.DeleteSubmission)
				submissions.POST("/:id/documents", middleware.RequireRole(models.RoleResearcher), controllers.UploadDocument)
				submissions.POST("/:id/resubmit", middleware.RequireRole(models.RoleResearcher), controllers.ResubmitSubmission)

				// Staff verify the document set
				submissions.POST("/:id/verify", middleware.RequireRole(models.RoleStaff), controllers.VerifyDocuments)

				// Secretariat classify, assign, and decide
				submissions.POST("/:id/classify", middleware.RequireRole(models.RoleSecretariat), controllers.ClassifySubmission)
				submissions.POST("/:id/assign", middleware.RequireRole(models.RoleSecretariat), controllers.AssignReviewers)
				submissions.POST("/:id/approve", middleware.RequireRole(models.RoleSecretariat), controllers.ApproveSubmission)
				submissions.POST("/:id/reject", middleware.RequireRole(models.RoleSecretariat), controllers.RejectSubmission)
			}

			// Documents
			documents := protected.Group("/documents")
			{
				documents.GET("/types", controllers.GetDocumentTypes)
				documents.GET("/download/:document_id", controllers.DownloadDocument)
			}

			// Reviewer workspace
			reviews := protected.Group("/reviews")
			reviews.Use(middleware.RequireRole(models.RoleReviewer))
			{
				reviews.GET("/assignments", controllers.GetMyAssignments)
				reviews.POST("/assignments/:assignment_id/start", controllers.StartReview)
				reviews.POST("/assignments/:assignment_id/submit", controllers.SubmitReview)
				reviews.POST("/assignments/:assignment_id/conflict", controllers.DeclareConflict)
				reviews.POST("/assignments/:assignment_id/request-revision", controllers.RequestRevision)
			}

			// Reviewer workload board for assignment decisions
			protected.GET("/reviewers/workloads",
				middleware.RequireRole(models.RoleSecretariat), controllers.GetReviewerWorkloads)
		}
	}
}
