package controllers

import (
	"net/http"

	"ethics-review-api/config"
	"ethics-review-api/models"

	"github.com/gin-gonic/gin"
)

type AssignReviewersRequest struct {
	ReviewerIDs []int `json:"reviewer_ids" binding:"required,min=1"`
	SLADays     int   `json:"sla_days"`
}

// AssignReviewers assigns the review panel in one all-or-nothing batch and
// moves the submission under review.
func AssignReviewers(c *gin.Context) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AssignReviewersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := assignmentService().Assign(currentActor(c), submissionID, req.ReviewerIDs, req.SLADays)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         result.Status,
		"reviewer_count": result.ReviewerCount,
		"due_date":       result.DueDate,
	})
}

// GetReviewProgress reports completed reviews against the requirement.
func GetReviewProgress(c *gin.Context) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}

	progress, err := assignmentService().Progress(submissionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews_complete": progress.ReviewsComplete,
		"reviews_required": progress.ReviewsRequired,
	})
}

// GetReviewerWorkloads lists every reviewer with active and overdue counts,
// for balancing assignment decisions.
func GetReviewerWorkloads(c *gin.Context) {
	var reviewers []models.User
	if err := config.DB.Joins("JOIN roles ON roles.role_id = users.role_id").
		Where("roles.role = ? AND users.delete_at IS NULL", models.RoleReviewer).
		Find(&reviewers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviewers"})
		return
	}

	svc := assignmentService()
	workloads := make([]gin.H, 0, len(reviewers))
	for _, reviewer := range reviewers {
		workload, err := svc.Workload(reviewer.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute workload"})
			return
		}
		workloads = append(workloads, gin.H{
			"reviewer_id":   reviewer.UserID,
			"name":          reviewer.FullName(),
			"email":         reviewer.Email,
			"active_count":  workload.ActiveCount,
			"overdue_count": workload.OverdueCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"workloads": workloads,
		"total":     len(workloads),
	})
}

// DeclareConflict lets a reviewer step away from an assignment without
// lowering the completion requirement.
func DeclareConflict(c *gin.Context) {
	assignmentID, ok := idParam(c, "assignment_id")
	if !ok {
		return
	}

	if err := assignmentService().DeclareConflict(currentActor(c), assignmentID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conflict of interest recorded"})
}
