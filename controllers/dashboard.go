package controllers

import (
	"net/http"
	"time"

	"ethics-review-api/config"
	"ethics-review-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetDashboardStats summarizes the workflow queue. Researchers see their own
// submissions; office roles see the whole board.
func GetDashboardStats(c *gin.Context) {
	actor := currentActor(c)

	base := func() *gorm.DB {
		query := config.DB.Model(&models.Submission{}).Where("delete_at IS NULL")
		if actor.Role == models.RoleResearcher {
			query = query.Where("user_id = ?", actor.ID)
		}
		return query
	}

	byStatus := gin.H{}
	for _, status := range []models.SubmissionStatus{
		models.StatusNewSubmission, models.StatusAwaitingClassification,
		models.StatusClassified, models.StatusUnderReview,
		models.StatusReviewComplete, models.StatusNeedsRevision,
		models.StatusResubmit, models.StatusApproved, models.StatusRejected,
	} {
		var count int64
		if err := base().Where("status = ?", status).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
		byStatus[string(status)] = count
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	stats := gin.H{
		"total":     total,
		"by_status": byStatus,
	}

	// Office roles also see the overdue review backlog.
	if actor.Role != models.RoleResearcher {
		var overdue int64
		if err := config.DB.Model(&models.ReviewerAssignment{}).
			Where("status <> ? AND due_date < ?", models.AssignmentCompleted, time.Now()).
			Count(&overdue).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
		stats["overdue_reviews"] = overdue
	}

	c.JSON(http.StatusOK, stats)
}
