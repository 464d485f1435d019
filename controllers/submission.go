package controllers

import (
	"ethics-review-api/config"
	"ethics-review-api/models"
	"ethics-review-api/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type CreateSubmissionRequest struct {
	Title string `json:"title" binding:"required"`
}

// CreateSubmission opens a new protocol submission for the authenticated
// researcher.
func CreateSubmission(c *gin.Context) {
	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := currentActor(c)
	now := time.Now()
	submission := models.Submission{
		TrackingCode:       utils.GenerateTrackingCode(now),
		Title:              utils.SanitizeInput(req.Title),
		UserID:             actor.ID,
		Status:             models.StatusNewSubmission,
		VerificationStatus: models.VerificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
		SubmittedAt:        &now,
	}

	if err := config.DB.Create(&submission).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	historyService().Record(submission.SubmissionID, "create_submission", actor, map[string]interface{}{
		"tracking_code": submission.TrackingCode,
	})

	c.JSON(http.StatusCreated, gin.H{"submission": submission})
}

// GetSubmissions lists submissions. Researchers see their own; office roles
// see everything, optionally filtered by status.
func GetSubmissions(c *gin.Context) {
	actor := currentActor(c)

	query := config.DB.Preload("User").Where("delete_at IS NULL")
	if actor.Role == models.RoleResearcher {
		query = query.Where("user_id = ?", actor.ID)
	}
	if status := c.Query("status"); status != "" {
		if !models.SubmissionStatus(status).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
			return
		}
		query = query.Where("status = ?", status)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": submissions,
		"total":       len(submissions),
	})
}

// GetSubmission returns one submission with its documents, verification rows
// and assignments.
func GetSubmission(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var submission models.Submission
	if err := config.DB.Preload("User").Preload("User.Role").
		Preload("Documents", "delete_at IS NULL").
		Preload("Documents.DocumentType").
		Preload("Assignments").
		Preload("RevisionComments").
		Where("submission_id = ? AND delete_at IS NULL", id).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	if !canViewSubmission(c, &submission) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	verifications, err := verificationService().Verifications(submission.SubmissionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch verifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission":    submission,
		"verifications": verifications,
	})
}

type UpdateSubmissionRequest struct {
	Title string `json:"title" binding:"required"`
}

// UpdateSubmission edits the title while the submission is still with the
// researcher.
func UpdateSubmission(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := currentActor(c)
	var submission models.Submission
	if err := config.DB.Where("submission_id = ? AND delete_at IS NULL", id).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if submission.UserID != actor.ID && actor.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	if submission.Status != models.StatusNewSubmission && submission.Status != models.StatusNeedsRevision {
		c.JSON(http.StatusConflict, gin.H{"error": "Submission can no longer be edited"})
		return
	}

	if err := config.DB.Model(&submission).Updates(map[string]interface{}{
		"title":      utils.SanitizeInput(req.Title),
		"updated_at": time.Now(),
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"submission": submission})
}

// DeleteSubmission soft-deletes a submission that has not entered the
// workflow yet.
func DeleteSubmission(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	actor := currentActor(c)
	var submission models.Submission
	if err := config.DB.Where("submission_id = ? AND delete_at IS NULL", id).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if submission.UserID != actor.ID && actor.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	if submission.Status != models.StatusNewSubmission {
		c.JSON(http.StatusConflict, gin.H{"error": "Only unprocessed submissions can be deleted"})
		return
	}

	now := time.Now()
	if err := config.DB.Model(&submission).Update("delete_at", &now).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Submission deleted"})
}

// GetSubmissionHistory returns the audit trail, newest first.
func GetSubmissionHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var submission models.Submission
	if err := config.DB.Where("submission_id = ? AND delete_at IS NULL", id).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if !canViewSubmission(c, &submission) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	entries, err := historyService().Entries(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"total":   len(entries),
	})
}

// canViewSubmission gates detail access: the owner, office roles, and
// reviewers assigned to the submission.
func canViewSubmission(c *gin.Context, submission *models.Submission) bool {
	actor := currentActor(c)
	switch actor.Role {
	case models.RoleStaff, models.RoleSecretariat, models.RoleAdmin:
		return true
	case models.RoleReviewer:
		var count int64
		config.DB.Model(&models.ReviewerAssignment{}).
			Where("submission_id = ? AND reviewer_id = ?", submission.SubmissionID, actor.ID).
			Count(&count)
		return count > 0
	default:
		return submission.UserID == actor.ID
	}
}
