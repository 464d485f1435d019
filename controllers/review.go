package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMyAssignments lists the authenticated reviewer's assignments, soonest
// due first.
func GetMyAssignments(c *gin.Context) {
	actor := currentActor(c)

	assignments, err := assignmentService().AssignmentsForReviewer(actor.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// StartReview opens a draft review for an assignment.
func StartReview(c *gin.Context) {
	assignmentID, ok := idParam(c, "assignment_id")
	if !ok {
		return
	}

	if err := reviewService().StartReview(currentActor(c), assignmentID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review started"})
}

type SubmitReviewRequest struct {
	Assessment     string `json:"assessment" binding:"required"`
	Recommendation string `json:"recommendation" binding:"required"`
}

// SubmitReview finalizes a review. When the submitted count reaches the
// required reviewer count the submission leaves the review phase.
func SubmitReview(c *gin.Context) {
	assignmentID, ok := idParam(c, "assignment_id")
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := reviewService().SubmitReview(currentActor(c), assignmentID, req.Assessment, req.Recommendation)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           result.Status,
		"reviews_complete": result.ReviewsComplete,
		"reviews_required": result.ReviewsRequired,
	})
}

type RequestRevisionRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// RequestRevision sends the submission back to the researcher with a
// reviewer comment.
func RequestRevision(c *gin.Context) {
	assignmentID, ok := idParam(c, "assignment_id")
	if !ok {
		return
	}
	var req RequestRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := reviewService().RequestRevision(currentActor(c), assignmentID, req.Comment); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Revision requested"})
}
