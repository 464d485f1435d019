package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type DecisionRequest struct {
	Note string `json:"note"`
}

// ApproveSubmission records the final approval for a review-complete
// submission.
func ApproveSubmission(c *gin.Context) {
	recordDecision(c, true)
}

// RejectSubmission records the final rejection for a review-complete
// submission.
func RejectSubmission(c *gin.Context) {
	recordDecision(c, false)
}

func recordDecision(c *gin.Context, approve bool) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := decisionService().RecordDecision(currentActor(c), submissionID, approve, req.Note)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"submission": submission})
}
