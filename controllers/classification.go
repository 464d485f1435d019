package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ClassifyRequest struct {
	Classification string `json:"classification" binding:"required"`
}

// ClassifySubmission records the risk tier and derives the required reviewer
// count. Exempted submissions go straight to approval.
func ClassifySubmission(c *gin.Context) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := classificationService().Classify(currentActor(c), submissionID, req.Classification)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"classification":     result.Classification,
		"required_reviewers": result.RequiredReviewers,
		"status":             result.Status,
	})
}
