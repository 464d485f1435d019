package controllers

import (
	"net/http"

	"ethics-review-api/services"

	"github.com/gin-gonic/gin"
)

type ResubmitRequest struct {
	Title     *string `json:"title"`
	Responses []struct {
		CommentID int    `json:"comment_id"`
		Response  string `json:"response"`
	} `json:"responses"`
}

// ResubmitSubmission sends a revised submission back into verification after
// resetting the rejected document decisions.
func ResubmitSubmission(c *gin.Context) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ResubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	responses := make([]services.RevisionResponse, 0, len(req.Responses))
	for _, r := range req.Responses {
		responses = append(responses, services.RevisionResponse{
			CommentID: r.CommentID,
			Response:  r.Response,
		})
	}

	result, err := resubmissionService().Resubmit(currentActor(c), submissionID,
		services.ResubmitInput{Title: req.Title}, responses)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      result.Status,
		"reset_count": result.ResetCount,
	})
}
