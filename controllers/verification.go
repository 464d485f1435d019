package controllers

import (
	"net/http"

	"ethics-review-api/services"

	"github.com/gin-gonic/gin"
)

type VerifyDocumentsRequest struct {
	Decisions []struct {
		DocumentID int    `json:"document_id" binding:"required"`
		Approved   *bool  `json:"approved" binding:"required"`
		Comment    string `json:"comment"`
	} `json:"decisions"`
	OverallFeedback string `json:"overall_feedback"`
}

// VerifyDocuments records a batch of staff verification decisions and routes
// the submission according to the aggregate outcome.
func VerifyDocuments(c *gin.Context) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req VerifyDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decisions := make([]services.DocumentDecision, 0, len(req.Decisions))
	for _, d := range req.Decisions {
		decisions = append(decisions, services.DocumentDecision{
			DocumentID: d.DocumentID,
			Approved:   *d.Approved,
			Comment:    d.Comment,
		})
	}

	result, err := verificationService().VerifyDocuments(currentActor(c), submissionID, decisions, req.OverallFeedback)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome":  result.Outcome,
		"status":   result.Status,
		"feedback": result.Feedback,
	})
}

// GetVerifications lists per-document verification state for a submission.
func GetVerifications(c *gin.Context) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}

	verifications, err := verificationService().Verifications(submissionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verifications": verifications,
		"total":         len(verifications),
	})
}
