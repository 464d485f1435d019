package controllers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"ethics-review-api/config"
	"ethics-review-api/services"

	"github.com/gin-gonic/gin"
)

// currentActor builds the service-layer actor from the authenticated context.
func currentActor(c *gin.Context) services.Actor {
	userID, _ := c.Get("userID")
	role, _ := c.Get("role")

	actor := services.Actor{}
	if id, ok := userID.(int); ok {
		actor.ID = id
	}
	if name, ok := role.(string); ok {
		actor.Role = name
	}
	return actor
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// handleServiceError translates engine sentinels into HTTP responses.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidClassification),
		errors.Is(err, services.ErrIncompleteBatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrIllegalTransition),
		errors.Is(err, services.ErrAlreadyClassified),
		errors.Is(err, services.ErrDuplicateAssignment),
		errors.Is(err, services.ErrIncompleteReset),
		errors.Is(err, services.ErrPartialAssignmentFailure):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func notifier() services.Notifier {
	if os.Getenv("SMTP_HOST") == "" {
		return services.NoopNotifier{}
	}
	return services.MailNotifier{}
}

func objectStore() services.ObjectStore {
	root := os.Getenv("UPLOAD_PATH")
	if root == "" {
		root = "./uploads"
	}
	return services.NewLocalObjectStore(root)
}

func historyService() *services.HistoryService {
	return services.NewHistoryService(config.DB)
}

func verificationService() *services.VerificationService {
	return services.NewVerificationService(config.DB, historyService(), notifier())
}

func classificationService() *services.ClassificationService {
	return services.NewClassificationService(config.DB, historyService(), notifier(), services.NewHTMLRenderer(config.DB), objectStore())
}

func assignmentService() *services.AssignmentService {
	return services.NewAssignmentService(config.DB, historyService(), notifier())
}

func reviewService() *services.ReviewService {
	return services.NewReviewService(config.DB, historyService(), notifier())
}

func resubmissionService() *services.ResubmissionService {
	return services.NewResubmissionService(config.DB, historyService(), notifier())
}

func decisionService() *services.DecisionService {
	return services.NewDecisionService(config.DB, historyService(), notifier(), services.NewHTMLRenderer(config.DB), objectStore())
}
