package services

import (
	"fmt"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// reviewerCountByClassification is the single authoritative policy table
// mapping a risk tier to its required reviewer count. Callers must never
// carry their own copy of these numbers.
var reviewerCountByClassification = map[string]int{
	models.ClassificationExempted:   0,
	models.ClassificationExpedited:  3,
	models.ClassificationFullReview: 5,
}

// RequiredReviewers returns the reviewer count for a classification tag.
func RequiredReviewers(classification string) (int, error) {
	count, ok := reviewerCountByClassification[classification]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClassification, classification)
	}
	return count, nil
}

// ClassificationResult reports the outcome of a classification action.
type ClassificationResult struct {
	Classification    string                  `json:"classification"`
	RequiredReviewers int                     `json:"required_reviewers"`
	Status            models.SubmissionStatus `json:"status"`
}

// ClassificationService assigns a risk tier to a verified submission and
// derives its required reviewer count.
type ClassificationService struct {
	db       *gorm.DB
	machine  *StatusMachine
	history  *HistoryService
	notifier Notifier
	renderer Renderer
	store    ObjectStore
}

func NewClassificationService(db *gorm.DB, history *HistoryService, notifier Notifier, renderer Renderer, store ObjectStore) *ClassificationService {
	return &ClassificationService{
		db:       db,
		machine:  NewStatusMachine(),
		history:  history,
		notifier: notifier,
		renderer: renderer,
		store:    store,
	}
}

// Classify records the risk tier. Exempted submissions bypass review
// entirely: every document verification is approved retroactively, open
// revision comments are resolved and the submission jumps to approved.
// Expedited and full-review submissions move to classified and wait for
// reviewer assignment with no document or comment side effects.
func (s *ClassificationService) Classify(actor Actor, submissionID int, classification string) (*ClassificationResult, error) {
	if !actor.HasRole(models.RoleSecretariat, models.RoleAdmin) {
		return nil, fmt.Errorf("%w: classification requires secretariat role", ErrUnauthorized)
	}

	required, err := RequiredReviewers(classification)
	if err != nil {
		return nil, err
	}

	var result ClassificationResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var submission models.Submission
		if err := tx.Where("submission_id = ? AND delete_at IS NULL", submissionID).
			First(&submission).Error; err != nil {
			return wrapNotFound(err, "submission %d", submissionID)
		}

		if submission.IsClassified() {
			var assignments int64
			if err := tx.Model(&models.ReviewerAssignment{}).
				Where("submission_id = ?", submissionID).
				Count(&assignments).Error; err != nil {
				return err
			}
			if assignments > 0 {
				return fmt.Errorf("%w: submission %d already classified as %s with %d assignments",
					ErrAlreadyClassified, submissionID, *submission.Classification, assignments)
			}
		}

		now := time.Now()
		if classification == models.ClassificationExempted {
			// Retroactive approval of every verification row, idempotent by
			// construction: rows already approved stay approved.
			if err := tx.Model(&models.DocumentVerification{}).
				Where("submission_id = ?", submissionID).
				Updates(map[string]interface{}{
					"approved":    true,
					"verified_by": actor.ID,
					"verified_at": now,
				}).Error; err != nil {
				return fmt.Errorf("failed to approve verifications: %w", err)
			}

			if err := tx.Model(&models.RevisionComment{}).
				Where("submission_id = ? AND resolved = ?", submissionID, false).
				Updates(map[string]interface{}{
					"resolved":    true,
					"resolved_at": now,
				}).Error; err != nil {
				return fmt.Errorf("failed to resolve revision comments: %w", err)
			}

			updates := map[string]interface{}{
				"classification":          classification,
				"required_reviewer_count": required,
				"classified_at":           now,
				"verification_status":     models.VerificationVerified,
				"updated_at":              now,
			}
			if err := s.machine.Transition(tx, &submission, models.StatusExempted, CauseClassification, updates); err != nil {
				return err
			}
			if err := s.machine.Transition(tx, &submission, models.StatusApproved, CauseClassification, map[string]interface{}{
				"updated_at": now,
			}); err != nil {
				return err
			}
		} else {
			updates := map[string]interface{}{
				"classification":          classification,
				"required_reviewer_count": required,
				"classified_at":           now,
				"updated_at":              now,
			}
			if err := s.machine.Transition(tx, &submission, models.StatusClassified, CauseClassification, updates); err != nil {
				return err
			}
		}

		result = ClassificationResult{
			Classification:    classification,
			RequiredReviewers: required,
			Status:            submission.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.history.Record(submissionID, "classify", actor, map[string]interface{}{
		"classification":     result.Classification,
		"required_reviewers": result.RequiredReviewers,
		"status":             result.Status,
	})
	if classification == models.ClassificationExempted {
		attachRendered(s.db, s.renderer, s.store, submissionID,
			RenderApprovalCertificate, models.DocTypeCertificateOfApproval, actor)
		s.notifyDecision(submissionID, "approved as exempted")
	}

	return &result, nil
}

func (s *ClassificationService) notifyDecision(submissionID int, outcome string) {
	var submission models.Submission
	if err := s.db.Preload("User").Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		return
	}
	if submission.User == nil || submission.User.Email == "" {
		return
	}
	subject := fmt.Sprintf("Submission %s: %s", submission.TrackingCode, outcome)
	body := fmt.Sprintf("<p>Your submission <b>%s</b> has been %s.</p>", submission.TrackingCode, outcome)
	notifyAsync(s.notifier, []string{submission.User.Email}, subject, body)
}
