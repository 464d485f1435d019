package services

import (
	"fmt"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// ResubmitInput carries the application-form fields the researcher updated.
type ResubmitInput struct {
	Title *string `json:"title"`
}

// RevisionResponse answers one revision comment. CommentID values of zero or
// below are placeholders synthesized by the frontend and are skipped, never
// written.
type RevisionResponse struct {
	CommentID int    `json:"comment_id"`
	Response  string `json:"response"`
}

// ResubmitResult reports the submission state after resubmission.
type ResubmitResult struct {
	Status             models.SubmissionStatus `json:"status"`
	VerificationStatus string                  `json:"verification_status"`
	ResetCount         int                     `json:"reset_count"`
}

// ResubmissionService routes a revised submission back into verification.
type ResubmissionService struct {
	db       *gorm.DB
	machine  *StatusMachine
	history  *HistoryService
	notifier Notifier

	// afterReset runs inside the transaction between the reset and its safety
	// recount. Tests use it to interleave a concurrent re-rejection.
	afterReset func(tx *gorm.DB) error
}

func NewResubmissionService(db *gorm.DB, history *HistoryService, notifier Notifier) *ResubmissionService {
	return &ResubmissionService{
		db:       db,
		machine:  NewStatusMachine(),
		history:  history,
		notifier: notifier,
	}
}

// Resubmit resets every rejected verification back to pending, applies the
// researcher's updated fields, moves the submission to resubmit and records
// the responses on their revision comments. The whole sequence is one
// transaction; if any rejected verification survives the reset the operation
// aborts with ErrIncompleteReset and nothing is written.
func (s *ResubmissionService) Resubmit(actor Actor, submissionID int, input ResubmitInput, responses []RevisionResponse) (*ResubmitResult, error) {
	if !actor.HasRole(models.RoleResearcher, models.RoleAdmin) {
		return nil, fmt.Errorf("%w: resubmission requires researcher role", ErrUnauthorized)
	}

	var result ResubmitResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var submission models.Submission
		if err := tx.Where("submission_id = ? AND delete_at IS NULL", submissionID).
			First(&submission).Error; err != nil {
			return wrapNotFound(err, "submission %d", submissionID)
		}
		if actor.Role == models.RoleResearcher && submission.UserID != actor.ID {
			return fmt.Errorf("%w: submission %d belongs to another researcher", ErrUnauthorized, submissionID)
		}
		if submission.Status != models.StatusNeedsRevision {
			return fmt.Errorf("%w: submission %d is %s, not %s",
				ErrIllegalTransition, submissionID, submission.Status, models.StatusNeedsRevision)
		}

		now := time.Now()
		reset := tx.Model(&models.DocumentVerification{}).
			Where("submission_id = ? AND approved = ?", submissionID, false).
			Updates(map[string]interface{}{
				"approved":    nil,
				"verified_by": nil,
				"verified_at": nil,
			})
		if reset.Error != nil {
			return fmt.Errorf("failed to reset verifications: %w", reset.Error)
		}

		if s.afterReset != nil {
			if err := s.afterReset(tx); err != nil {
				return err
			}
		}

		// A rejection landing concurrently with the reset leaves rows behind.
		// Detect it after the fact and abort instead of resubmitting a
		// submission that still has rejected documents.
		var remaining int64
		if err := tx.Model(&models.DocumentVerification{}).
			Where("submission_id = ? AND approved = ?", submissionID, false).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return fmt.Errorf("%w: %d rejected verifications remain on submission %d",
				ErrIncompleteReset, remaining, submissionID)
		}

		updates := map[string]interface{}{
			"verification_status":   models.VerificationPending,
			"verification_feedback": nil,
			"updated_at":            now,
		}
		if input.Title != nil {
			updates["title"] = *input.Title
		}
		if err := s.machine.Transition(tx, &submission, models.StatusResubmit, CauseResubmission, updates); err != nil {
			return err
		}

		for _, response := range responses {
			if response.CommentID <= 0 {
				continue
			}
			if err := tx.Model(&models.RevisionComment{}).
				Where("comment_id = ? AND submission_id = ?", response.CommentID, submissionID).
				Updates(map[string]interface{}{
					"response":    response.Response,
					"resolved":    true,
					"resolved_at": now,
				}).Error; err != nil {
				return err
			}
		}

		result = ResubmitResult{
			Status:             submission.Status,
			VerificationStatus: models.VerificationPending,
			ResetCount:         int(reset.RowsAffected),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.history.Record(submissionID, "resubmit", actor, map[string]interface{}{
		"reset_count": result.ResetCount,
		"responses":   len(responses),
	})
	return &result, nil
}
