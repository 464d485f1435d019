package services

import (
	"errors"
	"fmt"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// ReviewResult reports the submission state after a review lands.
type ReviewResult struct {
	Status          models.SubmissionStatus `json:"status"`
	ReviewsComplete int                     `json:"reviews_complete"`
	ReviewsRequired int                     `json:"reviews_required"`
}

// ReviewService tracks individual reviewer assessments and derives review
// completion for the submission.
type ReviewService struct {
	db       *gorm.DB
	machine  *StatusMachine
	history  *HistoryService
	notifier Notifier
}

func NewReviewService(db *gorm.DB, history *HistoryService, notifier Notifier) *ReviewService {
	return &ReviewService{
		db:       db,
		machine:  NewStatusMachine(),
		history:  history,
		notifier: notifier,
	}
}

// StartReview moves a pending assignment to in-progress and opens a draft
// review for it.
func (s *ReviewService) StartReview(actor Actor, assignmentID int) error {
	if !actor.HasRole(models.RoleReviewer, models.RoleAdmin) {
		return fmt.Errorf("%w: reviews require reviewer role", ErrUnauthorized)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		assignment, err := loadOwnAssignment(tx, actor, assignmentID)
		if err != nil {
			return err
		}
		if assignment.Status != models.AssignmentPending {
			return fmt.Errorf("%w: assignment %d is %s", ErrIllegalTransition, assignmentID, assignment.Status)
		}

		now := time.Now()
		if err := tx.Model(assignment).Updates(map[string]interface{}{
			"status": models.AssignmentInProgress,
		}).Error; err != nil {
			return err
		}

		var review models.Review
		err = tx.Where("assignment_id = ?", assignmentID).First(&review).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			review = models.Review{
				AssignmentID: assignmentID,
				Status:       models.ReviewDraft,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			return tx.Create(&review).Error
		}
		return err
	})
}

// SubmitReview records the terminal assessment for an assignment, marks the
// assignment completed and, in the same transaction, checks whether the
// submission has reached its required reviewer count. The completion check is
// recompute-on-write: it runs at the moment the triggering review lands, so
// concurrent final reviews cannot leave the submission stuck under review.
func (s *ReviewService) SubmitReview(actor Actor, assignmentID int, assessment, recommendation string) (*ReviewResult, error) {
	if !actor.HasRole(models.RoleReviewer, models.RoleAdmin) {
		return nil, fmt.Errorf("%w: reviews require reviewer role", ErrUnauthorized)
	}

	var result ReviewResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		assignment, err := loadOwnAssignment(tx, actor, assignmentID)
		if err != nil {
			return err
		}
		switch assignment.Status {
		case models.AssignmentCompleted:
			return fmt.Errorf("%w: assignment %d already has a submitted review", ErrIllegalTransition, assignmentID)
		case models.AssignmentConflictOfInterest:
			return fmt.Errorf("%w: assignment %d was declined for conflict of interest", ErrIllegalTransition, assignmentID)
		}

		var submission models.Submission
		if err := tx.Where("submission_id = ? AND delete_at IS NULL", assignment.SubmissionID).
			First(&submission).Error; err != nil {
			return wrapNotFound(err, "submission %d", assignment.SubmissionID)
		}

		now := time.Now()
		if err := upsertSubmittedReview(tx, assignmentID, assessment, recommendation, now); err != nil {
			return err
		}
		if err := tx.Model(assignment).Updates(map[string]interface{}{
			"status": models.AssignmentCompleted,
		}).Error; err != nil {
			return err
		}

		var completed int64
		if err := tx.Model(&models.ReviewerAssignment{}).
			Where("submission_id = ? AND status = ?", assignment.SubmissionID, models.AssignmentCompleted).
			Count(&completed).Error; err != nil {
			return err
		}

		required := submission.ReviewersRequired()
		if submission.Status == models.StatusUnderReview && required > 0 && int(completed) >= required {
			if err := s.machine.Transition(tx, &submission, models.StatusReviewComplete, CauseReviewComplete, map[string]interface{}{
				"updated_at": now,
			}); err != nil {
				return err
			}
		}

		result = ReviewResult{
			Status:          submission.Status,
			ReviewsComplete: int(completed),
			ReviewsRequired: required,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var assignment models.ReviewerAssignment
	if s.db.Where("assignment_id = ?", assignmentID).First(&assignment).Error == nil {
		s.history.Record(assignment.SubmissionID, "submit_review", actor, map[string]interface{}{
			"assignment_id":    assignmentID,
			"reviews_complete": result.ReviewsComplete,
			"reviews_required": result.ReviewsRequired,
			"status":           result.Status,
		})
		if result.Status == models.StatusReviewComplete {
			s.notifyReviewComplete(assignment.SubmissionID)
		}
	}

	return &result, nil
}

// RequestRevision files reviewer feedback and routes the submission into the
// revision branch.
func (s *ReviewService) RequestRevision(actor Actor, assignmentID int, commentText string) error {
	if !actor.HasRole(models.RoleReviewer, models.RoleAdmin) {
		return fmt.Errorf("%w: revision requests require reviewer role", ErrUnauthorized)
	}
	if commentText == "" {
		return fmt.Errorf("revision request needs a comment")
	}

	var submissionID int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		assignment, err := loadOwnAssignment(tx, actor, assignmentID)
		if err != nil {
			return err
		}
		if assignment.Status == models.AssignmentCompleted || assignment.Status == models.AssignmentConflictOfInterest {
			return fmt.Errorf("%w: assignment %d is %s", ErrIllegalTransition, assignmentID, assignment.Status)
		}

		var submission models.Submission
		if err := tx.Where("submission_id = ? AND delete_at IS NULL", assignment.SubmissionID).
			First(&submission).Error; err != nil {
			return wrapNotFound(err, "submission %d", assignment.SubmissionID)
		}

		now := time.Now()
		comment := models.RevisionComment{
			SubmissionID: assignment.SubmissionID,
			Origin:       models.CommentOriginReviewer,
			Text:         commentText,
			CreatedBy:    actor.ID,
			CreatedAt:    now,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}

		if err := s.machine.Transition(tx, &submission, models.StatusNeedsRevision, CauseRevisionRequest, map[string]interface{}{
			"verification_status": models.VerificationNeedsRevision,
			"updated_at":          now,
		}); err != nil {
			return err
		}

		submissionID = assignment.SubmissionID
		return nil
	})
	if err != nil {
		return err
	}

	s.history.Record(submissionID, "request_revision", actor, map[string]interface{}{
		"assignment_id": assignmentID,
	})
	return nil
}

func loadOwnAssignment(tx *gorm.DB, actor Actor, assignmentID int) (*models.ReviewerAssignment, error) {
	var assignment models.ReviewerAssignment
	if err := tx.Where("assignment_id = ?", assignmentID).First(&assignment).Error; err != nil {
		return nil, wrapNotFound(err, "assignment %d", assignmentID)
	}
	if actor.Role == models.RoleReviewer && assignment.ReviewerID != actor.ID {
		return nil, fmt.Errorf("%w: assignment %d belongs to another reviewer", ErrUnauthorized, assignmentID)
	}
	return &assignment, nil
}

func upsertSubmittedReview(tx *gorm.DB, assignmentID int, assessment, recommendation string, now time.Time) error {
	updates := map[string]interface{}{
		"status":       models.ReviewSubmitted,
		"submitted_at": now,
		"updated_at":   now,
	}
	if assessment != "" {
		updates["assessment"] = assessment
	}
	if recommendation != "" {
		updates["recommendation"] = recommendation
	}

	var review models.Review
	err := tx.Where("assignment_id = ?", assignmentID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		review = models.Review{
			AssignmentID: assignmentID,
			Status:       models.ReviewSubmitted,
			SubmittedAt:  &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if assessment != "" {
			review.Assessment = &assessment
		}
		if recommendation != "" {
			review.Recommendation = &recommendation
		}
		return tx.Create(&review).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&review).Updates(updates).Error
}

func (s *ReviewService) notifyReviewComplete(submissionID int) {
	var submission models.Submission
	if err := s.db.Preload("User").Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		return
	}
	if submission.User == nil || submission.User.Email == "" {
		return
	}
	subject := fmt.Sprintf("Submission %s: review complete", submission.TrackingCode)
	body := fmt.Sprintf("<p>All required reviews for submission <b>%s</b> have been submitted.</p>", submission.TrackingCode)
	notifyAsync(s.notifier, []string{submission.User.Email}, subject, body)
}
