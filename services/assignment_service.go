package services

import (
	"fmt"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// DefaultReviewSLADays is the review window applied when the caller does not
// choose one. Whatever window a caller picks is applied uniformly to every
// reviewer in the batch, so due dates stay consistent per submission.
const DefaultReviewSLADays = 14

// AssignmentResult reports a completed assignment batch.
type AssignmentResult struct {
	Status        models.SubmissionStatus `json:"status"`
	ReviewerCount int                     `json:"reviewer_count"`
	DueDate       time.Time               `json:"due_date"`
}

// ReviewerWorkload is the dashboard view of one reviewer's load.
type ReviewerWorkload struct {
	ReviewerID   int `json:"reviewer_id"`
	ActiveCount  int `json:"active_count"`
	OverdueCount int `json:"overdue_count"`
}

// SubmissionProgress reports review completion against the classification
// requirement, not against the assignment count: an assignment lost to a
// conflict of interest never lowers the completion bar.
type SubmissionProgress struct {
	ReviewsComplete int `json:"reviews_complete"`
	ReviewsRequired int `json:"reviews_required"`
}

// AssignmentService binds reviewers to classified submissions and answers
// workload queries.
type AssignmentService struct {
	db       *gorm.DB
	machine  *StatusMachine
	history  *HistoryService
	notifier Notifier
}

func NewAssignmentService(db *gorm.DB, history *HistoryService, notifier Notifier) *AssignmentService {
	return &AssignmentService{
		db:       db,
		machine:  NewStatusMachine(),
		history:  history,
		notifier: notifier,
	}
}

// Assign creates one assignment per reviewer and moves the submission under
// review. The batch is all-or-nothing: a failed insert rolls the whole
// transaction back, so no status change survives a partial batch.
func (s *AssignmentService) Assign(actor Actor, submissionID int, reviewerIDs []int, slaDays int) (*AssignmentResult, error) {
	if !actor.HasRole(models.RoleSecretariat, models.RoleAdmin) {
		return nil, fmt.Errorf("%w: reviewer assignment requires secretariat role", ErrUnauthorized)
	}
	if len(reviewerIDs) == 0 {
		return nil, fmt.Errorf("%w: no reviewers given", ErrPartialAssignmentFailure)
	}

	seen := make(map[int]struct{}, len(reviewerIDs))
	for _, id := range reviewerIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: reviewer %d listed twice", ErrDuplicateAssignment, id)
		}
		seen[id] = struct{}{}
	}

	if slaDays <= 0 {
		slaDays = DefaultReviewSLADays
	}
	now := time.Now()
	dueDate := now.AddDate(0, 0, slaDays)

	var result AssignmentResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var submission models.Submission
		if err := tx.Where("submission_id = ? AND delete_at IS NULL", submissionID).
			First(&submission).Error; err != nil {
			return wrapNotFound(err, "submission %d", submissionID)
		}

		var reviewers int64
		if err := tx.Model(&models.User{}).
			Joins("JOIN roles ON roles.role_id = users.role_id").
			Where("users.user_id IN ? AND users.delete_at IS NULL AND roles.role = ?", reviewerIDs, models.RoleReviewer).
			Count(&reviewers).Error; err != nil {
			return err
		}
		if int(reviewers) != len(reviewerIDs) {
			return fmt.Errorf("%w: one or more reviewer ids do not resolve to reviewers", ErrNotFound)
		}

		var existing int64
		if err := tx.Model(&models.ReviewerAssignment{}).
			Where("submission_id = ? AND reviewer_id IN ?", submissionID, reviewerIDs).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: %d of the reviewers are already assigned to submission %d",
				ErrDuplicateAssignment, existing, submissionID)
		}

		inserted := 0
		for _, reviewerID := range reviewerIDs {
			assignment := models.ReviewerAssignment{
				SubmissionID: submissionID,
				ReviewerID:   reviewerID,
				Status:       models.AssignmentPending,
				DueDate:      dueDate,
				AssignedAt:   now,
				AssignedBy:   actor.ID,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return fmt.Errorf("%w: insert %d of %d failed for reviewer %d: %v",
					ErrPartialAssignmentFailure, inserted+1, len(reviewerIDs), reviewerID, err)
			}
			inserted++
		}

		if err := s.machine.Transition(tx, &submission, models.StatusUnderReview, CauseAssignment, map[string]interface{}{
			"updated_at": now,
		}); err != nil {
			return err
		}

		result = AssignmentResult{
			Status:        submission.Status,
			ReviewerCount: len(reviewerIDs),
			DueDate:       dueDate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.history.Record(submissionID, "assign_reviewers", actor, map[string]interface{}{
		"reviewer_count": result.ReviewerCount,
		"due_date":       result.DueDate,
	})
	s.notifyReviewers(submissionID, reviewerIDs, dueDate)

	return &result, nil
}

// DeclareConflict marks an assignment as a conflict of interest. Allowed any
// time before completion. The submission's required reviewer count is not
// touched; the secretariat assigns a replacement explicitly.
func (s *AssignmentService) DeclareConflict(actor Actor, assignmentID int) error {
	if !actor.HasRole(models.RoleReviewer, models.RoleAdmin) {
		return fmt.Errorf("%w: conflict declaration requires reviewer role", ErrUnauthorized)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var assignment models.ReviewerAssignment
		if err := tx.Where("assignment_id = ?", assignmentID).
			First(&assignment).Error; err != nil {
			return wrapNotFound(err, "assignment %d", assignmentID)
		}
		if actor.Role == models.RoleReviewer && assignment.ReviewerID != actor.ID {
			return fmt.Errorf("%w: assignment %d belongs to another reviewer", ErrUnauthorized, assignmentID)
		}
		if assignment.Status == models.AssignmentCompleted {
			return fmt.Errorf("%w: assignment %d is already completed", ErrIllegalTransition, assignmentID)
		}

		return tx.Model(&assignment).Updates(map[string]interface{}{
			"status": models.AssignmentConflictOfInterest,
		}).Error
	})
	if err != nil {
		return err
	}

	var assignment models.ReviewerAssignment
	if s.db.Where("assignment_id = ?", assignmentID).First(&assignment).Error == nil {
		s.history.Record(assignment.SubmissionID, "declare_conflict", actor, map[string]interface{}{
			"assignment_id": assignmentID,
		})
	}
	return nil
}

// Workload counts a reviewer's active and overdue assignments.
func (s *AssignmentService) Workload(reviewerID int) (*ReviewerWorkload, error) {
	var active, overdue int64
	if err := s.db.Model(&models.ReviewerAssignment{}).
		Where("reviewer_id = ? AND status <> ?", reviewerID, models.AssignmentCompleted).
		Count(&active).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.ReviewerAssignment{}).
		Where("reviewer_id = ? AND status <> ? AND due_date < ?",
			reviewerID, models.AssignmentCompleted, time.Now()).
		Count(&overdue).Error; err != nil {
		return nil, err
	}

	return &ReviewerWorkload{
		ReviewerID:   reviewerID,
		ActiveCount:  int(active),
		OverdueCount: int(overdue),
	}, nil
}

// Progress reports completed reviews against the required reviewer count.
func (s *AssignmentService) Progress(submissionID int) (*SubmissionProgress, error) {
	var submission models.Submission
	if err := s.db.Where("submission_id = ? AND delete_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		return nil, wrapNotFound(err, "submission %d", submissionID)
	}

	var completed int64
	if err := s.db.Model(&models.ReviewerAssignment{}).
		Where("submission_id = ? AND status = ?", submissionID, models.AssignmentCompleted).
		Count(&completed).Error; err != nil {
		return nil, err
	}

	return &SubmissionProgress{
		ReviewsComplete: int(completed),
		ReviewsRequired: submission.ReviewersRequired(),
	}, nil
}

// AssignmentsForReviewer lists a reviewer's assignments, soonest due first.
func (s *AssignmentService) AssignmentsForReviewer(reviewerID int) ([]models.ReviewerAssignment, error) {
	var assignments []models.ReviewerAssignment
	err := s.db.Preload("Submission").Preload("Review").
		Where("reviewer_id = ?", reviewerID).
		Order("due_date ASC").
		Find(&assignments).Error
	return assignments, err
}

func (s *AssignmentService) notifyReviewers(submissionID int, reviewerIDs []int, dueDate time.Time) {
	var submission models.Submission
	if err := s.db.Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		return
	}
	var reviewers []models.User
	if err := s.db.Where("user_id IN ?", reviewerIDs).Find(&reviewers).Error; err != nil {
		return
	}

	recipients := make([]string, 0, len(reviewers))
	for _, reviewer := range reviewers {
		if reviewer.Email != "" {
			recipients = append(recipients, reviewer.Email)
		}
	}
	subject := fmt.Sprintf("Review assignment: %s", submission.TrackingCode)
	body := fmt.Sprintf("<p>You have been assigned to review submission <b>%s</b>.</p><p>Due date: %s</p>",
		submission.TrackingCode, dueDate.Format("2 January 2006"))
	notifyAsync(s.notifier, recipients, subject, body)
}
