package services

import (
	"fmt"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// TransitionCause identifies which engine is requesting a status change. The
// same target status can be legal under one cause and illegal under another.
type TransitionCause string

const (
	CauseVerification    TransitionCause = "verification"
	CauseClassification  TransitionCause = "classification"
	CauseAssignment      TransitionCause = "assignment"
	CauseReviewComplete  TransitionCause = "review_complete"
	CauseRevisionRequest TransitionCause = "revision_request"
	CauseResubmission    TransitionCause = "resubmission"
	CauseFinalDecision   TransitionCause = "final_decision"
)

// legalTransitions is the authoritative successor table. Every status change
// in the system goes through Transition, which consults this table.
var legalTransitions = map[TransitionCause]map[models.SubmissionStatus][]models.SubmissionStatus{
	CauseVerification: {
		models.StatusNewSubmission: {
			models.StatusAwaitingClassification,
			models.StatusNeedsRevision,
		},
		models.StatusResubmit: {
			models.StatusAwaitingClassification,
			models.StatusNeedsRevision,
		},
		models.StatusAwaitingClassification: {
			models.StatusNeedsRevision,
		},
	},
	CauseClassification: {
		models.StatusAwaitingClassification: {
			models.StatusClassified,
			models.StatusExempted,
		},
		models.StatusExempted: {
			models.StatusApproved,
		},
	},
	CauseAssignment: {
		models.StatusClassified: {models.StatusUnderReview},
		models.StatusResubmit:   {models.StatusUnderReview},
	},
	CauseReviewComplete: {
		models.StatusUnderReview: {models.StatusReviewComplete},
	},
	CauseRevisionRequest: {
		models.StatusAwaitingClassification: {models.StatusNeedsRevision},
		models.StatusClassified:             {models.StatusNeedsRevision},
		models.StatusUnderReview:            {models.StatusNeedsRevision},
		models.StatusReviewComplete:         {models.StatusNeedsRevision},
	},
	CauseResubmission: {
		models.StatusNeedsRevision: {models.StatusResubmit},
	},
	CauseFinalDecision: {
		models.StatusReviewComplete: {
			models.StatusApproved,
			models.StatusRejected,
		},
	},
}

// StatusMachine validates and applies submission status changes.
type StatusMachine struct{}

func NewStatusMachine() *StatusMachine {
	return &StatusMachine{}
}

// CanTransition reports whether from -> to is in the legal-successor set for
// the given cause. A self-transition is always permitted as a no-op re-apply.
func (m *StatusMachine) CanTransition(from, to models.SubmissionStatus, cause TransitionCause) bool {
	if from == to {
		return true
	}
	for _, next := range legalTransitions[cause][from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the submission to target inside the caller's transaction.
// The extra column updates land in the same UPDATE as the status change, so a
// transition and its side fields are atomic. The UPDATE is guarded on the
// status the caller read; zero rows affected means the submission moved
// concurrently and the whole transaction must roll back.
func (m *StatusMachine) Transition(tx *gorm.DB, submission *models.Submission, target models.SubmissionStatus, cause TransitionCause, updates map[string]interface{}) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, target)
	}
	if !m.CanTransition(submission.Status, target, cause) {
		return fmt.Errorf("%w: %s -> %s on %s", ErrIllegalTransition, submission.Status, target, cause)
	}

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = target

	result := tx.Model(&models.Submission{}).
		Where("submission_id = ? AND status = ?", submission.SubmissionID, submission.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: submission %d changed status concurrently", ErrIllegalTransition, submission.SubmissionID)
	}

	submission.Status = target
	return nil
}
