package services

import (
	"fmt"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// DecisionService records the secretariat's final decision once the review
// phase has completed.
type DecisionService struct {
	db       *gorm.DB
	machine  *StatusMachine
	history  *HistoryService
	notifier Notifier
	renderer Renderer
	store    ObjectStore
}

func NewDecisionService(db *gorm.DB, history *HistoryService, notifier Notifier, renderer Renderer, store ObjectStore) *DecisionService {
	return &DecisionService{
		db:       db,
		machine:  NewStatusMachine(),
		history:  history,
		notifier: notifier,
		renderer: renderer,
		store:    store,
	}
}

// RecordDecision moves a review-complete submission to approved or rejected.
func (s *DecisionService) RecordDecision(actor Actor, submissionID int, approve bool, note string) (*models.Submission, error) {
	if !actor.HasRole(models.RoleSecretariat, models.RoleAdmin) {
		return nil, fmt.Errorf("%w: final decisions require secretariat role", ErrUnauthorized)
	}

	target := models.StatusRejected
	if approve {
		target = models.StatusApproved
	}

	var submission models.Submission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ? AND delete_at IS NULL", submissionID).
			First(&submission).Error; err != nil {
			return wrapNotFound(err, "submission %d", submissionID)
		}
		return s.machine.Transition(tx, &submission, target, CauseFinalDecision, map[string]interface{}{
			"updated_at": time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{"decision": string(target)}
	if note != "" {
		details["note"] = note
	}
	s.history.Record(submissionID, "final_decision", actor, details)

	if approve {
		attachRendered(s.db, s.renderer, s.store, submissionID,
			RenderApprovalCertificate, models.DocTypeCertificateOfApproval, actor)
	}
	s.notifyDecision(&submission, target, note)

	return &submission, nil
}

func (s *DecisionService) notifyDecision(submission *models.Submission, target models.SubmissionStatus, note string) {
	var owner models.User
	if err := s.db.Where("user_id = ?", submission.UserID).First(&owner).Error; err != nil || owner.Email == "" {
		return
	}
	subject := fmt.Sprintf("Submission %s: %s", submission.TrackingCode, target)
	body := fmt.Sprintf("<p>Your submission <b>%s</b> has been %s.</p>", submission.TrackingCode, target)
	if note != "" {
		body += fmt.Sprintf("<p>%s</p>", note)
	}
	notifyAsync(s.notifier, []string{owner.Email}, subject, body)
}
