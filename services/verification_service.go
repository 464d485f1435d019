package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentDecision is one staff approve/reject decision in a verification
// batch.
type DocumentDecision struct {
	DocumentID int    `json:"document_id" binding:"required"`
	Approved   bool   `json:"approved"`
	Comment    string `json:"comment"`
}

// VerificationResult reports the aggregate outcome of a verification batch.
type VerificationResult struct {
	Outcome  string                  `json:"outcome"`
	Status   models.SubmissionStatus `json:"status"`
	Feedback string                  `json:"feedback,omitempty"`
}

// VerificationService evaluates per-document decisions and derives the
// aggregate verification outcome for a submission.
type VerificationService struct {
	db       *gorm.DB
	machine  *StatusMachine
	history  *HistoryService
	notifier Notifier
}

func NewVerificationService(db *gorm.DB, history *HistoryService, notifier Notifier) *VerificationService {
	return &VerificationService{
		db:       db,
		machine:  NewStatusMachine(),
		history:  history,
		notifier: notifier,
	}
}

// VerifyDocuments upserts one verification row per decision and computes the
// aggregate: any rejection routes the submission to needs_revision; a fully
// approved set routes it to awaiting_classification, or back to resubmit when
// the submission was already classified before a revision cycle.
//
// The role check runs before any write. An empty batch is a no-op and never
// marks the submission verified; a non-empty batch must decide every
// application document of the submission or nothing is written.
func (s *VerificationService) VerifyDocuments(actor Actor, submissionID int, decisions []DocumentDecision, overallFeedback string) (*VerificationResult, error) {
	if !actor.HasRole(models.RoleStaff, models.RoleAdmin) {
		return nil, fmt.Errorf("%w: document verification requires staff role", ErrUnauthorized)
	}

	if len(decisions) == 0 {
		var submission models.Submission
		if err := s.db.Where("submission_id = ? AND delete_at IS NULL", submissionID).
			First(&submission).Error; err != nil {
			return nil, wrapNotFound(err, "submission %d", submissionID)
		}
		return &VerificationResult{
			Outcome: submission.VerificationStatus,
			Status:  submission.Status,
		}, nil
	}

	var result VerificationResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var submission models.Submission
		if err := tx.Where("submission_id = ? AND delete_at IS NULL", submissionID).
			First(&submission).Error; err != nil {
			return wrapNotFound(err, "submission %d", submissionID)
		}

		typeOrder, err := applicationDocumentOrder(tx, submissionID)
		if err != nil {
			return err
		}
		decided := make(map[int]struct{}, len(decisions))
		for _, decision := range decisions {
			if _, ok := typeOrder[decision.DocumentID]; !ok {
				return fmt.Errorf("%w: document %d is not an application document of submission %d",
					ErrNotFound, decision.DocumentID, submissionID)
			}
			decided[decision.DocumentID] = struct{}{}
		}
		// The batch must cover the whole application set; a partial batch
		// could mark the submission verified with documents never evaluated.
		if len(decided) != len(typeOrder) {
			return fmt.Errorf("%w: batch decides %d of %d application documents of submission %d",
				ErrIncompleteBatch, len(decided), len(typeOrder), submissionID)
		}

		now := time.Now()
		for _, decision := range decisions {
			approved := decision.Approved
			verifierID := actor.ID
			verifiedAt := now
			row := models.DocumentVerification{
				DocumentID:   decision.DocumentID,
				SubmissionID: submissionID,
				Approved:     &approved,
				VerifiedBy:   &verifierID,
				VerifiedAt:   &verifiedAt,
			}
			if decision.Comment != "" {
				comment := decision.Comment
				row.Comment = &comment
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "document_id"}, {Name: "submission_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"approved", "comment", "verified_by", "verified_at",
				}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to upsert verification for document %d: %w", decision.DocumentID, err)
			}
		}

		feedback, rejected := aggregateFeedback(decisions, typeOrder, overallFeedback)
		if rejected {
			updates := map[string]interface{}{
				"verification_status":   models.VerificationNeedsRevision,
				"verification_feedback": feedback,
				"updated_at":            now,
			}
			if err := s.machine.Transition(tx, &submission, models.StatusNeedsRevision, CauseVerification, updates); err != nil {
				return err
			}
			if feedback != "" {
				comment := models.RevisionComment{
					SubmissionID: submissionID,
					Origin:       models.CommentOriginSecretariat,
					Text:         feedback,
					CreatedBy:    actor.ID,
					CreatedAt:    now,
				}
				if err := tx.Create(&comment).Error; err != nil {
					return fmt.Errorf("failed to record revision comment: %w", err)
				}
			}
			result = VerificationResult{
				Outcome:  models.VerificationNeedsRevision,
				Status:   models.StatusNeedsRevision,
				Feedback: feedback,
			}
			return nil
		}

		target := models.StatusAwaitingClassification
		if submission.IsClassified() {
			// A classified submission re-entering after a revision cycle goes
			// back to reviewer reassignment, not reclassification.
			target = models.StatusResubmit
		}
		updates := map[string]interface{}{
			"verification_status":   models.VerificationVerified,
			"verification_feedback": nil,
			"verified_at":           now,
			"updated_at":            now,
		}
		if err := s.machine.Transition(tx, &submission, target, CauseVerification, updates); err != nil {
			return err
		}
		result = VerificationResult{
			Outcome: models.VerificationVerified,
			Status:  target,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.history.Record(submissionID, "verify_documents", actor, map[string]interface{}{
		"outcome":   result.Outcome,
		"status":    result.Status,
		"documents": len(decisions),
	})
	s.notifyOutcome(submissionID, result)

	return &result, nil
}

// Verifications returns the verification rows for a submission keyed to their
// documents.
func (s *VerificationService) Verifications(submissionID int) ([]models.DocumentVerification, error) {
	var rows []models.DocumentVerification
	err := s.db.Preload("Document").Preload("Document.DocumentType").
		Where("submission_id = ?", submissionID).
		Find(&rows).Error
	return rows, err
}

// applicationDocumentOrder maps document ids of the submission's application
// stage documents to their document-type sort order. Generated documents are
// excluded from verification.
func applicationDocumentOrder(tx *gorm.DB, submissionID int) (map[int]int, error) {
	var docs []models.Document
	if err := tx.Preload("DocumentType").
		Where("submission_id = ? AND delete_at IS NULL", submissionID).
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	order := make(map[int]int, len(docs))
	for _, doc := range docs {
		if doc.DocumentType.Category != models.DocCategoryApplication {
			continue
		}
		order[doc.DocumentID] = doc.DocumentType.DocumentOrder
	}
	return order, nil
}

// aggregateFeedback computes the overall feedback for a batch. Rejection
// comments are considered in document-type order then by document id, so the
// outcome does not depend on the order decisions arrive in. A caller-supplied
// overall feedback takes precedence over any per-document comment.
func aggregateFeedback(decisions []DocumentDecision, typeOrder map[int]int, overallFeedback string) (string, bool) {
	sorted := append([]DocumentDecision(nil), decisions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := typeOrder[sorted[i].DocumentID], typeOrder[sorted[j].DocumentID]
		if oi != oj {
			return oi < oj
		}
		return sorted[i].DocumentID < sorted[j].DocumentID
	})

	rejected := false
	feedback := ""
	for _, decision := range sorted {
		if decision.Approved {
			continue
		}
		rejected = true
		if feedback == "" && decision.Comment != "" {
			feedback = decision.Comment
		}
	}
	if !rejected {
		return "", false
	}
	if overallFeedback != "" {
		feedback = overallFeedback
	}
	return feedback, true
}

func (s *VerificationService) notifyOutcome(submissionID int, result VerificationResult) {
	var submission models.Submission
	if err := s.db.Preload("User").Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		return
	}
	if submission.User == nil || submission.User.Email == "" {
		return
	}

	subject := fmt.Sprintf("Submission %s: documents verified", submission.TrackingCode)
	body := fmt.Sprintf("<p>Your submission <b>%s</b> passed document verification.</p>", submission.TrackingCode)
	if result.Outcome == models.VerificationNeedsRevision {
		subject = fmt.Sprintf("Submission %s: revision required", submission.TrackingCode)
		body = fmt.Sprintf("<p>Your submission <b>%s</b> requires revision.</p><p>%s</p>",
			submission.TrackingCode, result.Feedback)
	}
	notifyAsync(s.notifier, []string{submission.User.Email}, subject, body)
}

// wrapNotFound converts a gorm record-not-found into the engine taxonomy and
// passes other database errors through.
func wrapNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
