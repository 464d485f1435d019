package services

import (
	"errors"
	"testing"
	"time"

	"ethics-review-api/models"
)

func TestRequiredReviewersPolicyTable(t *testing.T) {
	cases := map[string]int{
		models.ClassificationExempted:   0,
		models.ClassificationExpedited:  3,
		models.ClassificationFullReview: 5,
	}
	for classification, want := range cases {
		got, err := RequiredReviewers(classification)
		if err != nil {
			t.Fatalf("RequiredReviewers(%s) failed: %v", classification, err)
		}
		if got != want {
			t.Errorf("RequiredReviewers(%s) = %d, want %d", classification, got, want)
		}
	}

	if _, err := RequiredReviewers("urgent"); !errors.Is(err, ErrInvalidClassification) {
		t.Errorf("expected ErrInvalidClassification for unknown tier, got %v", err)
	}
}

func TestClassifyExpedited(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, f.submission.SubmissionID, models.StatusAwaitingClassification)

	result, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationExpedited)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Status != models.StatusClassified {
		t.Errorf("status = %s, want %s", result.Status, models.StatusClassified)
	}
	if result.RequiredReviewers != 3 {
		t.Errorf("required reviewers = %d, want 3", result.RequiredReviewers)
	}

	submission := f.reload(t, f.submission.SubmissionID)
	if submission.Classification == nil || *submission.Classification != models.ClassificationExpedited {
		t.Errorf("classification not persisted: %+v", submission.Classification)
	}
	if submission.ReviewersRequired() != 3 {
		t.Errorf("persisted required count = %d", submission.ReviewersRequired())
	}
	if submission.ClassifiedAt == nil {
		t.Error("classified_at not set")
	}
}

func TestClassifyFullReview(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, f.submission.SubmissionID, models.StatusAwaitingClassification)

	result, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationFullReview)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.RequiredReviewers != 5 {
		t.Errorf("required reviewers = %d, want 5", result.RequiredReviewers)
	}
}

func TestClassifyExemptedApprovesEverything(t *testing.T) {
	f := newFixture(t)

	// Leave a mixed verification trail: one approval, one rejection with an
	// open revision comment, one document never verified.
	now := time.Now()
	approved, rejected := true, false
	comment := "needs work"
	rows := []models.DocumentVerification{
		{DocumentID: f.documents[0].DocumentID, SubmissionID: f.submission.SubmissionID,
			Approved: &approved, VerifiedBy: &f.staff.ID, VerifiedAt: &now},
		{DocumentID: f.documents[1].DocumentID, SubmissionID: f.submission.SubmissionID,
			Approved: &rejected, Comment: &comment, VerifiedBy: &f.staff.ID, VerifiedAt: &now},
	}
	for i := range rows {
		if err := f.db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("failed to seed verification row: %v", err)
		}
	}
	open := models.RevisionComment{
		SubmissionID: f.submission.SubmissionID,
		Origin:       models.CommentOriginSecretariat,
		Text:         comment,
		CreatedBy:    f.staff.ID,
		CreatedAt:    now,
	}
	if err := f.db.Create(&open).Error; err != nil {
		t.Fatalf("failed to seed revision comment: %v", err)
	}
	f.setStatus(t, f.submission.SubmissionID, models.StatusAwaitingClassification)

	result, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationExempted)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Status != models.StatusApproved {
		t.Errorf("status = %s, want %s", result.Status, models.StatusApproved)
	}
	if result.RequiredReviewers != 0 {
		t.Errorf("required reviewers = %d, want 0", result.RequiredReviewers)
	}

	var verifications []models.DocumentVerification
	if err := f.db.Where("submission_id = ?", f.submission.SubmissionID).Find(&verifications).Error; err != nil {
		t.Fatalf("failed to load verifications: %v", err)
	}
	for _, row := range verifications {
		if row.Approved == nil || !*row.Approved {
			t.Errorf("verification %d not approved after exemption", row.VerificationID)
		}
	}

	var unresolved int64
	f.db.Model(&models.RevisionComment{}).
		Where("submission_id = ? AND resolved = ?", f.submission.SubmissionID, false).
		Count(&unresolved)
	if unresolved != 0 {
		t.Errorf("%d revision comments left unresolved", unresolved)
	}

	var assignments int64
	f.db.Model(&models.ReviewerAssignment{}).
		Where("submission_id = ?", f.submission.SubmissionID).
		Count(&assignments)
	if assignments != 0 {
		t.Errorf("exemption created %d reviewer assignments", assignments)
	}
}

func TestClassifyExemptedIsIdempotentOnVerifications(t *testing.T) {
	f := newFixture(t)
	if _, err := f.verificationService().VerifyDocuments(f.staff, f.submission.SubmissionID, f.approveAll(), ""); err != nil {
		t.Fatalf("seed verification failed: %v", err)
	}

	if _, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationExempted); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	var approved int64
	f.db.Model(&models.DocumentVerification{}).
		Where("submission_id = ? AND approved = ?", f.submission.SubmissionID, true).
		Count(&approved)
	if int(approved) != len(f.documents) {
		t.Errorf("approved verifications = %d, want %d", approved, len(f.documents))
	}
}

func TestClassifyRejectedWhenAssignmentsExist(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, f.submission.SubmissionID, models.StatusAwaitingClassification)

	if _, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationExpedited); err != nil {
		t.Fatalf("first classification failed: %v", err)
	}
	if _, err := f.assignmentService().Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(3), 0); err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	_, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationFullReview)
	if !errors.Is(err, ErrAlreadyClassified) {
		t.Fatalf("expected ErrAlreadyClassified, got %v", err)
	}

	submission := f.reload(t, f.submission.SubmissionID)
	if submission.ReviewersRequired() != 3 {
		t.Errorf("required count changed to %d", submission.ReviewersRequired())
	}
}

func TestReclassifyAllowedBeforeAssignment(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, f.submission.SubmissionID, models.StatusAwaitingClassification)

	if _, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationExpedited); err != nil {
		t.Fatalf("first classification failed: %v", err)
	}

	// Secretariat corrects the tier before anyone is assigned.
	f.setStatus(t, f.submission.SubmissionID, models.StatusAwaitingClassification)
	result, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationFullReview)
	if err != nil {
		t.Fatalf("reclassification failed: %v", err)
	}
	if result.RequiredReviewers != 5 {
		t.Errorf("required reviewers = %d, want 5", result.RequiredReviewers)
	}
}

func TestClassifyUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, f.submission.SubmissionID, models.StatusAwaitingClassification)

	_, err := f.classificationService().Classify(f.staff, f.submission.SubmissionID, models.ClassificationExpedited)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := f.reload(t, f.submission.SubmissionID); got.IsClassified() {
		t.Error("unauthorized call persisted a classification")
	}
}

func TestClassifyNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.classificationService().Classify(f.secretariat, 9999, models.ClassificationExpedited)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
