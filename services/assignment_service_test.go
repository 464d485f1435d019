package services

import (
	"errors"
	"testing"
	"time"

	"ethics-review-api/models"
)

// classifyExpedited drives the fixture submission to classified with a
// required count of three.
func classifyExpedited(t *testing.T, f *fixture) {
	t.Helper()
	if _, err := f.verificationService().VerifyDocuments(f.staff, f.submission.SubmissionID, f.approveAll(), ""); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if _, err := f.classificationService().Classify(f.secretariat, f.submission.SubmissionID, models.ClassificationExpedited); err != nil {
		t.Fatalf("classification failed: %v", err)
	}
}

func TestAssignMovesSubmissionUnderReview(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)

	before := time.Now()
	result, err := f.assignmentService().Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(3), 0)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if result.Status != models.StatusUnderReview {
		t.Errorf("status = %s, want %s", result.Status, models.StatusUnderReview)
	}
	if result.ReviewerCount != 3 {
		t.Errorf("reviewer count = %d, want 3", result.ReviewerCount)
	}

	wantDue := before.AddDate(0, 0, DefaultReviewSLADays)
	if result.DueDate.Before(wantDue.Add(-time.Minute)) || result.DueDate.After(wantDue.Add(time.Minute)) {
		t.Errorf("due date = %v, want about %v", result.DueDate, wantDue)
	}

	var assignments []models.ReviewerAssignment
	if err := f.db.Where("submission_id = ?", f.submission.SubmissionID).Find(&assignments).Error; err != nil {
		t.Fatalf("failed to load assignments: %v", err)
	}
	if len(assignments) != 3 {
		t.Fatalf("assignment rows = %d, want 3", len(assignments))
	}
	for _, a := range assignments {
		if a.Status != models.AssignmentPending {
			t.Errorf("assignment %d status = %s", a.AssignmentID, a.Status)
		}
	}

	for _, reviewerID := range f.reviewerIDs(3) {
		workload, err := f.assignmentService().Workload(reviewerID)
		if err != nil {
			t.Fatalf("Workload failed: %v", err)
		}
		if workload.ActiveCount != 1 {
			t.Errorf("reviewer %d active = %d, want 1", reviewerID, workload.ActiveCount)
		}
	}
}

func TestAssignCustomSLA(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)

	result, err := f.assignmentService().Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(3), 30)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	wantDue := time.Now().AddDate(0, 0, 30)
	if result.DueDate.Before(wantDue.Add(-time.Minute)) || result.DueDate.After(wantDue.Add(time.Minute)) {
		t.Errorf("due date = %v, want about %v", result.DueDate, wantDue)
	}
}

func TestAssignRejectsDuplicateInRequest(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)

	ids := f.reviewerIDs(2)
	ids = append(ids, ids[0])
	_, err := f.assignmentService().Assign(f.secretariat, f.submission.SubmissionID, ids, 0)
	if !errors.Is(err, ErrDuplicateAssignment) {
		t.Fatalf("expected ErrDuplicateAssignment, got %v", err)
	}

	var count int64
	f.db.Model(&models.ReviewerAssignment{}).Count(&count)
	if count != 0 {
		t.Errorf("duplicate request created %d assignments", count)
	}
	if got := f.reload(t, f.submission.SubmissionID).Status; got != models.StatusClassified {
		t.Errorf("status changed to %s", got)
	}
}

func TestAssignRejectsAlreadyAssignedReviewer(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)
	svc := f.assignmentService()

	if _, err := svc.Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(1), 0); err != nil {
		t.Fatalf("first assignment failed: %v", err)
	}
	var original models.ReviewerAssignment
	if err := f.db.Where("submission_id = ?", f.submission.SubmissionID).First(&original).Error; err != nil {
		t.Fatalf("failed to load assignment: %v", err)
	}

	f.setStatus(t, f.submission.SubmissionID, models.StatusClassified)
	_, err := svc.Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(1), 0)
	if !errors.Is(err, ErrDuplicateAssignment) {
		t.Fatalf("expected ErrDuplicateAssignment, got %v", err)
	}

	var count int64
	f.db.Model(&models.ReviewerAssignment{}).Where("submission_id = ?", f.submission.SubmissionID).Count(&count)
	if count != 1 {
		t.Errorf("assignment rows = %d, want the original only", count)
	}
	var reloaded models.ReviewerAssignment
	f.db.Where("assignment_id = ?", original.AssignmentID).First(&reloaded)
	if reloaded.Status != original.Status || !reloaded.DueDate.Equal(original.DueDate) {
		t.Error("original assignment was modified by the failed request")
	}
	if got := f.reload(t, f.submission.SubmissionID).Status; got != models.StatusClassified {
		t.Errorf("status changed to %s on failed assignment", got)
	}
}

func TestAssignUnknownReviewer(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)

	ids := append(f.reviewerIDs(2), 9999)
	_, err := f.assignmentService().Assign(f.secretariat, f.submission.SubmissionID, ids, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRejectsNonReviewerUser(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)

	ids := append(f.reviewerIDs(2), f.staff.ID)
	_, err := f.assignmentService().Assign(f.secretariat, f.submission.SubmissionID, ids, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-reviewer user, got %v", err)
	}
}

func TestAssignUnauthorized(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)

	_, err := f.assignmentService().Assign(f.researcher, f.submission.SubmissionID, f.reviewerIDs(3), 0)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDeclareConflictKeepsCompletionBar(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)
	svc := f.assignmentService()

	if _, err := svc.Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(3), 0); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	var assignment models.ReviewerAssignment
	if err := f.db.Where("submission_id = ? AND reviewer_id = ?",
		f.submission.SubmissionID, f.reviewers[0].ID).First(&assignment).Error; err != nil {
		t.Fatalf("failed to load assignment: %v", err)
	}

	if err := svc.DeclareConflict(f.reviewers[0], assignment.AssignmentID); err != nil {
		t.Fatalf("DeclareConflict failed: %v", err)
	}

	progress, err := svc.Progress(f.submission.SubmissionID)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if progress.ReviewsRequired != 3 {
		t.Errorf("conflict lowered required count to %d", progress.ReviewsRequired)
	}

	// The other two reviewers finishing must not complete the review phase.
	review := f.reviewService()
	for _, reviewer := range f.reviewers[1:3] {
		var a models.ReviewerAssignment
		f.db.Where("submission_id = ? AND reviewer_id = ?", f.submission.SubmissionID, reviewer.ID).First(&a)
		if _, err := review.SubmitReview(reviewer, a.AssignmentID, "looks fine", "approve"); err != nil {
			t.Fatalf("SubmitReview failed: %v", err)
		}
	}
	if got := f.reload(t, f.submission.SubmissionID).Status; got != models.StatusUnderReview {
		t.Errorf("status = %s, want %s until a replacement finishes", got, models.StatusUnderReview)
	}
}

func TestDeclareConflictAfterCompletion(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)
	svc := f.assignmentService()

	if _, err := svc.Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(3), 0); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	var assignment models.ReviewerAssignment
	f.db.Where("submission_id = ? AND reviewer_id = ?", f.submission.SubmissionID, f.reviewers[0].ID).First(&assignment)

	if _, err := f.reviewService().SubmitReview(f.reviewers[0], assignment.AssignmentID, "done", "approve"); err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}

	err := svc.DeclareConflict(f.reviewers[0], assignment.AssignmentID)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition after completion, got %v", err)
	}
}

func TestDeclareConflictOtherReviewersAssignment(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)
	svc := f.assignmentService()

	if _, err := svc.Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(2), 0); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	var assignment models.ReviewerAssignment
	f.db.Where("submission_id = ? AND reviewer_id = ?", f.submission.SubmissionID, f.reviewers[0].ID).First(&assignment)

	err := svc.DeclareConflict(f.reviewers[1], assignment.AssignmentID)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestWorkloadCountsOverdue(t *testing.T) {
	f := newFixture(t)
	classifyExpedited(t, f)
	svc := f.assignmentService()

	if _, err := svc.Assign(f.secretariat, f.submission.SubmissionID, f.reviewerIDs(1), 0); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	// Push the due date into the past.
	past := time.Now().AddDate(0, 0, -1)
	f.db.Model(&models.ReviewerAssignment{}).
		Where("submission_id = ?", f.submission.SubmissionID).
		Update("due_date", past)

	workload, err := svc.Workload(f.reviewers[0].ID)
	if err != nil {
		t.Fatalf("Workload failed: %v", err)
	}
	if workload.ActiveCount != 1 || workload.OverdueCount != 1 {
		t.Errorf("workload = %+v, want active 1 overdue 1", workload)
	}
}
