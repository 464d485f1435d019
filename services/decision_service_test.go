package services

import (
	"errors"
	"testing"

	"ethics-review-api/models"
)

// reviewComplete drives the fixture submission through verification,
// expedited classification, assignment, and three submitted reviews.
func reviewComplete(t *testing.T, f *fixture) {
	t.Helper()
	assignments := underReview(t, f, 3)
	svc := f.reviewService()
	for _, assignment := range assignments {
		if _, err := svc.SubmitReview(reviewerFor(f, assignment), assignment.AssignmentID, "ok", "approve"); err != nil {
			t.Fatalf("SubmitReview failed: %v", err)
		}
	}
	if got := f.reload(t, f.submission.SubmissionID).Status; got != models.StatusReviewComplete {
		t.Fatalf("setup status = %s, want %s", got, models.StatusReviewComplete)
	}
}

func TestRecordDecisionApprove(t *testing.T) {
	f := newFixture(t)
	reviewComplete(t, f)

	submission, err := f.decisionService().RecordDecision(f.secretariat, f.submission.SubmissionID, true, "board approved")
	if err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}
	if submission.Status != models.StatusApproved {
		t.Errorf("status = %s, want %s", submission.Status, models.StatusApproved)
	}
	if got := f.reload(t, f.submission.SubmissionID).Status; got != models.StatusApproved {
		t.Errorf("persisted status = %s", got)
	}

	var entries []models.SubmissionHistory
	f.db.Where("submission_id = ? AND action = ?", f.submission.SubmissionID, "final_decision").Find(&entries)
	if len(entries) != 1 {
		t.Errorf("history entries = %d, want 1", len(entries))
	}
}

func TestRecordDecisionReject(t *testing.T) {
	f := newFixture(t)
	reviewComplete(t, f)

	submission, err := f.decisionService().RecordDecision(f.admin, f.submission.SubmissionID, false, "")
	if err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}
	if submission.Status != models.StatusRejected {
		t.Errorf("status = %s, want %s", submission.Status, models.StatusRejected)
	}
}

func TestRecordDecisionBeforeReviewComplete(t *testing.T) {
	f := newFixture(t)
	underReview(t, f, 3)

	_, err := f.decisionService().RecordDecision(f.secretariat, f.submission.SubmissionID, true, "")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition from %s, got %v", models.StatusUnderReview, err)
	}
	if got := f.reload(t, f.submission.SubmissionID).Status; got != models.StatusUnderReview {
		t.Errorf("status changed to %s", got)
	}
}

func TestRecordDecisionTwice(t *testing.T) {
	f := newFixture(t)
	reviewComplete(t, f)
	svc := f.decisionService()

	if _, err := svc.RecordDecision(f.secretariat, f.submission.SubmissionID, true, ""); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}
	_, err := svc.RecordDecision(f.secretariat, f.submission.SubmissionID, false, "")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition on second decision, got %v", err)
	}
	if got := f.reload(t, f.submission.SubmissionID).Status; got != models.StatusApproved {
		t.Errorf("second decision overwrote status to %s", got)
	}
}

func TestRecordDecisionUnauthorized(t *testing.T) {
	f := newFixture(t)
	reviewComplete(t, f)

	for _, actor := range []Actor{f.researcher, f.staff, f.reviewers[0]} {
		_, err := f.decisionService().RecordDecision(actor, f.submission.SubmissionID, true, "")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("role %s: expected ErrUnauthorized, got %v", actor.Role, err)
		}
	}
}

func TestRecordDecisionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.decisionService().RecordDecision(f.secretariat, 9999, true, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
