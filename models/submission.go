package models

import "time"

// SubmissionStatus is the closed set of workflow states. Status values outside
// this set are rejected at the boundary; free-text statuses are not accepted.
type SubmissionStatus string

const (
	StatusNewSubmission          SubmissionStatus = "new_submission"
	StatusAwaitingClassification SubmissionStatus = "awaiting_classification"
	StatusClassified             SubmissionStatus = "classified"
	StatusUnderReview            SubmissionStatus = "under_review"
	StatusReviewComplete         SubmissionStatus = "review_complete"
	StatusApproved               SubmissionStatus = "approved"
	StatusRejected               SubmissionStatus = "rejected"
	StatusExempted               SubmissionStatus = "exempted"
	StatusNeedsRevision          SubmissionStatus = "needs_revision"
	StatusResubmit               SubmissionStatus = "resubmit"
)

// Valid reports whether s is a member of the closed status set.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNewSubmission, StatusAwaitingClassification, StatusClassified,
		StatusUnderReview, StatusReviewComplete, StatusApproved, StatusRejected,
		StatusExempted, StatusNeedsRevision, StatusResubmit:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions may leave s.
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Classification risk tiers. The tier fixes the required reviewer count.
const (
	ClassificationExempted   = "exempted"
	ClassificationExpedited  = "expedited"
	ClassificationFullReview = "full_review"
)

// Aggregate document verification outcomes.
const (
	VerificationPending       = "pending"
	VerificationVerified      = "verified"
	VerificationNeedsRevision = "needs_revision"
)

type Submission struct {
	SubmissionID          int              `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	TrackingCode          string           `gorm:"column:tracking_code;unique" json:"tracking_code"`
	Title                 string           `gorm:"column:title" json:"title"`
	UserID                int              `gorm:"column:user_id" json:"user_id"`
	Status                SubmissionStatus `gorm:"column:status" json:"status"`
	Classification        *string          `gorm:"column:classification" json:"classification"`
	RequiredReviewerCount *int             `gorm:"column:required_reviewer_count" json:"required_reviewer_count"`
	VerificationStatus    string           `gorm:"column:verification_status" json:"verification_status"`
	VerificationFeedback  *string          `gorm:"column:verification_feedback" json:"verification_feedback,omitempty"`
	CreatedAt             time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"column:updated_at" json:"updated_at"`
	SubmittedAt           *time.Time       `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ClassifiedAt          *time.Time       `gorm:"column:classified_at" json:"classified_at,omitempty"`
	VerifiedAt            *time.Time       `gorm:"column:verified_at" json:"verified_at,omitempty"`
	DeleteAt              *time.Time       `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	User             *User                `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Documents        []Document           `gorm:"foreignKey:SubmissionID" json:"documents,omitempty"`
	Assignments      []ReviewerAssignment `gorm:"foreignKey:SubmissionID" json:"assignments,omitempty"`
	RevisionComments []RevisionComment    `gorm:"foreignKey:SubmissionID" json:"revision_comments,omitempty"`
}

// TableName specifies the table for Submission.
func (Submission) TableName() string {
	return "submissions"
}

// IsClassified reports whether a risk tier has been recorded.
func (s *Submission) IsClassified() bool {
	return s.Classification != nil && *s.Classification != ""
}

// ReviewersRequired returns the derived reviewer count, zero when unclassified.
func (s *Submission) ReviewersRequired() int {
	if s.RequiredReviewerCount == nil {
		return 0
	}
	return *s.RequiredReviewerCount
}
