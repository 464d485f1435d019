package models

import "time"

// Reviewer assignment states.
const (
	AssignmentPending            = "pending"
	AssignmentInProgress         = "in_progress"
	AssignmentCompleted          = "completed"
	AssignmentConflictOfInterest = "conflict_of_interest"
)

// Review states.
const (
	ReviewDraft     = "draft"
	ReviewSubmitted = "submitted"
)

// ReviewerAssignment binds one reviewer to one submission with a due date.
// The (submission_id, reviewer_id) pair is unique at the store level.
type ReviewerAssignment struct {
	AssignmentID int       `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	SubmissionID int       `gorm:"column:submission_id;uniqueIndex:uq_submission_reviewer" json:"submission_id"`
	ReviewerID   int       `gorm:"column:reviewer_id;uniqueIndex:uq_submission_reviewer" json:"reviewer_id"`
	Status       string    `gorm:"column:status" json:"status"`
	DueDate      time.Time `gorm:"column:due_date" json:"due_date"`
	AssignedAt   time.Time `gorm:"column:assigned_at" json:"assigned_at"`
	AssignedBy   int       `gorm:"column:assigned_by" json:"assigned_by"`

	// Relations
	Submission *Submission `gorm:"foreignKey:SubmissionID" json:"submission,omitempty"`
	Reviewer   *User       `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Review     *Review     `gorm:"foreignKey:AssignmentID" json:"review,omitempty"`
}

// Review is the reviewer's assessment for one assignment.
type Review struct {
	ReviewID       int        `gorm:"primaryKey;column:review_id" json:"review_id"`
	AssignmentID   int        `gorm:"column:assignment_id;unique" json:"assignment_id"`
	Status         string     `gorm:"column:status" json:"status"`
	Assessment     *string    `gorm:"column:assessment" json:"assessment,omitempty"`
	Recommendation *string    `gorm:"column:recommendation" json:"recommendation,omitempty"`
	SubmittedAt    *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides
func (ReviewerAssignment) TableName() string {
	return "reviewer_assignments"
}

func (Review) TableName() string {
	return "reviews"
}

// IsActive reports whether the assignment still counts toward a reviewer's
// workload. Completed work drops off; a declared conflict does not.
func (a *ReviewerAssignment) IsActive() bool {
	return a.Status != AssignmentCompleted
}

// IsOverdue reports whether an active assignment has passed its due date.
func (a *ReviewerAssignment) IsOverdue(now time.Time) bool {
	return a.IsActive() && a.DueDate.Before(now)
}
