package models

import "time"

// Revision comment origins.
const (
	CommentOriginReviewer    = "reviewer"
	CommentOriginSecretariat = "secretariat"
)

// RevisionComment is feedback attached to a submission during a verification
// rejection or a reviewer revision request. The researcher answers it during
// resubmission, which marks it resolved.
type RevisionComment struct {
	CommentID    int        `gorm:"primaryKey;column:comment_id" json:"comment_id"`
	SubmissionID int        `gorm:"column:submission_id" json:"submission_id"`
	Origin       string     `gorm:"column:origin" json:"origin"`
	Text         string     `gorm:"column:text" json:"text"`
	Response     *string    `gorm:"column:response" json:"response,omitempty"`
	Resolved     bool       `gorm:"column:resolved" json:"resolved"`
	CreatedBy    int        `gorm:"column:created_by" json:"created_by"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	ResolvedAt   *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

// TableName specifies the table for RevisionComment.
func (RevisionComment) TableName() string {
	return "revision_comments"
}
