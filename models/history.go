package models

import "time"

// SubmissionHistory is the append-only audit trail. Writing it is best-effort;
// a lost history row never blocks a workflow transition.
type SubmissionHistory struct {
	HistoryID    int       `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID int       `gorm:"column:submission_id" json:"submission_id"`
	Action       string    `gorm:"column:action" json:"action"`
	ActorID      int       `gorm:"column:actor_id" json:"actor_id"`
	ActorRole    string    `gorm:"column:actor_role" json:"actor_role"`
	Details      *string   `gorm:"column:details" json:"details,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for SubmissionHistory.
func (SubmissionHistory) TableName() string {
	return "submission_history"
}
