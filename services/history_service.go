package services

import (
	"encoding/json"
	"log"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// HistoryService appends audit entries for workflow actions. Appends are
// best-effort: a failed insert is logged and swallowed, it never rolls back
// or blocks the transition that triggered it.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Record appends one history entry for the submission.
func (s *HistoryService) Record(submissionID int, action string, actor Actor, details map[string]interface{}) {
	entry := models.SubmissionHistory{
		SubmissionID: submissionID,
		Action:       action,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		CreatedAt:    time.Now(),
	}

	if len(details) > 0 {
		if serialized, err := json.Marshal(details); err == nil {
			payload := string(serialized)
			entry.Details = &payload
		}
	}

	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Warning: failed to record history %s for submission %d: %v", action, submissionID, err)
	}
}

// Entries returns the audit trail for a submission, newest first.
func (s *HistoryService) Entries(submissionID int) ([]models.SubmissionHistory, error) {
	var entries []models.SubmissionHistory
	err := s.db.Where("submission_id = ?", submissionID).
		Order("created_at DESC, history_id DESC").
		Find(&entries).Error
	return entries, err
}
