package models

import "time"

// DocumentVerification records a staff approve/reject decision for one
// document. Approved is tri-state: nil means the decision is still pending.
// The (document_id, submission_id) pair is unique at the store level so
// concurrent duplicate upserts collapse onto one row.
type DocumentVerification struct {
	VerificationID int        `gorm:"primaryKey;column:verification_id" json:"verification_id"`
	DocumentID     int        `gorm:"column:document_id;uniqueIndex:uq_doc_submission" json:"document_id"`
	SubmissionID   int        `gorm:"column:submission_id;uniqueIndex:uq_doc_submission" json:"submission_id"`
	Approved       *bool      `gorm:"column:approved" json:"approved"`
	Comment        *string    `gorm:"column:comment" json:"comment,omitempty"`
	VerifiedBy     *int       `gorm:"column:verified_by" json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `gorm:"column:verified_at" json:"verified_at,omitempty"`

	// Relations
	Document *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
}

// TableName specifies the table for DocumentVerification.
func (DocumentVerification) TableName() string {
	return "document_verifications"
}

// IsPending reports whether no decision has been recorded yet.
func (v *DocumentVerification) IsPending() bool {
	return v.Approved == nil
}
