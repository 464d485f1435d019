package models

import (
	"time"
)

// Document type codes. The catalog is fixed; the "generated" category covers
// documents produced by the renderer, which are excluded from verification.
const (
	DocTypeApplicationForm         = "application_form"
	DocTypeProtocol                = "protocol"
	DocTypeConsentForm             = "consent_form"
	DocTypeInstrument              = "instrument"
	DocTypeEndorsementLetter       = "endorsement_letter"
	DocTypeDefenseCertificate      = "defense_certificate"
	DocTypeConsolidatedApplication = "consolidated_application"
	DocTypeCertificateOfApproval   = "certificate_of_approval"

	DocCategoryApplication = "application"
	DocCategoryGenerated   = "generated"
)

// DocumentType represents document types for submissions
type DocumentType struct {
	DocumentTypeID   int        `gorm:"primaryKey;column:document_type_id" json:"document_type_id"`
	DocumentTypeName string     `gorm:"column:document_type_name" json:"document_type_name"`
	Code             string     `gorm:"column:code;unique" json:"code"`
	Category         string     `gorm:"column:category" json:"category"`
	Required         bool       `gorm:"column:required" json:"required"`
	DocumentOrder    int        `gorm:"column:document_order" json:"document_order"`
	CreateAt         *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt         *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt         *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// Document belongs to exactly one submission. On revision the file is replaced
// in place; the row keeps its identity so comments and history stay linked.
type Document struct {
	DocumentID       int        `gorm:"primaryKey;column:document_id" json:"document_id"`
	SubmissionID     int        `gorm:"column:submission_id" json:"submission_id"`
	DocumentTypeID   int        `gorm:"column:document_type_id" json:"document_type_id"`
	UploadedBy       int        `gorm:"column:uploaded_by" json:"uploaded_by"`
	OriginalFilename string     `gorm:"column:original_filename" json:"original_filename"`
	FileLocator      string     `gorm:"column:file_locator" json:"file_locator"`
	FileHash         string     `gorm:"column:file_hash" json:"file_hash"`
	UploadedAt       *time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
	CreateAt         *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt         *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt         *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Submission   *Submission  `gorm:"foreignKey:SubmissionID" json:"submission,omitempty"`
	DocumentType DocumentType `gorm:"foreignKey:DocumentTypeID;references:DocumentTypeID" json:"document_type,omitempty"`
}

// TableName overrides
func (DocumentType) TableName() string {
	return "document_types"
}

func (Document) TableName() string {
	return "documents"
}
