package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"time"

	"ethics-review-api/models"

	"gorm.io/gorm"
)

// Renderer template kinds.
const (
	RenderConsolidatedApplication = "consolidated_application"
	RenderApprovalCertificate     = "approval_certificate"
)

// Renderer produces generated documents (consolidated application PDFs,
// approval certificates). Rendering is a side effect of classification and
// verification outcomes; a render failure never rolls back the transition
// that triggered it.
type Renderer interface {
	Render(submissionID int, templateKind string) ([]byte, error)
}

// NoopRenderer produces nothing. Used in tests and when no rendering backend
// is configured.
type NoopRenderer struct{}

func (NoopRenderer) Render(submissionID int, templateKind string) ([]byte, error) {
	return nil, nil
}

// HTMLRenderer produces printable HTML documents from the submission record.
type HTMLRenderer struct {
	db *gorm.DB
}

func NewHTMLRenderer(db *gorm.DB) *HTMLRenderer {
	return &HTMLRenderer{db: db}
}

var certificateTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Heading}}</title></head>
<body>
<h1>{{.Heading}}</h1>
<p>Tracking code: <b>{{.TrackingCode}}</b></p>
<p>Title: {{.Title}}</p>
<p>Researcher: {{.Researcher}}</p>
<p>Issued: {{.Issued}}</p>
</body>
</html>
`))

func (r *HTMLRenderer) Render(submissionID int, templateKind string) ([]byte, error) {
	var submission models.Submission
	if err := r.db.Preload("User").
		Where("submission_id = ?", submissionID).
		First(&submission).Error; err != nil {
		return nil, err
	}

	heading := "Consolidated Ethics Application"
	if templateKind == RenderApprovalCertificate {
		heading = "Certificate of Ethical Approval"
	}

	researcher := ""
	if submission.User != nil {
		researcher = submission.User.FullName()
	}

	var buf bytes.Buffer
	err := certificateTemplate.Execute(&buf, map[string]string{
		"Heading":      heading,
		"TrackingCode": submission.TrackingCode,
		"Title":        submission.Title,
		"Researcher":   researcher,
		"Issued":       time.Now().Format("2 January 2006"),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// attachRendered renders a template, stores the bytes and upserts the matching
// generated document row. Every failure path is logged and swallowed.
func attachRendered(db *gorm.DB, renderer Renderer, store ObjectStore, submissionID int, templateKind, docTypeCode string, actor Actor) {
	if renderer == nil || store == nil {
		return
	}

	data, err := renderer.Render(submissionID, templateKind)
	if err != nil {
		log.Printf("Warning: failed to render %s for submission %d: %v", templateKind, submissionID, err)
		return
	}
	if len(data) == 0 {
		return
	}

	locator, err := store.Put(fmt.Sprintf("generated/%d/%s.html", submissionID, templateKind), data)
	if err != nil {
		log.Printf("Warning: failed to store rendered %s for submission %d: %v", templateKind, submissionID, err)
		return
	}

	var docType models.DocumentType
	if err := db.Where("code = ? AND delete_at IS NULL", docTypeCode).First(&docType).Error; err != nil {
		log.Printf("Warning: document type %s not found for rendered output: %v", docTypeCode, err)
		return
	}

	now := time.Now()
	var doc models.Document
	err = db.Where("submission_id = ? AND document_type_id = ?", submissionID, docType.DocumentTypeID).
		First(&doc).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"file_locator": locator,
			"uploaded_at":  now,
			"update_at":    now,
		}
		if err := db.Model(&doc).Updates(updates).Error; err != nil {
			log.Printf("Warning: failed to replace rendered %s for submission %d: %v", templateKind, submissionID, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		doc = models.Document{
			SubmissionID:     submissionID,
			DocumentTypeID:   docType.DocumentTypeID,
			UploadedBy:       actor.ID,
			OriginalFilename: templateKind + ".html",
			FileLocator:      locator,
			UploadedAt:       &now,
			CreateAt:         &now,
			UpdateAt:         &now,
		}
		if err := db.Create(&doc).Error; err != nil {
			log.Printf("Warning: failed to attach rendered %s for submission %d: %v", templateKind, submissionID, err)
		}
	default:
		log.Printf("Warning: failed to look up rendered %s for submission %d: %v", templateKind, submissionID, err)
	}
}
