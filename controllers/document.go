package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"ethics-review-api/config"
	"ethics-review-api/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadDocument stores a file for a submission. Uploading a second file for
// the same document type replaces the previous one in place, so verification
// rows and revision comments stay attached to the same document row.
func UploadDocument(c *gin.Context) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}

	actor := currentActor(c)
	var submission models.Submission
	if err := config.DB.Where("submission_id = ? AND delete_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if submission.UserID != actor.ID && actor.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	if submission.Status != models.StatusNewSubmission && submission.Status != models.StatusNeedsRevision {
		c.JSON(http.StatusConflict, gin.H{"error": "Documents can only be uploaded while the submission is with the researcher"})
		return
	}

	typeID, err := strconv.Atoi(c.PostForm("document_type_id"))
	if err != nil || typeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_type_id is required"})
		return
	}
	var docType models.DocumentType
	if err := config.DB.Where("document_type_id = ? AND delete_at IS NULL", typeID).
		First(&docType).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown document type"})
		return
	}
	if docType.Category == models.DocCategoryGenerated {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Generated document types cannot be uploaded"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	hash := sha256.Sum256(data)
	storedName := uuid.New().String() + filepath.Ext(fileHeader.Filename)
	locator, err := objectStore().Put(
		fmt.Sprintf("submissions/%d/%s", submissionID, storedName), data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	now := time.Now()
	var doc models.Document
	err = config.DB.Where("submission_id = ? AND document_type_id = ? AND delete_at IS NULL",
		submissionID, typeID).First(&doc).Error
	if err == nil {
		// Revision upload: replace the file, keep the row identity.
		updates := map[string]interface{}{
			"original_filename": fileHeader.Filename,
			"file_locator":      locator,
			"file_hash":         hex.EncodeToString(hash[:]),
			"uploaded_by":       actor.ID,
			"uploaded_at":       now,
			"update_at":         now,
		}
		if err := config.DB.Model(&doc).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace document"})
			return
		}
		historyService().Record(submissionID, "replace_document", actor, map[string]interface{}{
			"document_id": doc.DocumentID,
			"type":        docType.Code,
		})
		c.JSON(http.StatusOK, gin.H{"document": doc, "message": "Document replaced"})
		return
	}

	doc = models.Document{
		SubmissionID:     submissionID,
		DocumentTypeID:   typeID,
		UploadedBy:       actor.ID,
		OriginalFilename: fileHeader.Filename,
		FileLocator:      locator,
		FileHash:         hex.EncodeToString(hash[:]),
		UploadedAt:       &now,
		CreateAt:         &now,
		UpdateAt:         &now,
	}
	if err := config.DB.Create(&doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save document"})
		return
	}

	historyService().Record(submissionID, "upload_document", actor, map[string]interface{}{
		"document_id": doc.DocumentID,
		"type":        docType.Code,
	})

	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

// GetDocuments lists the documents of a submission.
func GetDocuments(c *gin.Context) {
	submissionID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var submission models.Submission
	if err := config.DB.Where("submission_id = ? AND delete_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}
	if !canViewSubmission(c, &submission) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var documents []models.Document
	if err := config.DB.Preload("DocumentType").
		Where("submission_id = ? AND delete_at IS NULL", submissionID).
		Find(&documents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": documents,
		"total":     len(documents),
	})
}

// DownloadDocument resolves a short-lived link for a stored file.
func DownloadDocument(c *gin.Context) {
	documentID, ok := idParam(c, "document_id")
	if !ok {
		return
	}

	var doc models.Document
	if err := config.DB.Preload("Submission").
		Where("document_id = ? AND delete_at IS NULL", documentID).
		First(&doc).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if doc.Submission == nil || !canViewSubmission(c, doc.Submission) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	url, err := objectStore().SignedURL(doc.FileLocator, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":      url,
		"filename": doc.OriginalFilename,
	})
}

// GetDocumentTypes lists the document catalog in display order.
func GetDocumentTypes(c *gin.Context) {
	var types []models.DocumentType
	if err := config.DB.Where("delete_at IS NULL").
		Order("document_order").Find(&types).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch document types"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"document_types": types})
}
