package services

import (
	"fmt"
	"testing"
	"time"

	"ethics-review-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.DocumentType{},
		&models.Submission{},
		&models.Document{},
		&models.DocumentVerification{},
		&models.ReviewerAssignment{},
		&models.Review{},
		&models.RevisionComment{},
		&models.SubmissionHistory{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

type fixture struct {
	db *gorm.DB

	researcher  Actor
	staff       Actor
	secretariat Actor
	admin       Actor
	reviewers   []Actor

	submission models.Submission
	documents  []models.Document
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{db: db}

	roles := map[string]int{}
	for i, name := range []string{
		models.RoleResearcher, models.RoleStaff, models.RoleSecretariat,
		models.RoleReviewer, models.RoleAdmin,
	} {
		role := models.Role{RoleID: i + 1, Role: name}
		if err := db.Create(&role).Error; err != nil {
			t.Fatalf("failed to seed role %s: %v", name, err)
		}
		roles[name] = role.RoleID
	}

	f.researcher = f.createUser(t, "alice", models.RoleResearcher, roles)
	f.staff = f.createUser(t, "bob", models.RoleStaff, roles)
	f.secretariat = f.createUser(t, "carol", models.RoleSecretariat, roles)
	f.admin = f.createUser(t, "dave", models.RoleAdmin, roles)
	for i := 0; i < 6; i++ {
		f.reviewers = append(f.reviewers,
			f.createUser(t, fmt.Sprintf("reviewer%d", i+1), models.RoleReviewer, roles))
	}

	docTypes := []struct {
		code     string
		category string
		order    int
	}{
		{models.DocTypeApplicationForm, models.DocCategoryApplication, 1},
		{models.DocTypeProtocol, models.DocCategoryApplication, 2},
		{models.DocTypeConsentForm, models.DocCategoryApplication, 3},
		{models.DocTypeInstrument, models.DocCategoryApplication, 4},
		{models.DocTypeConsolidatedApplication, models.DocCategoryGenerated, 90},
		{models.DocTypeCertificateOfApproval, models.DocCategoryGenerated, 91},
	}
	for _, dt := range docTypes {
		row := models.DocumentType{
			DocumentTypeName: dt.code,
			Code:             dt.code,
			Category:         dt.category,
			Required:         dt.category == models.DocCategoryApplication,
			DocumentOrder:    dt.order,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed document type %s: %v", dt.code, err)
		}
	}

	f.submission = f.createSubmission(t, f.researcher.ID)
	f.documents = f.createDocuments(t, f.submission.SubmissionID,
		models.DocTypeApplicationForm, models.DocTypeProtocol, models.DocTypeConsentForm)

	return f
}

func (f *fixture) createUser(t *testing.T, name, role string, roles map[string]int) Actor {
	t.Helper()
	user := models.User{
		UserFname: name,
		UserLname: "tester",
		Email:     name + "@example.edu",
		Password:  "hashed",
		RoleID:    roles[role],
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", name, err)
	}
	return Actor{ID: user.UserID, Role: role}
}

func (f *fixture) createSubmission(t *testing.T, researcherID int) models.Submission {
	t.Helper()
	now := time.Now()
	submission := models.Submission{
		TrackingCode:       fmt.Sprintf("ETH-%d", now.UnixNano()),
		Title:              "Effects of sleep on memory",
		UserID:             researcherID,
		Status:             models.StatusNewSubmission,
		VerificationStatus: models.VerificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
		SubmittedAt:        &now,
	}
	if err := f.db.Create(&submission).Error; err != nil {
		t.Fatalf("failed to seed submission: %v", err)
	}
	return submission
}

func (f *fixture) createDocuments(t *testing.T, submissionID int, typeCodes ...string) []models.Document {
	t.Helper()
	now := time.Now()
	var docs []models.Document
	for _, code := range typeCodes {
		var docType models.DocumentType
		if err := f.db.Where("code = ?", code).First(&docType).Error; err != nil {
			t.Fatalf("document type %s missing: %v", code, err)
		}
		doc := models.Document{
			SubmissionID:     submissionID,
			DocumentTypeID:   docType.DocumentTypeID,
			UploadedBy:       f.researcher.ID,
			OriginalFilename: code + ".pdf",
			FileLocator:      fmt.Sprintf("submissions/%d/%s.pdf", submissionID, code),
			UploadedAt:       &now,
			CreateAt:         &now,
		}
		if err := f.db.Create(&doc).Error; err != nil {
			t.Fatalf("failed to seed document %s: %v", code, err)
		}
		docs = append(docs, doc)
	}
	return docs
}

func (f *fixture) setStatus(t *testing.T, submissionID int, status models.SubmissionStatus) {
	t.Helper()
	if err := f.db.Model(&models.Submission{}).
		Where("submission_id = ?", submissionID).
		Update("status", status).Error; err != nil {
		t.Fatalf("failed to set status %s: %v", status, err)
	}
}

func (f *fixture) reload(t *testing.T, submissionID int) models.Submission {
	t.Helper()
	var submission models.Submission
	if err := f.db.Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		t.Fatalf("failed to reload submission %d: %v", submissionID, err)
	}
	return submission
}

func (f *fixture) verificationService() *VerificationService {
	return NewVerificationService(f.db, NewHistoryService(f.db), NoopNotifier{})
}

func (f *fixture) classificationService() *ClassificationService {
	return NewClassificationService(f.db, NewHistoryService(f.db), NoopNotifier{}, NoopRenderer{}, nil)
}

func (f *fixture) assignmentService() *AssignmentService {
	return NewAssignmentService(f.db, NewHistoryService(f.db), NoopNotifier{})
}

func (f *fixture) reviewService() *ReviewService {
	return NewReviewService(f.db, NewHistoryService(f.db), NoopNotifier{})
}

func (f *fixture) resubmissionService() *ResubmissionService {
	return NewResubmissionService(f.db, NewHistoryService(f.db), NoopNotifier{})
}

func (f *fixture) decisionService() *DecisionService {
	return NewDecisionService(f.db, NewHistoryService(f.db), NoopNotifier{}, NoopRenderer{}, nil)
}

// approveAll builds an all-approved decision batch for the fixture documents.
func (f *fixture) approveAll() []DocumentDecision {
	decisions := make([]DocumentDecision, 0, len(f.documents))
	for _, doc := range f.documents {
		decisions = append(decisions, DocumentDecision{DocumentID: doc.DocumentID, Approved: true})
	}
	return decisions
}

func (f *fixture) reviewerIDs(n int) []int {
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, f.reviewers[i].ID)
	}
	return ids
}
