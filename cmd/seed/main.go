// Seeds the role table and the document type catalog, and creates the first
// admin account when ADMIN_EMAIL/ADMIN_PASSWORD are set.
// cmd/seed/main.go
package main

import (
	"ethics-review-api/config"
	"ethics-review-api/models"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	config.InitDB()

	if err := config.DB.AutoMigrate(
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
		log.Fatal("Failed to migrate schema:", err)
	}

	seedRoles()
	seedDocumentTypes()
	seedAdmin()

	log.Println("Seeding complete")
}

func seedRoles() {
	for _, name := range []string{
		models.RoleResearcher, models.RoleStaff, models.RoleSecretariat,
		models.RoleReviewer, models.RoleAdmin,
	} {
		var existing models.Role
		if err := config.DB.Where("role = ?", name).First(&existing).Error; err == nil {
			continue
		}
		if err := config.DB.Create(&models.Role{Role: name}).Error; err != nil {
			log.Printf("Failed to seed role %s: %v\n", name, err)
		} else {
			log.Printf("Seeded role %s\n", name)
		}
	}
}

func seedDocumentTypes() {
	types := []models.DocumentType{
		{DocumentTypeName: "Application Form", Code: models.DocTypeApplicationForm, Category: models.DocCategoryApplication, Required: true, DocumentOrder: 1},
		{DocumentTypeName: "Research Protocol", Code: models.DocTypeProtocol, Category: models.DocCategoryApplication, Required: true, DocumentOrder: 2},
		{DocumentTypeName: "Informed Consent Form", Code: models.DocTypeConsentForm, Category: models.DocCategoryApplication, Required: true, DocumentOrder: 3},
		{DocumentTypeName: "Research Instrument", Code: models.DocTypeInstrument, Category: models.DocCategoryApplication, Required: false, DocumentOrder: 4},
		{DocumentTypeName: "Advisor Endorsement Letter", Code: models.DocTypeEndorsementLetter, Category: models.DocCategoryApplication, Required: false, DocumentOrder: 5},
		{DocumentTypeName: "Proposal Defense Certificate", Code: models.DocTypeDefenseCertificate, Category: models.DocCategoryApplication, Required: false, DocumentOrder: 6},
		{DocumentTypeName: "Consolidated Application", Code: models.DocTypeConsolidatedApplication, Category: models.DocCategoryGenerated, Required: false, DocumentOrder: 90},
		{DocumentTypeName: "Certificate of Approval", Code: models.DocTypeCertificateOfApproval, Category: models.DocCategoryGenerated, Required: false, DocumentOrder: 91},
	}

	now := time.Now()
	for _, docType := range types {
		var existing models.DocumentType
		if err := config.DB.Where("code = ?", docType.Code).First(&existing).Error; err == nil {
			continue
		}
		docType.CreateAt = &now
		if err := config.DB.Create(&docType).Error; err != nil {
			log.Printf("Failed to seed document type %s: %v\n", docType.Code, err)
		} else {
			log.Printf("Seeded document type %s\n", docType.Code)
		}
	}
}

func seedAdmin() {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin account")
		return
	}

	var existing models.User
	if err := config.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("Admin %s already exists, skipping\n", email)
		return
	}

	var adminRole models.Role
	if err := config.DB.Where("role = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
		log.Fatal("Admin role missing:", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash admin password:", err)
	}

	now := time.Now()
	admin := models.User{
		UserFname: "System",
		UserLname: "Administrator",
		Email:     email,
		Password:  string(hashed),
		RoleID:    adminRole.RoleID,
		CreateAt:  &now,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		log.Fatal("Failed to create admin account:", err)
	}
	log.Printf("Created admin account %s\n", email)
}
