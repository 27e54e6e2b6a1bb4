package repository

import (
	"gorm.io/gorm"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/models"
)

type Repositories struct {
	EmailCredentialsRepository interfaces.EmailCredentialsRepository
	FolderRepository           interfaces.FolderRepository
	EmailRepository            interfaces.EmailRepository
	EmailAttachmentRepository  interfaces.EmailAttachmentRepository
	FolderSyncStateRepository  interfaces.FolderSyncStateRepository
	DiagnosticReportRepository interfaces.DiagnosticReportRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailCredentialsRepository: NewEmailCredentialsRepository(db),
		FolderRepository:           NewFolderRepository(db),
		EmailRepository:            NewEmailRepository(db),
		EmailAttachmentRepository:  NewEmailAttachmentRepository(db),
		FolderSyncStateRepository:  NewFolderSyncStateRepository(db),
		DiagnosticReportRepository: NewDiagnosticReportRepository(db),
	}
}

// legacyEmailUIDIndex was a plain index, replaced by uq_email_user_folder_uid.
const legacyEmailUIDIndex = "idx_email_user_folder_uid"

// Migrate creates or updates the tables owned by the service.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.EmailCredentials{},
		&models.Folder{},
		&models.EmailMessage{},
		&models.EmailAttachment{},
		&models.FolderSyncState{},
		&models.DiagnosticReportRecord{},
	)
	if err != nil {
		return err
	}

	migrator := db.Migrator()
	if migrator.HasIndex(&models.EmailMessage{}, legacyEmailUIDIndex) {
		return migrator.DropIndex(&models.EmailMessage{}, legacyEmailUIDIndex)
	}
	return nil
}
