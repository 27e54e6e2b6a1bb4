package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailsync/internal/models"
)

type EmailCredentialsRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.EmailCredentials, error)
	List(ctx context.Context) ([]*models.EmailCredentials, error)
	Save(ctx context.Context, credentials *models.EmailCredentials) error
}

type FolderRepository interface {
	GetByName(ctx context.Context, userID, name string) (*models.Folder, error)
	Create(ctx context.Context, folder *models.Folder) error
	UpdateRemotePath(ctx context.Context, id, remotePath string) error
}

// KnownIdentifiers maps the identifiers already persisted for a folder to their row ids.
type KnownIdentifiers struct {
	UIDs       map[uint32]string
	MessageIDs map[string]string
}

func NewKnownIdentifiers() *KnownIdentifiers {
	return &KnownIdentifiers{
		UIDs:       make(map[uint32]string),
		MessageIDs: make(map[string]string),
	}
}

type FlagUpdate struct {
	Flags     []string
	IsRead    bool
	IsStarred bool
	UpdatedAt time.Time
}

type EmailRepository interface {
	GetKnownIdentifiers(ctx context.Context, userID, folderID string) (*KnownIdentifiers, error)
	Create(ctx context.Context, email *models.EmailMessage) error
	UpdateFlagsByUID(ctx context.Context, userID, folderID string, uid uint32, update FlagUpdate) error
	UpdateFlagsByMessageID(ctx context.Context, userID, folderID, messageID string, update FlagUpdate) error
}

type EmailAttachmentRepository interface {
	Create(ctx context.Context, attachment *models.EmailAttachment) error
	GetByID(ctx context.Context, id string) (*models.EmailAttachment, error)
}

type FolderSyncStateRepository interface {
	GetSyncState(ctx context.Context, userID, folderName string) (*models.FolderSyncState, error)
	GetUserSyncStates(ctx context.Context, userID string) ([]*models.FolderSyncState, error)
	SaveSyncState(ctx context.Context, state *models.FolderSyncState) error
}

type DiagnosticReportRepository interface {
	Save(ctx context.Context, report *models.DiagnosticReportRecord) error
	GetLatest(ctx context.Context, userID string) (*models.DiagnosticReportRecord, error)
}
