package interfaces

import (
	"context"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/models"
)

type SyncService interface {
	SyncFolder(ctx context.Context, userID, folderName string) (*dto.SyncResult, error)
	SyncAccount(ctx context.Context, userID string, folders []string) (*dto.DiagnosticReport, error)
	SyncAllAccounts(ctx context.Context) error
}

type DiagnosticsService interface {
	LatestReport(ctx context.Context, userID string) (*dto.DiagnosticReport, error)
	AccountHealth(ctx context.Context, userID string) (*dto.HealthReport, error)
}

type FolderResolver interface {
	Resolve(ctx context.Context, userID, canonicalName string) (*models.Folder, error)
}
