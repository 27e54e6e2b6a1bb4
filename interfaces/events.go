package interfaces

import (
	"context"

	"github.com/customeros/mailsync/dto"
)

type EventPublisher interface {
	PublishFolderSynced(ctx context.Context, event dto.FolderSynced) error
	PublishDiagnosticReportCreated(ctx context.Context, event dto.DiagnosticReportCreated) error
	PublishSyncRequested(ctx context.Context, event dto.SyncRequested) error
	Close() error
}

type EventListener interface {
	Handle(ctx context.Context, event any) error
	GetEventType() string
	GetQueueName() string
}
