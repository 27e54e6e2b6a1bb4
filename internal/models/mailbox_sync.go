package models

import (
	"time"

	"github.com/customeros/mailsync/internal/enum"
)

// FolderSyncState tracks the outcome history of syncing one folder of one user.
type FolderSyncState struct {
	ID            string          `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        string          `gorm:"column:user_id;type:varchar(50);index;not null"`
	FolderName    string          `gorm:"column:folder_name;type:varchar(100);index;not null"`
	Status        enum.SyncStatus `gorm:"column:status;type:varchar(50)"`
	LastUID       uint32          `gorm:"column:last_uid;not null;default:0"`
	LastSync      time.Time       `gorm:"column:last_sync;type:timestamp;not null"`
	LastSuccessAt *time.Time      `gorm:"column:last_success_at;type:timestamp"`
	ErrorCount    int             `gorm:"column:error_count;not null;default:0"`
	SyncedCount   int             `gorm:"column:synced_count;not null;default:0"`
	LastError     string          `gorm:"column:last_error;type:text"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (FolderSyncState) TableName() string {
	return "folder_sync_states"
}
