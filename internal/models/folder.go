package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailsync/internal/utils"
)

// Folder is the local record of a remote mailbox, one per user and canonical name.
type Folder struct {
	ID          string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	UserID      string    `gorm:"column:user_id;type:varchar(50);not null;uniqueIndex:idx_folder_user_name" json:"userId"`
	Name        string    `gorm:"column:name;type:varchar(100);not null;uniqueIndex:idx_folder_user_name" json:"name"`
	DisplayName string    `gorm:"column:display_name;type:varchar(255)" json:"displayName"`
	RemotePath  string    `gorm:"column:remote_path;type:varchar(255);not null" json:"remotePath"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Folder) TableName() string {
	return "folders"
}

func (f *Folder) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = utils.GenerateNanoIDWithPrefix("fold", 16)
	}
	f.CreatedAt = utils.Now()
	return nil
}
