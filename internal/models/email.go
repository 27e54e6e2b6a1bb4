package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/utils"
)

// EmailMessage is the persisted copy of a remote message.
type EmailMessage struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID    string `gorm:"column:user_id;type:varchar(50);not null;uniqueIndex:uq_email_user_folder_uid;index:idx_email_user_folder_msgid"`
	FolderID  string `gorm:"column:folder_id;type:varchar(50);not null;uniqueIndex:uq_email_user_folder_uid;index:idx_email_user_folder_msgid"`
	RemoteUID uint32 `gorm:"column:remote_uid;uniqueIndex:uq_email_user_folder_uid,where:is_deleted = false AND remote_uid > 0"`
	MessageID string `gorm:"column:message_id;type:varchar(512);index:idx_email_user_folder_msgid"`

	// Envelope
	FromAddress string `gorm:"column:from_address;type:varchar(255);index"`
	FromName    string `gorm:"column:from_name;type:varchar(255)"`
	To          string `gorm:"column:to_addresses;type:text"`
	Cc          string `gorm:"column:cc_addresses;type:text"`
	Bcc         string `gorm:"column:bcc_addresses;type:text"`
	Subject     string `gorm:"column:subject;type:varchar(1000)"`

	// Content
	BodyText      string `gorm:"column:body_text;type:text"`
	BodyHTML      string `gorm:"column:body_html;type:text"`
	RawSource     []byte `gorm:"column:raw_source;type:bytea"`
	SizeBytes     int    `gorm:"column:size_bytes;default:0"`
	HasAttachment bool   `gorm:"column:has_attachment;default:false"`

	DateReceived time.Time      `gorm:"column:date_received;type:timestamp;index"`
	Flags        pq.StringArray `gorm:"column:flags;type:text[]"`
	IsRead       bool           `gorm:"column:is_read;default:false"`
	IsStarred    bool           `gorm:"column:is_starred;default:false"`
	IsDeleted    bool           `gorm:"column:is_deleted;default:false;index"`

	Classification       enum.EmailClassification `gorm:"column:classification;type:varchar(50);index"`
	ClassificationReason string                   `gorm:"column:classification_reason;type:text"`

	// Standard timestamps
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (EmailMessage) TableName() string {
	return "email_messages"
}

func (e *EmailMessage) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	e.UpdatedAt = e.CreatedAt
	return nil
}
