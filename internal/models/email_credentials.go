package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/utils"
)

// EmailCredentials holds the retrieval and sending configuration of one user's mail account.
type EmailCredentials struct {
	ID           string             `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	UserID       string             `gorm:"column:user_id;type:varchar(50);uniqueIndex;not null" json:"userId"`
	EmailAddress string             `gorm:"column:email_address;type:varchar(255);index" json:"email"`
	Provider     enum.EmailProvider `gorm:"column:provider;type:varchar(50)" json:"provider"`
	// IMAP Configuration
	ImapServer   string `gorm:"column:imap_server;type:varchar(255);not null" json:"imapHost"`
	ImapPort     int    `gorm:"column:imap_port;not null" json:"imapPort"`
	ImapUsername string `gorm:"column:imap_username;type:varchar(255);not null" json:"-"`
	ImapPassword string `gorm:"column:imap_password;type:varchar(255);not null" json:"-"`
	ImapTLS      bool   `gorm:"column:imap_tls;not null;default:true" json:"imapTls"`
	// SMTP Configuration
	SmtpServer   string `gorm:"column:smtp_server;type:varchar(255)" json:"smtpHost"`
	SmtpPort     int    `gorm:"column:smtp_port" json:"smtpPort"`
	SmtpUsername string `gorm:"column:smtp_username;type:varchar(255)" json:"-"`
	SmtpPassword string `gorm:"column:smtp_password;type:varchar(255)" json:"-"`
	SmtpTLS      bool   `gorm:"column:smtp_tls;not null;default:true" json:"smtpTls"`
	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (EmailCredentials) TableName() string {
	return "email_credentials"
}

func (c *EmailCredentials) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.GenerateNanoIDWithPrefix("cred", 16)
	}
	if c.Provider == "" {
		c.Provider = enum.ProviderFromDomain(utils.ExtractDomainFromEmail(c.EmailAddress))
	}
	return nil
}

// Security reports how the IMAP connection is established.
func (c *EmailCredentials) Security() enum.EmailSecurity {
	if c.ImapTLS {
		return enum.EmailSecurityTLS
	}
	return enum.EmailSecurityNone
}
