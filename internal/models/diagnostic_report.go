package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/internal/utils"
)

// DiagnosticReportRecord is the audit copy of one multi-folder sync run.
type DiagnosticReportRecord struct {
	ID            string    `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID        string    `gorm:"column:user_id;type:varchar(50);index;not null"`
	TotalSynced   int       `gorm:"column:total_synced;not null;default:0"`
	TotalErrors   int       `gorm:"column:total_errors;not null;default:0"`
	FoldersSynced int       `gorm:"column:folders_synced;not null;default:0"`
	SuccessRate   int       `gorm:"column:success_rate;not null;default:0"`
	Report        JSONMap   `gorm:"column:report;type:jsonb"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamp;index;default:current_timestamp"`
}

func (DiagnosticReportRecord) TableName() string {
	return "diagnostic_reports"
}

func (r *DiagnosticReportRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.Now()
	}
	return nil
}
