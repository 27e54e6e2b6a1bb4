package dto

import (
	"time"

	"github.com/customeros/mailsync/internal/enum"
)

type DiagnosticReport struct {
	ID              string         `json:"id,omitempty"`
	Timestamp       string         `json:"timestamp"`
	Config          ConfigSummary  `json:"config"`
	Summary         ReportSummary  `json:"summary"`
	FolderResults   []FolderResult `json:"folderResults"`
	Recommendations []string       `json:"recommendations"`
}

type ConfigSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
	ImapHost string `json:"imapHost"`
	ImapPort int    `json:"imapPort"`
	SmtpHost string `json:"smtpHost"`
	SmtpPort int    `json:"smtpPort"`
}

type ReportSummary struct {
	TotalSynced   int `json:"totalSynced"`
	TotalErrors   int `json:"totalErrors"`
	FoldersSynced int `json:"foldersSynced"`
	SuccessRate   int `json:"successRate"`
}

type FolderResult struct {
	Folder   string             `json:"folder"`
	Synced   int                `json:"synced"`
	Errors   int                `json:"errors"`
	Error    *FolderResultError `json:"error,omitempty"`
	Warnings []string           `json:"warnings"`
}

type FolderResultError struct {
	Type        string `json:"type"`
	UserMessage string `json:"userMessage"`
	Solution    string `json:"solution"`
}

type HealthReport struct {
	UserID      string            `json:"userId"`
	Status      enum.HealthStatus `json:"status"`
	LastSync    *time.Time        `json:"lastSync"`
	ErrorCount  int               `json:"errorCount"`
	SyncedCount int               `json:"syncedCount"`
	Folders     []FolderHealth    `json:"folders"`
}

type FolderHealth struct {
	Folder      string            `json:"folder"`
	Status      enum.HealthStatus `json:"status"`
	LastSync    *time.Time        `json:"lastSync"`
	ErrorCount  int               `json:"errorCount"`
	SyncedCount int               `json:"syncedCount"`
	LastError   string            `json:"lastError,omitempty"`
}
