package dto

import (
	"fmt"

	"github.com/customeros/mailsync/internal/enum"
)

// SyncError is the typed classification of a failure that happened while syncing.
type SyncError struct {
	Kind        enum.SyncErrorKind `json:"type"`
	Code        string             `json:"code"`
	Message     string             `json:"message"`
	UserMessage string             `json:"userMessage"`
	Solution    string             `json:"solution"`
	Retryable   bool               `json:"retryable"`
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

// SyncResult is the outcome of syncing one folder.
type SyncResult struct {
	Folder   string     `json:"folder"`
	Success  bool       `json:"success"`
	Synced   int        `json:"synced"`
	New      int        `json:"new"`
	Updated  int        `json:"updated"`
	Errors   int        `json:"errors"`
	LastUID  uint32     `json:"-"`
	Error    *SyncError `json:"error,omitempty"`
	Warnings []string   `json:"warnings"`
}

func (r *SyncResult) AddWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

type SyncFolderRequest struct {
	UserID     string `json:"userId"`
	FolderName string `json:"folderName"`
}

type SyncFolderResponse struct {
	Synced  int    `json:"synced"`
	New     int    `json:"new"`
	Updated int    `json:"updated"`
	Message string `json:"message"`
}

type SyncAccountRequest struct {
	UserID  string   `json:"userId"`
	Folders []string `json:"folders"`
}

// ErrorResponse is the body returned for failed requests.
type ErrorResponse struct {
	Error *ErrorDetails `json:"error"`
}

type ErrorDetails struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	UserMessage string `json:"userMessage"`
	Solution    string `json:"solution,omitempty"`
}
