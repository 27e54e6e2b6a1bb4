package dto

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id        string      `json:"id"`
	EntityId  string      `json:"entityId"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	UserId      string `json:"userId"`
	Timestamp   string `json:"timestamp"`
}

// FolderSynced is published after every folder sync, successful or not.
type FolderSynced struct {
	UserID    string `json:"userId"`
	Folder    string `json:"folder"`
	Success   bool   `json:"success"`
	Synced    int    `json:"synced"`
	New       int    `json:"new"`
	Updated   int    `json:"updated"`
	Errors    int    `json:"errors"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// DiagnosticReportCreated is published after a multi-folder sync run.
type DiagnosticReportCreated struct {
	UserID          string   `json:"userId"`
	ReportID        string   `json:"reportId"`
	SuccessRate     int      `json:"successRate"`
	TotalSynced     int      `json:"totalSynced"`
	TotalErrors     int      `json:"totalErrors"`
	Recommendations []string `json:"recommendations"`
}

// SyncRequested asks the service to sync an account, optionally limited to some folders.
type SyncRequested struct {
	UserID  string   `json:"userId"`
	Folders []string `json:"folders"`
}
