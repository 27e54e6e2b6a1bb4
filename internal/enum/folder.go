package enum

import "strings"

// FolderName is the canonical, provider independent name of a mailbox folder.
type FolderName string

const (
	FolderInbox  FolderName = "INBOX"
	FolderSent   FolderName = "Sent"
	FolderDrafts FolderName = "Drafts"
	FolderTrash  FolderName = "Trash"
)

func (f FolderName) String() string {
	return string(f)
}

// DefaultFolders is the folder set synced when a caller does not name any.
var DefaultFolders = []FolderName{FolderInbox, FolderSent, FolderDrafts, FolderTrash}

// ParseFolderName returns the canonical folder for name, defaulting to INBOX when name is empty.
// Well-known folders match case insensitively; any other name is kept as given, trimmed.
func ParseFolderName(name string) FolderName {
	name = strings.TrimSpace(name)
	if name == "" {
		return FolderInbox
	}
	for _, folder := range DefaultFolders {
		if strings.EqualFold(name, folder.String()) {
			return folder
		}
	}
	return FolderName(name)
}
