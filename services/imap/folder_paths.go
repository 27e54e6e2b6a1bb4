package imap

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/customeros/mailsync/internal/enum"
)

// FolderPath describes where a canonical folder lives on the server.
type FolderPath struct {
	DisplayName string   `json:"displayName"`
	Primary     string   `json:"primary"`
	Fallbacks   []string `json:"fallbacks"`
}

// FolderPaths maps a canonical folder name to its remote location and ordered alternates.
type FolderPaths map[string]FolderPath

func DefaultFolderPaths() FolderPaths {
	return FolderPaths{
		enum.FolderInbox.String(): {
			DisplayName: "Inbox",
			Primary:     "INBOX",
		},
		enum.FolderSent.String(): {
			DisplayName: "Sent",
			Primary:     "Sent",
			Fallbacks:   []string{"INBOX.Sent", "Sent Messages", "Sent Items", "Outbox"},
		},
		enum.FolderDrafts.String(): {
			DisplayName: "Drafts",
			Primary:     "Drafts",
			Fallbacks:   []string{"INBOX.Drafts", "Draft"},
		},
		enum.FolderTrash.String(): {
			DisplayName: "Trash",
			Primary:     "Trash",
			Fallbacks:   []string{"INBOX.Trash", "Deleted Messages", "Deleted Items", "Bin"},
		},
	}
}

// ParseFolderPaths reads a JSON object of overrides and merges it over the defaults.
func ParseFolderPaths(overrides string) (FolderPaths, error) {
	paths := DefaultFolderPaths()
	if overrides == "" {
		return paths, nil
	}

	var custom FolderPaths
	if err := json.Unmarshal([]byte(overrides), &custom); err != nil {
		return nil, errors.Wrap(err, "invalid folder paths configuration")
	}
	for key, path := range custom {
		name := enum.ParseFolderName(key).String()
		if path.Primary == "" {
			path.Primary = name
		}
		if path.DisplayName == "" {
			path.DisplayName = name
		}
		paths[name] = path
	}
	return paths, nil
}

// Lookup returns the location of a canonical folder. Unknown names map onto themselves.
func (p FolderPaths) Lookup(canonicalName string) FolderPath {
	if path, ok := p[canonicalName]; ok {
		return path
	}
	return FolderPath{DisplayName: canonicalName, Primary: canonicalName}
}

// Candidates lists the paths to try when opening a folder: primaryPath, then the
// fallbacks in order, without duplicates. When primaryPath is a remembered or custom
// location the configured primary is kept as the last resort.
func (p FolderPaths) Candidates(canonicalName, primaryPath string) []string {
	path := p.Lookup(canonicalName)
	if primaryPath == "" {
		primaryPath = path.Primary
	}

	ordered := append([]string{primaryPath}, path.Fallbacks...)
	ordered = append(ordered, path.Primary)

	var candidates []string
	seen := make(map[string]bool)
	for _, candidate := range ordered {
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true
		candidates = append(candidates, candidate)
	}
	return candidates
}
