package diagnostics

import (
	"math"
	"time"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
)

const (
	recommendationCredentials  = "Verify the account credentials and make sure IMAP access is enabled for this mailbox."
	recommendationConnectivity = "Check network connectivity to the mail server and confirm the IMAP host and port are correct."
	recommendationTimeout      = "The server responded slowly. Retry the sync during off-peak hours."
	recommendationNoMessages   = "No messages were synchronized. Check the account settings and folder permissions."
)

type recommendationCategory string

const (
	categoryAuthentication recommendationCategory = "authentication"
	categoryConnection     recommendationCategory = "connection"
	categoryTimeout        recommendationCategory = "timeout"
	categoryNoMessages     recommendationCategory = "no_messages"
)

// BuildReport aggregates per folder results of one sync run.
func BuildReport(config dto.ConfigSummary, results []dto.SyncResult, now time.Time) dto.DiagnosticReport {
	report := dto.DiagnosticReport{
		Timestamp:       now.UTC().Format(time.RFC3339),
		Config:          config,
		FolderResults:   make([]dto.FolderResult, 0, len(results)),
		Recommendations: []string{},
	}

	failedKinds := make(map[enum.SyncErrorKind]bool)
	for _, result := range results {
		report.Summary.TotalSynced += result.Synced
		report.Summary.TotalErrors += result.Errors

		folderResult := dto.FolderResult{
			Folder:   result.Folder,
			Synced:   result.Synced,
			Errors:   result.Errors,
			Warnings: result.Warnings,
		}
		if folderResult.Warnings == nil {
			folderResult.Warnings = []string{}
		}
		if result.Error != nil {
			failedKinds[result.Error.Kind] = true
			folderResult.Error = &dto.FolderResultError{
				Type:        result.Error.Kind.String(),
				UserMessage: result.Error.UserMessage,
				Solution:    result.Error.Solution,
			}
		}
		report.FolderResults = append(report.FolderResults, folderResult)
	}

	report.Summary.FoldersSynced = len(results)
	report.Summary.SuccessRate = SuccessRate(report.Summary.TotalSynced, report.Summary.TotalErrors)
	report.Recommendations = recommendations(config, failedKinds, report.Summary.TotalSynced)

	return report
}

// SuccessRate is the rounded share of synced messages among synced plus failed ones.
func SuccessRate(synced, errors int) int {
	if errors == 0 {
		return 100
	}
	return int(math.Round(float64(synced) / float64(synced+errors) * 100))
}

func recommendations(config dto.ConfigSummary, failedKinds map[enum.SyncErrorKind]bool, totalSynced int) []string {
	result := []string{}
	seen := make(map[recommendationCategory]bool)
	add := func(category recommendationCategory, texts ...string) {
		if seen[category] {
			return
		}
		seen[category] = true
		result = append(result, texts...)
	}

	if failedKinds[enum.SyncErrorAuthentication] {
		add(categoryAuthentication, recommendationCredentials, ProviderGuidance(config.Email))
	}
	if failedKinds[enum.SyncErrorConnection] {
		add(categoryConnection, recommendationConnectivity)
	}
	if failedKinds[enum.SyncErrorTimeout] {
		add(categoryTimeout, recommendationTimeout)
	}
	if totalSynced == 0 {
		add(categoryNoMessages, recommendationNoMessages)
	}
	return result
}
