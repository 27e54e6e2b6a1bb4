package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/services/diagnostics"
)

// SyncAccount syncs the given folders (all default folders when empty) with bounded
// concurrency, then builds, stores and announces the diagnostic report.
func (s *SyncService) SyncAccount(ctx context.Context, userID string, folders []string) (*dto.DiagnosticReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SyncAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUser(span, userID)

	credentials, err := s.getCredentials(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	folders = canonicalFolders(folders)
	span.LogKV("folders", folders)
	s.log.Infof("[%s] Starting account sync of %d folders", userID, len(folders))

	results := make([]dto.SyncResult, len(folders))
	sem := make(chan struct{}, s.cfg.FolderConcurrency)
	var wg sync.WaitGroup

	for i, folder := range folders {
		wg.Add(1)
		go func(i int, folder string) {
			defer wg.Done()
			defer tracing.RecoverAndLogToJaeger(s.log)

			sem <- struct{}{}
			defer func() { <-sem }()

			// stays in the report if the folder sync panics
			results[i] = incompleteResult(credentials, folder)
			results[i] = s.syncFolderForAccount(ctx, credentials, folder)
		}(i, folder)
	}
	wg.Wait()

	report := diagnostics.BuildReport(configSummary(credentials), results, s.now())
	s.saveReport(ctx, userID, &report)
	s.publishReportCreated(ctx, userID, &report)

	s.log.Infof("[%s] Account sync finished - synced: %d, errors: %d, success rate: %d%%",
		userID, report.Summary.TotalSynced, report.Summary.TotalErrors, report.Summary.SuccessRate)
	return &report, nil
}

func (s *SyncService) syncFolderForAccount(ctx context.Context, credentials *models.EmailCredentials, folder string) dto.SyncResult {
	result, err := s.SyncFolder(ctx, credentials.UserID, folder)
	if err != nil {
		failed := dto.SyncResult{Folder: folder, Warnings: []string{}}
		s.fail(&failed, credentials, err)
		return failed
	}
	return *result
}

func incompleteResult(credentials *models.EmailCredentials, folder string) dto.SyncResult {
	result := dto.SyncResult{Folder: folder, Warnings: []string{}, Errors: 1}
	result.Error = diagnostics.ClassifyForAccount(fmt.Errorf("sync of folder %s did not complete", folder), credentials.EmailAddress)
	return result
}

// SyncAllAccounts syncs every account with stored credentials, one account at a time.
func (s *SyncService) SyncAllAccounts(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SyncAllAccounts")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	accounts, err := s.repositories.EmailCredentialsRepository.List(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	span.LogKV("accounts", len(accounts))

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		if _, err := s.SyncAccount(ctx, account.UserID, nil); err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("[%s] Account sync failed: %v", account.UserID, err)
		}
	}
	return nil
}

// canonicalFolders maps folders to their canonical names without duplicates, so one
// account sync never opens the same folder twice. No folders means the default set.
func canonicalFolders(folders []string) []string {
	if len(folders) == 0 {
		defaults := make([]string, 0, len(enum.DefaultFolders))
		for _, folder := range enum.DefaultFolders {
			defaults = append(defaults, folder.String())
		}
		return defaults
	}

	seen := make(map[string]bool, len(folders))
	canonical := make([]string, 0, len(folders))
	for _, folder := range folders {
		name := enum.ParseFolderName(folder).String()
		if seen[name] {
			continue
		}
		seen[name] = true
		canonical = append(canonical, name)
	}
	return canonical
}

func configSummary(credentials *models.EmailCredentials) dto.ConfigSummary {
	return dto.ConfigSummary{
		ID:       credentials.ID,
		Email:    credentials.EmailAddress,
		Provider: string(credentials.Provider),
		ImapHost: credentials.ImapServer,
		ImapPort: credentials.ImapPort,
		SmtpHost: credentials.SmtpServer,
		SmtpPort: credentials.SmtpPort,
	}
}

func (s *SyncService) saveReport(ctx context.Context, userID string, report *dto.DiagnosticReport) {
	payload, err := models.ToJSONMap(report)
	if err != nil {
		s.log.Warnf("[%s] Could not encode diagnostic report: %v", userID, err)
		return
	}

	record := &models.DiagnosticReportRecord{
		UserID:        userID,
		TotalSynced:   report.Summary.TotalSynced,
		TotalErrors:   report.Summary.TotalErrors,
		FoldersSynced: report.Summary.FoldersSynced,
		SuccessRate:   report.Summary.SuccessRate,
		Report:        payload,
	}
	if err := s.repositories.DiagnosticReportRepository.Save(ctx, record); err != nil {
		s.log.Warnf("[%s] Could not save diagnostic report: %v", userID, err)
		return
	}
	report.ID = record.ID
}

func (s *SyncService) publishReportCreated(ctx context.Context, userID string, report *dto.DiagnosticReport) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishDiagnosticReportCreated(ctx, dto.DiagnosticReportCreated{
		UserID:          userID,
		ReportID:        report.ID,
		SuccessRate:     report.Summary.SuccessRate,
		TotalSynced:     report.Summary.TotalSynced,
		TotalErrors:     report.Summary.TotalErrors,
		Recommendations: report.Recommendations,
	})
	if err != nil {
		s.log.Warnf("[%s] Could not publish diagnostic report event: %v", userID, err)
	}
}
